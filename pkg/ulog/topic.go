package ulog

import (
	"fmt"

	"github.com/ssargent/flightlog/pkg/codec"
	"github.com/ssargent/flightlog/pkg/schema"
)

// Value is the set of Go types a column can hold.
type Value interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 |
		~int64 | ~uint64 | ~float32 | ~float64 | ~bool
}

// Column is the dense array of one field's values, one entry per record.
type Column struct {
	Name   string
	Type   codec.PrimitiveType
	Offset int

	values any
	n      int
}

// Len returns the number of values.
func (c *Column) Len() int {
	return c.n
}

// Values returns the underlying typed slice, e.g. []float32 for a float field.
func (c *Column) Values() any {
	return c.values
}

// ColumnValues returns the column's values as []T. It reports false if T
// does not match the column type.
func ColumnValues[T Value](c *Column) ([]T, bool) {
	v, ok := c.values.([]T)
	return v, ok
}

// Value returns the i-th value as its Go type.
func (c *Column) Value(i int) any {
	switch v := c.values.(type) {
	case []int8:
		return v[i]
	case []uint8:
		return v[i]
	case []int16:
		return v[i]
	case []uint16:
		return v[i]
	case []int32:
		return v[i]
	case []uint32:
		return v[i]
	case []int64:
		return v[i]
	case []uint64:
		return v[i]
	case []float32:
		return v[i]
	case []float64:
		return v[i]
	case []bool:
		return v[i]
	}
	return nil
}

// Float64 returns the i-th value converted to float64. Booleans map to 0 and 1.
func (c *Column) Float64(i int) float64 {
	switch v := c.values.(type) {
	case []int8:
		return float64(v[i])
	case []uint8:
		return float64(v[i])
	case []int16:
		return float64(v[i])
	case []uint16:
		return float64(v[i])
	case []int32:
		return float64(v[i])
	case []uint32:
		return float64(v[i])
	case []int64:
		return float64(v[i])
	case []uint64:
		return float64(v[i])
	case []float32:
		return float64(v[i])
	case []float64:
		return v[i]
	case []bool:
		if v[i] {
			return 1
		}
	}
	return 0
}

// Uint64 returns the i-th value converted to uint64. Integer columns convert
// exactly; other types go through Float64.
func (c *Column) Uint64(i int) uint64 {
	switch v := c.values.(type) {
	case []uint64:
		return v[i]
	case []int64:
		return uint64(v[i])
	case []uint32:
		return uint64(v[i])
	case []int32:
		return uint64(v[i])
	}
	return uint64(c.Float64(i))
}

// Sample is one retained point of a value-change series.
type Sample struct {
	Index     int // record index within the topic
	Timestamp uint64
	Value     any
}

// Topic is the decoded data of one subscription: a set of equally long
// columns, one per field of the flattened layout.
type Topic struct {
	name    string
	multiID uint8
	msgID   uint16
	layout  *schema.Layout
	columns []*Column
	byName  map[string]*Column
	n       int
}

// materialize decodes a subscription's buffer into columns. The buffer is
// released afterwards.
func materialize(sub *Subscription) *Topic {
	stride := sub.Layout.Stride
	n := sub.count
	if stride > 0 && len(sub.buf) < n*stride {
		n = len(sub.buf) / stride
	}

	t := &Topic{
		name:    sub.Name,
		multiID: sub.MultiID,
		msgID:   sub.MsgID,
		layout:  sub.Layout,
		columns: make([]*Column, 0, len(sub.Layout.Fields)),
		byName:  make(map[string]*Column, len(sub.Layout.Fields)),
		n:       n,
	}
	for _, f := range sub.Layout.Fields {
		col := &Column{
			Name:   f.Name,
			Type:   f.Type,
			Offset: f.Offset,
			values: f.Type.Gather(sub.buf, stride, f.Offset, n),
			n:      n,
		}
		t.columns = append(t.columns, col)
		t.byName[f.Name] = col
	}
	sub.buf = nil
	return t
}

// Name returns the topic name.
func (t *Topic) Name() string { return t.name }

// MultiID returns the instance id distinguishing concurrent instances of the topic.
func (t *Topic) MultiID() uint8 { return t.multiID }

// MsgID returns the msg id the data was logged under.
func (t *Topic) MsgID() uint16 { return t.msgID }

// Layout returns the flattened record layout.
func (t *Topic) Layout() *schema.Layout { return t.layout }

// Len returns the number of records.
func (t *Topic) Len() int { return t.n }

// Columns returns all columns in record order.
func (t *Topic) Columns() []*Column {
	return t.columns
}

// FieldNames returns the column names in record order.
func (t *Topic) FieldNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column for a qualified field name.
func (t *Topic) Column(field string) (*Column, error) {
	c, ok := t.byName[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrFieldNotFound, t.name, field)
	}
	return c, nil
}

// Timestamps returns the timestamp of every record.
func (t *Topic) Timestamps() ([]uint64, error) {
	c, ok := t.byName[schema.TimestampField]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTimestamp, t.name)
	}
	if v, ok := ColumnValues[uint64](c); ok {
		return v, nil
	}
	ts := make([]uint64, c.Len())
	for i := range ts {
		ts[i] = c.Uint64(i)
	}
	return ts, nil
}

// ValueChanges returns the points where field changes value. Records with a
// zero timestamp are ignored. The first remaining record is always included,
// then every record whose value differs from the one before it.
func (t *Topic) ValueChanges(field string) ([]Sample, error) {
	ts, err := t.Timestamps()
	if err != nil {
		return nil, err
	}
	col, err := t.Column(field)
	if err != nil {
		return nil, err
	}

	var (
		out  []Sample
		prev any
	)
	for i := 0; i < t.n; i++ {
		if ts[i] == 0 {
			continue
		}
		v := col.Value(i)
		if out == nil || v != prev {
			out = append(out, Sample{Index: i, Timestamp: ts[i], Value: v})
		}
		prev = v
	}
	return out, nil
}
