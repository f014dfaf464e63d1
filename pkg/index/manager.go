// Package index builds B+Tree indexes over decoded topics so that time
// windows and field values can be looked up without scanning every record.
package index

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ssargent/flightlog/pkg/bptree"
	"github.com/ssargent/flightlog/pkg/ulog"
)

// DefaultOrder is the B+Tree order used when an IndexManager is created with 0.
const DefaultOrder = 64

// ErrNaN is returned when a secondary index lookup is given NaN.
var ErrNaN = errors.New("cannot index NaN")

// TimeIndex maps record timestamps of one topic to record indices. Records
// sharing a timestamp are kept in record order.
type TimeIndex struct {
	topic *ulog.Topic
	tree  *bptree.BPlusTree[uint64, []int]
}

// NewTimeIndex indexes every record of topic by timestamp.
func NewTimeIndex(topic *ulog.Topic, order int) (*TimeIndex, error) {
	ts, err := topic.Timestamps()
	if err != nil {
		return nil, err
	}
	idx := &TimeIndex{
		topic: topic,
		tree:  bptree.NewBPlusTree[uint64, []int](order),
	}
	for i, t := range ts {
		idx.tree.Update(t, func(old []int, _ bool) []int { return append(old, i) })
	}
	return idx, nil
}

// Topic returns the indexed topic.
func (idx *TimeIndex) Topic() *ulog.Topic { return idx.topic }

// At returns the records logged at exactly ts.
func (idx *TimeIndex) At(ts uint64) []int {
	v, _ := idx.tree.Search(ts)
	return v
}

// Between returns the records with start <= timestamp <= end, ordered by
// timestamp.
func (idx *TimeIndex) Between(start, end uint64) []int {
	var out []int
	idx.tree.Range(start, end, func(_ uint64, records []int) bool {
		out = append(out, records...)
		return true
	})
	return out
}

// Scan calls fn for each record in [start, end] in timestamp order until fn
// returns false.
func (idx *TimeIndex) Scan(start, end uint64, fn func(record int, ts uint64) bool) {
	idx.tree.Range(start, end, func(ts uint64, records []int) bool {
		for _, r := range records {
			if !fn(r, ts) {
				return false
			}
		}
		return true
	})
}

// Bounds returns the first and last timestamp. ok is false for an empty topic.
func (idx *TimeIndex) Bounds() (first, last uint64, ok bool) {
	first, ok = idx.tree.Min()
	if !ok {
		return 0, 0, false
	}
	last, _ = idx.tree.Max()
	return first, last, true
}

// SecondaryIndex maps the values of one field, as float64, to record indices.
type SecondaryIndex struct {
	fieldName string
	tree      *bptree.BPlusTree[float64, []int]
}

// NewSecondaryIndex indexes every record of topic by the value of field.
// NaN values are not indexed.
func NewSecondaryIndex(topic *ulog.Topic, field string, order int) (*SecondaryIndex, error) {
	col, err := topic.Column(field)
	if err != nil {
		return nil, err
	}
	idx := &SecondaryIndex{
		fieldName: field,
		tree:      bptree.NewBPlusTree[float64, []int](order),
	}
	for i := 0; i < col.Len(); i++ {
		v := col.Float64(i)
		if math.IsNaN(v) {
			continue
		}
		idx.tree.Update(v, func(old []int, _ bool) []int { return append(old, i) })
	}
	return idx, nil
}

// Field returns the indexed field name.
func (idx *SecondaryIndex) Field() string { return idx.fieldName }

// Search finds records with an exact field value match.
func (idx *SecondaryIndex) Search(value float64) ([]int, error) {
	if math.IsNaN(value) {
		return nil, ErrNaN
	}
	v, _ := idx.tree.Search(value)
	return v, nil
}

// SearchRange finds records with lo <= value <= hi, ordered by value.
func (idx *SecondaryIndex) SearchRange(lo, hi float64) ([]int, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return nil, ErrNaN
	}
	var out []int
	idx.tree.Range(lo, hi, func(_ float64, records []int) bool {
		out = append(out, records...)
		return true
	})
	return out, nil
}

// IndexManager lazily builds and caches indexes for the topics of loaded
// logs. It is safe for concurrent use.
type IndexManager struct {
	times     map[*ulog.Topic]*TimeIndex
	secondary map[secondaryKey]*SecondaryIndex
	mutex     sync.RWMutex
	order     int
}

type secondaryKey struct {
	topic *ulog.Topic
	field string
}

// NewIndexManager creates a new index manager
func NewIndexManager(order int) *IndexManager {
	if order <= 0 {
		order = DefaultOrder
	}
	return &IndexManager{
		times:     make(map[*ulog.Topic]*TimeIndex),
		secondary: make(map[secondaryKey]*SecondaryIndex),
		order:     order,
	}
}

// TimeIndex gets an existing time index for topic or builds one.
func (im *IndexManager) TimeIndex(topic *ulog.Topic) (*TimeIndex, error) {
	im.mutex.RLock()
	idx, ok := im.times[topic]
	im.mutex.RUnlock()
	if ok {
		return idx, nil
	}

	im.mutex.Lock()
	defer im.mutex.Unlock()
	if idx, ok := im.times[topic]; ok {
		return idx, nil
	}
	idx, err := NewTimeIndex(topic, im.order)
	if err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", topic.Name(), err)
	}
	im.times[topic] = idx
	return idx, nil
}

// GetOrCreateIndex gets an existing secondary index for a field or builds one.
func (im *IndexManager) GetOrCreateIndex(topic *ulog.Topic, field string) (*SecondaryIndex, error) {
	key := secondaryKey{topic: topic, field: field}

	im.mutex.RLock()
	idx, ok := im.secondary[key]
	im.mutex.RUnlock()
	if ok {
		return idx, nil
	}

	im.mutex.Lock()
	defer im.mutex.Unlock()
	if idx, ok := im.secondary[key]; ok {
		return idx, nil
	}
	idx, err := NewSecondaryIndex(topic, field, im.order)
	if err != nil {
		return nil, fmt.Errorf("failed to index %s.%s: %w", topic.Name(), field, err)
	}
	im.secondary[key] = idx
	return idx, nil
}

// Drop forgets every index built for the topics of log.
func (im *IndexManager) Drop(log *ulog.Log) {
	im.mutex.Lock()
	defer im.mutex.Unlock()

	for _, t := range log.Topics() {
		delete(im.times, t)
	}
	for key := range im.secondary {
		for _, t := range log.Topics() {
			if key.topic == t {
				delete(im.secondary, key)
				break
			}
		}
	}
}

// Len returns the number of cached indexes.
func (im *IndexManager) Len() int {
	im.mutex.RLock()
	defer im.mutex.RUnlock()
	return len(im.times) + len(im.secondary)
}
