package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ssargent/flightlog/pkg/codec"
)

// PaddingPrefix marks filler fields inserted by the producer for alignment.
const PaddingPrefix = "_padding"

// TimestampField is the qualified field name used as a record's timestamp.
const TimestampField = "timestamp"

// maxDepth bounds composite nesting so that a self-referencing definition
// fails instead of recursing forever.
const maxDepth = 32

// MaxStride is the largest record a data message can carry: the payload
// size field is 16 bits and the msg id takes two of those bytes.
const MaxStride = math.MaxUint16 - 2

// LayoutField is a single primitive leaf of a flattened composite type.
type LayoutField struct {
	Name   string // qualified name, e.g. "accel[2]" or "esc[0].rpm"
	Type   codec.PrimitiveType
	Offset int // byte offset within a record
}

// Layout is the flattened, fixed binary layout of a composite type.
type Layout struct {
	Name string

	// Fields lists the decodable leaves in record order. Trailing padding
	// fields are not included.
	Fields []LayoutField

	// Stride is the full record size, trailing padding included.
	Stride int

	TimestampOffset int
	HasTimestamp    bool
}

// Field returns the layout field with the given qualified name.
func (l *Layout) Field(name string) (LayoutField, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return LayoutField{}, false
}

// Flatten expands the named composite type into its primitive leaves.
// Nested composites are prefixed with "field." and arrays with "field[i]".
func (r *Registry) Flatten(name string) (*Layout, error) {
	l := &Layout{Name: name}
	if err := r.flatten(l, "", name, 0); err != nil {
		return nil, err
	}

	// Only trailing padding is dropped; Stride still counts it.
	n := len(l.Fields)
	for n > 0 && strings.HasPrefix(l.Fields[n-1].Name, PaddingPrefix) {
		n--
	}
	l.Fields = l.Fields[:n:n]
	return l, nil
}

func (r *Registry) flatten(l *Layout, prefix, typeName string, depth int) error {
	if depth >= maxDepth {
		return fmt.Errorf("%w: %s", ErrNestingTooDeep, typeName)
	}
	c, ok := r.Lookup(typeName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}

	for _, f := range c.Fields {
		qualified := prefix + f.Name

		if prim, ok := codec.LookupPrimitive(f.Type); ok {
			if err := l.reserve(f.ArraySize, prim.Width(), qualified); err != nil {
				return err
			}
			if qualified == TimestampField {
				l.TimestampOffset = l.Stride
				l.HasTimestamp = true
			}
			if !f.IsArray() {
				l.add(qualified, prim)
				continue
			}
			for i := 0; i < f.ArraySize; i++ {
				l.add(qualified+"["+strconv.Itoa(i)+"]", prim)
			}
			continue
		}

		if !f.IsArray() {
			if err := r.flatten(l, qualified+".", f.Type, depth+1); err != nil {
				return err
			}
			continue
		}

		// the first element gives the element width, which bounds the rest
		// before any of them is expanded
		before := l.Stride
		if err := r.flatten(l, qualified+"[0].", f.Type, depth+1); err != nil {
			return err
		}
		width := l.Stride - before
		if width == 0 {
			continue
		}
		if err := l.reserve(f.ArraySize-1, width, qualified); err != nil {
			return err
		}
		for i := 1; i < f.ArraySize; i++ {
			if err := r.flatten(l, qualified+"["+strconv.Itoa(i)+"].", f.Type, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// reserve fails if n more elements of width bytes would push the layout
// past MaxStride.
func (l *Layout) reserve(n, width int, field string) error {
	if n > (MaxStride-l.Stride)/width {
		return fmt.Errorf("%w: %s in %s", ErrLayoutTooLarge, field, l.Name)
	}
	return nil
}

func (l *Layout) add(name string, t codec.PrimitiveType) {
	l.Fields = append(l.Fields, LayoutField{Name: name, Type: t, Offset: l.Stride})
	l.Stride += t.Width()
}
