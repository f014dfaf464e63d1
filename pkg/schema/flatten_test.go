package schema

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/ssargent/flightlog/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRegister(t *testing.T, r *Registry, defs ...string) {
	t.Helper()
	for _, def := range defs {
		c, err := Parse([]byte(def))
		require.NoError(t, err)
		r.Register(c)
	}
}

func fieldNames(l *Layout) []string {
	names := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		names[i] = f.Name
	}
	return names
}

func TestFlatten_Primitives(t *testing.T) {
	r := NewRegistry()
	mustRegister(t, r, "sensor_baro:uint64_t timestamp;float pressure;float temperature;uint32_t error_count;int8_t[2] flags;")

	l, err := r.Flatten("sensor_baro")
	require.NoError(t, err)

	assert.Equal(t, []string{"timestamp", "pressure", "temperature", "error_count", "flags[0]", "flags[1]"}, fieldNames(l))
	assert.Equal(t, 8+4+4+4+2, l.Stride)
	assert.True(t, l.HasTimestamp)
	assert.Equal(t, 0, l.TimestampOffset)

	f, ok := l.Field("error_count")
	require.True(t, ok)
	assert.Equal(t, codec.Uint32, f.Type)
	assert.Equal(t, 16, f.Offset)

	f, ok = l.Field("flags[1]")
	require.True(t, ok)
	assert.Equal(t, 21, f.Offset)
}

func TestFlatten_NestedArray(t *testing.T) {
	r := NewRegistry()
	mustRegister(t, r,
		"pair:int32_t a;int32_t b;",
		"holder:uint64_t timestamp;pair[3] field;",
	)

	l, err := r.Flatten("holder")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"timestamp",
		"field[0].a", "field[0].b",
		"field[1].a", "field[1].b",
		"field[2].a", "field[2].b",
	}, fieldNames(l))
	assert.Equal(t, 8+6*4, l.Stride)

	f, _ := l.Field("field[2].b")
	assert.Equal(t, 8+5*4, f.Offset)
}

func TestFlatten_NestedScalar(t *testing.T) {
	r := NewRegistry()
	// the nested type is registered after the type that references it
	mustRegister(t, r,
		"outer:uint8_t id;inner pos;uint64_t timestamp;",
		"inner:float x;float y;uint64_t timestamp;",
	)

	l, err := r.Flatten("outer")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "pos.x", "pos.y", "pos.timestamp", "timestamp"}, fieldNames(l))
	// only the top-level "timestamp" counts, not "pos.timestamp"
	assert.True(t, l.HasTimestamp)
	assert.Equal(t, 1+4+4+8, l.TimestampOffset)
}

func TestFlatten_TrailingPadding(t *testing.T) {
	r := NewRegistry()
	mustRegister(t, r, "actuator:uint64_t timestamp;uint8_t _padding_mid;float control;uint8_t[3] _padding0;")

	l, err := r.Flatten("actuator")
	require.NoError(t, err)

	// interior padding stays, trailing padding goes
	assert.Equal(t, []string{"timestamp", "_padding_mid", "control"}, fieldNames(l))
	// stride still covers the trimmed bytes
	assert.Equal(t, 8+1+4+3, l.Stride)
}

func TestFlatten_NoTimestamp(t *testing.T) {
	r := NewRegistry()
	mustRegister(t, r, "plain:float v;")

	l, err := r.Flatten("plain")
	require.NoError(t, err)
	assert.False(t, l.HasTimestamp)
	assert.Equal(t, 4, l.Stride)
}

func TestFlatten_Errors(t *testing.T) {
	r := NewRegistry()
	mustRegister(t, r,
		"dangling:uint64_t timestamp;missing_type m;",
		"loop:uint64_t timestamp;loop next;",
	)

	_, err := r.Flatten("nope")
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = r.Flatten("dangling")
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = r.Flatten("loop")
	assert.ErrorIs(t, err, ErrNestingTooDeep)
}

func TestFlatten_LayoutTooLarge(t *testing.T) {
	r := NewRegistry()
	mustRegister(t, r,
		"edge:uint8_t[65533] b;",
		"over:uint8_t[65534] b;",
		"wide:uint64_t timestamp;double[8192] v;",
		"row:uint8_t[100] b;",
		"table:row[656] rows;",
		"c:uint8_t[200] z;",
		"b:c[200] y;",
		"a:b[200] x;",
		"table_fits:row[655] rows;",
	)

	l, err := r.Flatten("edge")
	require.NoError(t, err)
	assert.Equal(t, MaxStride, l.Stride)

	l, err = r.Flatten("table_fits")
	require.NoError(t, err)
	assert.Equal(t, 65500, l.Stride)
	assert.Len(t, l.Fields, 65500)

	for _, name := range []string{"over", "wide", "table", "a"} {
		_, err := r.Flatten(name)
		assert.ErrorIs(t, err, ErrLayoutTooLarge, name)
	}
}

var primitiveNames = []string{
	"int8_t", "uint8_t", "int16_t", "uint16_t", "int32_t", "uint32_t",
	"int64_t", "uint64_t", "float", "double", "bool", "char",
}

// TestProperty_FlattenStride checks that the stride of a primitive-only type
// is the sum of its declared widths, padding included, and that offsets are
// contiguous in declaration order.
func TestProperty_FlattenStride(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("stride equals the untrimmed width sum", prop.ForAll(
		func(kinds []int, sizes []int, padding int) bool {
			n := len(kinds)
			if len(sizes) < n {
				n = len(sizes)
			}

			var def strings.Builder
			def.WriteString("generated:")
			want := 0
			for i := 0; i < n; i++ {
				name := primitiveNames[kinds[i]]
				typ, _ := codec.LookupPrimitive(name)
				if sizes[i] > 1 {
					fmt.Fprintf(&def, "%s[%d] f%d;", name, sizes[i], i)
				} else {
					fmt.Fprintf(&def, "%s f%d;", name, i)
				}
				want += typ.Width() * sizes[i]
			}
			if padding > 0 {
				fmt.Fprintf(&def, "uint8_t[%d] _padding0;", padding)
				want += padding
			}

			r := NewRegistry()
			c, err := Parse([]byte(def.String()))
			if err != nil {
				return false
			}
			r.Register(c)
			l, err := r.Flatten("generated")
			if err != nil {
				return false
			}
			if l.Stride != want {
				return false
			}

			offset := 0
			for _, f := range l.Fields {
				if f.Offset != offset {
					return false
				}
				offset += f.Type.Width()
			}
			return offset == want-padding
		},
		gen.SliceOf(gen.IntRange(0, len(primitiveNames)-1)),
		gen.SliceOf(gen.IntRange(1, 4)),
		gen.IntRange(0, 7),
	))

	properties.TestingRun(t)
}
