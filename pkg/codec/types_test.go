package codec

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupPrimitive(t *testing.T) {
	testCases := []struct {
		name  string
		typ   PrimitiveType
		width int
	}{
		{"int8_t", Int8, 1},
		{"uint8_t", Uint8, 1},
		{"int16_t", Int16, 2},
		{"uint16_t", Uint16, 2},
		{"int32_t", Int32, 4},
		{"uint32_t", Uint32, 4},
		{"int64_t", Int64, 8},
		{"uint64_t", Uint64, 8},
		{"float", Float32, 4},
		{"double", Float64, 8},
		{"bool", Bool, 1},
		{"char", Char, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			typ, ok := LookupPrimitive(tc.name)
			require.True(t, ok)
			assert.Equal(t, tc.typ, typ)
			assert.Equal(t, tc.width, typ.Width())
			assert.Equal(t, tc.name, typ.String())
		})
	}

	_, ok := LookupPrimitive("vehicle_status")
	assert.False(t, ok)
	_, ok = LookupPrimitive("char[40]")
	assert.False(t, ok)
}

func TestPrimitiveType_Invalid(t *testing.T) {
	var zero PrimitiveType
	assert.False(t, zero.Valid())
	assert.Equal(t, 0, zero.Width())
	assert.Equal(t, "invalid", zero.String())

	_, err := zero.Decode([]byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Nil(t, zero.Gather([]byte{1}, 1, 0, 1))
}

func TestPrimitiveType_Decode(t *testing.T) {
	buf := make([]byte, 8)

	binary.LittleEndian.PutUint64(buf, math.Float64bits(-2.5))
	v, err := Float64.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, -2.5, v)

	binary.LittleEndian.PutUint32(buf, math.Float32bits(1.25))
	v, err = Float32.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, float32(1.25), v)

	binary.LittleEndian.PutUint16(buf, 0xfffe)
	v, err = Int16.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, int16(-2), v)

	v, err = Uint16.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xfffe), v)

	v, err = Bool.Decode([]byte{7})
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = Char.Decode([]byte{'x'})
	require.NoError(t, err)
	assert.Equal(t, int8('x'), v)

	_, err = Uint64.Decode([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrShortPayload)
}

func TestPrimitiveType_Gather(t *testing.T) {
	// three records of [uint8 pad][int32 value][uint8 pad] => stride 6, offset 1
	const stride = 6
	buf := make([]byte, 3*stride)
	want := []int32{-1, 0, 123456}
	for i, v := range want {
		binary.LittleEndian.PutUint32(buf[i*stride+1:], uint32(v))
		buf[i*stride] = 0xaa
		buf[i*stride+5] = 0xbb
	}

	got := Int32.Gather(buf, stride, 1, 3)
	assert.Equal(t, want, got)

	pads := Uint8.Gather(buf, stride, 5, 3)
	assert.Equal(t, []uint8{0xbb, 0xbb, 0xbb}, pads)

	empty := Float64.Gather(nil, 8, 0, 0)
	assert.Equal(t, []float64{}, empty)
}
