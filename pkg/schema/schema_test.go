package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	c, err := Parse([]byte("vehicle_gps_position:uint64_t timestamp;int32_t lat;float[3] vel;uint8_t[5] _padding0;"))
	require.NoError(t, err)

	assert.Equal(t, "vehicle_gps_position", c.Name)
	require.Len(t, c.Fields, 4)
	assert.Equal(t, Field{Type: "uint64_t", ArraySize: 1, Name: "timestamp"}, c.Fields[0])
	assert.Equal(t, Field{Type: "int32_t", ArraySize: 1, Name: "lat"}, c.Fields[1])
	assert.Equal(t, Field{Type: "float", ArraySize: 3, Name: "vel"}, c.Fields[2])
	assert.True(t, c.Fields[2].IsArray())
	assert.Equal(t, Field{Type: "uint8_t", ArraySize: 5, Name: "_padding0"}, c.Fields[3])

	assert.Equal(t, "vehicle_gps_position:uint64_t timestamp;int32_t lat;float[3] vel;uint8_t[5] _padding0;", c.String())
}

func TestParse_NoTrailingSemicolon(t *testing.T) {
	c, err := Parse([]byte("point:float x;float y"))
	require.NoError(t, err)
	assert.Len(t, c.Fields, 2)
}

func TestParse_Empty(t *testing.T) {
	c, err := Parse([]byte("empty:"))
	require.NoError(t, err)
	assert.Equal(t, "empty", c.Name)
	assert.Empty(t, c.Fields)
}

func TestParse_Malformed(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
	}{
		{"no colon", "vehicle_status uint64_t timestamp;"},
		{"empty name", ":uint64_t timestamp;"},
		{"field without name", "t:uint64_t;"},
		{"bad array size", "t:float[x] v;"},
		{"zero array size", "t:float[0] v;"},
		{"unclosed array", "t:float[3 v;"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.payload))
			assert.ErrorIs(t, err, ErrMalformedDefinition)
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Len())

	r.Register(&Composite{Name: "b", Fields: []Field{{Type: "uint8_t", ArraySize: 1, Name: "x"}}})
	r.Register(&Composite{Name: "a"})
	assert.Equal(t, []string{"a", "b"}, r.Names())

	// last definition wins
	r.Register(&Composite{Name: "b"})
	b, ok := r.Lookup("b")
	require.True(t, ok)
	assert.Empty(t, b.Fields)
	assert.Equal(t, 2, r.Len())

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}
