package ulog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	tests := []struct {
		packed  uint32
		display string
		ok      bool
		stage   string
	}{
		{0x010d0200, "", false, "development"},
		{0x010d0240, "v1.13.2 (alpha)", true, "alpha"},
		{0x010d0280, "v1.13.2 (beta)", true, "beta"},
		{0x010d02c0, "v1.13.2 (RC)", true, "rc"},
		{0x010d02ff, "v1.13.2", true, "release"},
	}
	for _, tt := range tests {
		v := ParseVersion(tt.packed)
		display, ok := v.Display()
		assert.Equal(t, tt.ok, ok)
		assert.Equal(t, tt.display, display)
		assert.Equal(t, tt.stage, v.Stage())
	}

	assert.Equal(t, "WARNING", LevelName('4'))
	assert.Equal(t, "UNKNOWN", LevelName('9'))
}

func TestVersionInfo_IntegerWidths(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  Version
		ok    bool
	}{
		{"uint32", uint32(0x010e00ff), Version{1, 14, 0, 255}, true},
		{"int32", int32(0x010e00ff), Version{1, 14, 0, 255}, true},
		{"uint64", uint64(0x010e00ff), Version{1, 14, 0, 255}, true},
		{"int64", int64(0x010e00ff), Version{1, 14, 0, 255}, true},
		{"uint16", uint16(0x00ff), Version{0, 0, 0, 255}, true},
		{"int16", int16(0x0140), Version{0, 0, 1, 64}, true},
		{"uint8", uint8(0xc0), Version{0, 0, 0, 192}, true},
		{"int8", int8(-1), Version{255, 255, 255, 255}, true},
		{"float", float32(1), Version{}, false},
		{"string", "v1.14.0", Version{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLog()
			l.info[DefaultVersionKey] = tt.value
			v, ok := l.VersionInfo(DefaultVersionKey)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, v)
		})
	}

	_, ok := newLog().VersionInfo("ver_hw")
	assert.False(t, ok)
}
