package codec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeHeader(version byte, ts uint64) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf, Magic)
	buf[7] = version
	binary.LittleEndian.PutUint64(buf[8:], ts)
	return buf
}

func TestDecodeHeader(t *testing.T) {
	h, err := DecodeHeader(makeHeader(0, 112233445566))
	require.NoError(t, err)
	assert.Equal(t, uint64(112233445566), h.StartTimestamp)
	assert.Equal(t, uint8(0), h.Version)
	assert.True(t, h.Compatible())

	h, err = DecodeHeader(makeHeader(1, 42))
	require.NoError(t, err)
	assert.False(t, h.Compatible())
	assert.Equal(t, uint64(42), h.StartTimestamp)
}

func TestDecodeHeader_Errors(t *testing.T) {
	t.Run("short", func(t *testing.T) {
		_, err := DecodeHeader(makeHeader(0, 1)[:15])
		assert.ErrorIs(t, err, ErrShortHeader)
	})

	t.Run("bad magic", func(t *testing.T) {
		for i := 0; i < len(Magic); i++ {
			buf := makeHeader(0, 1)
			buf[i] ^= 0xff
			_, err := DecodeHeader(buf)
			assert.ErrorIs(t, err, ErrBadMagic, "corrupted byte %d", i)
		}
	})
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte{0x34, 0x12, 'D'})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), env.Size)
	assert.Equal(t, MsgData, env.Type)
	assert.Equal(t, "data", env.Type.String())

	_, err = DecodeEnvelope([]byte{1, 0})
	assert.ErrorIs(t, err, ErrShortPayload)

	assert.Equal(t, "unknown(0x42)", MessageType('B').String())
}
