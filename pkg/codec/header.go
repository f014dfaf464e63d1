package codec

import (
	"bytes"
	"encoding/binary"
)

// HeaderSize is the size of the fixed file header.
const HeaderSize = 16

// Magic is the 7-byte signature every log file starts with ("ULog" 0x01 0x12 0x35).
var Magic = []byte{0x55, 0x4c, 0x6f, 0x67, 0x01, 0x12, 0x35}

// CurrentVersion is the only file version this decoder fully understands.
const CurrentVersion = 0

// FileHeader is the decoded fixed header.
// Layout: [Magic(7)][Version(1)][StartTimestamp(8)]
type FileHeader struct {
	Version        uint8
	StartTimestamp uint64 // microseconds
}

// DecodeHeader decodes the fixed header from the first HeaderSize bytes of data.
func DecodeHeader(data []byte) (FileHeader, error) {
	if len(data) < HeaderSize {
		return FileHeader{}, ErrShortHeader
	}
	if !bytes.Equal(data[:len(Magic)], Magic) {
		return FileHeader{}, ErrBadMagic
	}
	return FileHeader{
		Version:        data[7],
		StartTimestamp: binary.LittleEndian.Uint64(data[8:16]),
	}, nil
}

// Compatible reports whether the header version is one this decoder was built for.
func (h FileHeader) Compatible() bool {
	return h.Version == CurrentVersion
}
