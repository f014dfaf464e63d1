// Package ulogtest builds synthetic log files for tests.
package ulogtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ssargent/flightlog/pkg/codec"
)

// Builder assembles a log file in memory. Methods append in call order and
// return the builder for chaining.
type Builder struct {
	buf bytes.Buffer
}

// New starts a log with a valid header.
func New(startTimestamp uint64) *Builder {
	return NewWithVersion(codec.CurrentVersion, startTimestamp)
}

// NewWithVersion starts a log with the given header version byte.
func NewWithVersion(version uint8, startTimestamp uint64) *Builder {
	b := &Builder{}
	b.buf.Write(codec.Magic)
	b.buf.WriteByte(version)
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], startTimestamp)
	b.buf.Write(ts[:])
	return b
}

// Message appends a raw message with the given type and payload.
func (b *Builder) Message(t codec.MessageType, payload []byte) *Builder {
	var env [codec.EnvelopeSize]byte
	binary.LittleEndian.PutUint16(env[0:2], uint16(len(payload)))
	env[2] = byte(t)
	b.buf.Write(env[:])
	b.buf.Write(payload)
	return b
}

// Format appends a format definition such as "name:uint64_t timestamp;".
func (b *Builder) Format(def string) *Builder {
	return b.Message(codec.MsgFormat, []byte(def))
}

// Info appends an info message. value is encoded according to typ.
func (b *Builder) Info(typ, key string, value any) *Builder {
	return b.Message(codec.MsgInfo, keyValue(typ, key, value))
}

// Param appends a parameter message. value is encoded according to typ.
func (b *Builder) Param(typ, key string, value any) *Builder {
	return b.Message(codec.MsgParameter, keyValue(typ, key, value))
}

// AddLogged subscribes msgID to the named topic instance.
func (b *Builder) AddLogged(multiID uint8, msgID uint16, name string) *Builder {
	payload := []byte{multiID, 0, 0}
	binary.LittleEndian.PutUint16(payload[1:], msgID)
	payload = append(payload, name...)
	return b.Message(codec.MsgAddLogged, payload)
}

// RemoveLogged ends the subscription for msgID.
func (b *Builder) RemoveLogged(msgID uint16) *Builder {
	payload := make([]byte, 2)
	binary.LittleEndian.PutUint16(payload, msgID)
	return b.Message(codec.MsgRemoveLogged, payload)
}

// Data appends one data record for msgID. Use Record to encode fields.
func (b *Builder) Data(msgID uint16, record []byte) *Builder {
	payload := make([]byte, 2, 2+len(record))
	binary.LittleEndian.PutUint16(payload, msgID)
	payload = append(payload, record...)
	return b.Message(codec.MsgData, payload)
}

// Logging appends a text log line.
func (b *Builder) Logging(level byte, timestamp uint64, text string) *Builder {
	payload := make([]byte, 9, 9+len(text))
	payload[0] = level
	binary.LittleEndian.PutUint64(payload[1:], timestamp)
	payload = append(payload, text...)
	return b.Message(codec.MsgLogging, payload)
}

// Dropout appends a dropout marker of the given duration in milliseconds.
func (b *Builder) Dropout(durationMs uint16) *Builder {
	payload := make([]byte, 2)
	binary.LittleEndian.PutUint16(payload, durationMs)
	return b.Message(codec.MsgDropout, payload)
}

// Raw appends bytes verbatim, e.g. to simulate a cut-off file.
func (b *Builder) Raw(p []byte) *Builder {
	b.buf.Write(p)
	return b
}

// Bytes returns the assembled file.
func (b *Builder) Bytes() []byte {
	return append([]byte(nil), b.buf.Bytes()...)
}

// Reader returns a reader over the assembled file.
func (b *Builder) Reader() *bytes.Reader {
	return bytes.NewReader(b.Bytes())
}

// Record encodes values little-endian in order. Supported types are the Go
// equivalents of the primitive wire types plus []byte for raw filler.
func Record(values ...any) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		buf.Write(encode(v))
	}
	return buf.Bytes()
}

func keyValue(typ, key string, value any) []byte {
	typeKey := typ + " " + key
	payload := []byte{byte(len(typeKey))}
	payload = append(payload, typeKey...)
	return append(payload, encode(value)...)
}

func encode(v any) []byte {
	switch x := v.(type) {
	case int8:
		return []byte{byte(x)}
	case uint8:
		return []byte{x}
	case bool:
		if x {
			return []byte{1}
		}
		return []byte{0}
	case int16:
		return binary.LittleEndian.AppendUint16(nil, uint16(x))
	case uint16:
		return binary.LittleEndian.AppendUint16(nil, x)
	case int32:
		return binary.LittleEndian.AppendUint32(nil, uint32(x))
	case uint32:
		return binary.LittleEndian.AppendUint32(nil, x)
	case int64:
		return binary.LittleEndian.AppendUint64(nil, uint64(x))
	case uint64:
		return binary.LittleEndian.AppendUint64(nil, x)
	case float32:
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(x))
	case float64:
		return binary.LittleEndian.AppendUint64(nil, math.Float64bits(x))
	case string:
		return []byte(x)
	case []byte:
		return x
	default:
		panic(fmt.Sprintf("ulogtest: cannot encode %T", v))
	}
}
