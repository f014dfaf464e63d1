package codec

import (
	"encoding/binary"
	"strings"
)

// stringArrayPrefix marks an info/parameter value that is a fixed-size char
// array, decoded as text.
const stringArrayPrefix = "char["

// KeyValue is a decoded info or parameter message.
// Layout: [KeyLen(1)]["<type> <key>"(KeyLen)][Value]
type KeyValue struct {
	Type  string
	Key   string
	Value any // string, a primitive Go value, or []byte for unrecognized types
}

// DecodeKeyValue decodes an info or parameter payload. A value whose type is
// neither a char array nor a primitive is returned as opaque bytes.
func DecodeKeyValue(payload []byte) (KeyValue, error) {
	if len(payload) < 1 {
		return KeyValue{}, ErrShortPayload
	}
	keyLen := int(payload[0])
	if len(payload) < 1+keyLen {
		return KeyValue{}, ErrShortPayload
	}

	typ, key, ok := strings.Cut(string(payload[1:1+keyLen]), " ")
	if !ok || typ == "" || key == "" {
		return KeyValue{}, ErrMalformed
	}
	raw := payload[1+keyLen:]

	kv := KeyValue{Type: typ, Key: key}
	if strings.HasPrefix(typ, stringArrayPrefix) {
		kv.Value = string(raw)
		return kv, nil
	}
	if t, known := LookupPrimitive(typ); known {
		v, err := t.Decode(raw)
		if err != nil {
			return KeyValue{}, err
		}
		kv.Value = v
		return kv, nil
	}
	kv.Value = append([]byte(nil), raw...)
	return kv, nil
}

// AddLogged is a decoded subscription message.
// Layout: [MultiID(1)][MsgID(2)][Name]
type AddLogged struct {
	MultiID uint8
	MsgID   uint16
	Name    string
}

// DecodeAddLogged decodes an AddLoggedMessage payload.
func DecodeAddLogged(payload []byte) (AddLogged, error) {
	if len(payload) < 3 {
		return AddLogged{}, ErrShortPayload
	}
	name := string(payload[3:])
	if name == "" {
		return AddLogged{}, ErrMalformed
	}
	return AddLogged{
		MultiID: payload[0],
		MsgID:   binary.LittleEndian.Uint16(payload[1:3]),
		Name:    name,
	}, nil
}

// DecodeRemoveLogged decodes a RemoveLoggedMessage payload and returns the msg id.
// Layout: [MsgID(2)]
func DecodeRemoveLogged(payload []byte) (uint16, error) {
	if len(payload) < 2 {
		return 0, ErrShortPayload
	}
	return binary.LittleEndian.Uint16(payload[0:2]), nil
}

// DecodeData splits a data payload into its msg id and the raw record bytes.
// The record aliases payload.
// Layout: [MsgID(2)][Record]
func DecodeData(payload []byte) (uint16, []byte, error) {
	if len(payload) < 2 {
		return 0, nil, ErrShortPayload
	}
	return binary.LittleEndian.Uint16(payload[0:2]), payload[2:], nil
}

// Logging is a decoded text log line.
// Layout: [Level(1)][Timestamp(8)][Text]
type Logging struct {
	Level     byte
	Timestamp uint64
	Text      string
}

// DecodeLogging decodes a logging payload.
func DecodeLogging(payload []byte) (Logging, error) {
	if len(payload) < 9 {
		return Logging{}, ErrShortPayload
	}
	return Logging{
		Level:     payload[0],
		Timestamp: binary.LittleEndian.Uint64(payload[1:9]),
		Text:      string(payload[9:]),
	}, nil
}

// DecodeDropout decodes a dropout payload and returns the duration in milliseconds.
// Layout: [Duration(2)]
func DecodeDropout(payload []byte) (uint16, error) {
	if len(payload) < 2 {
		return 0, ErrShortPayload
	}
	return binary.LittleEndian.Uint16(payload[0:2]), nil
}
