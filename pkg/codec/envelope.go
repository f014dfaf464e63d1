package codec

import (
	"encoding/binary"
	"fmt"
)

// EnvelopeSize is the size of the header preceding every message payload.
const EnvelopeSize = 3

// MessageType is the one-byte ASCII tag of a message.
type MessageType byte

// Message types understood by the decoder. Any other tag is skipped.
const (
	MsgFormat       MessageType = 'F'
	MsgData         MessageType = 'D'
	MsgInfo         MessageType = 'I'
	MsgParameter    MessageType = 'P'
	MsgAddLogged    MessageType = 'A'
	MsgRemoveLogged MessageType = 'R'
	MsgSync         MessageType = 'S'
	MsgDropout      MessageType = 'O'
	MsgLogging      MessageType = 'L'
)

var messageTypeNames = map[MessageType]string{
	MsgFormat:       "format",
	MsgData:         "data",
	MsgInfo:         "info",
	MsgParameter:    "parameter",
	MsgAddLogged:    "add_logged",
	MsgRemoveLogged: "remove_logged",
	MsgSync:         "sync",
	MsgDropout:      "dropout",
	MsgLogging:      "logging",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(t))
}

// Envelope is the decoded message header.
// Layout: [Size(2)][Type(1)]
type Envelope struct {
	Size uint16 // payload size in bytes, envelope excluded
	Type MessageType
}

// DecodeEnvelope decodes an envelope from the first EnvelopeSize bytes of data.
func DecodeEnvelope(data []byte) (Envelope, error) {
	if len(data) < EnvelopeSize {
		return Envelope{}, ErrShortPayload
	}
	return Envelope{
		Size: binary.LittleEndian.Uint16(data[0:2]),
		Type: MessageType(data[2]),
	}, nil
}
