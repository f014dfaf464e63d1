package ulog

import (
	"bufio"
	"errors"
	"io"

	"github.com/ssargent/flightlog/pkg/codec"
)

// errTruncated signals a message cut off by the end of the input.
var errTruncated = errors.New("truncated message")

// message is one framed message. payload is only valid until the next call
// to messageReader.next, unless the message was pushed back.
type message struct {
	codec.Envelope
	payload []byte
	offset  int64
}

// messageReader frames the message stream that follows the file header.
type messageReader struct {
	reader  *bufio.Reader
	offset  int64
	env     [codec.EnvelopeSize]byte
	scratch []byte
	pending *message
}

func newMessageReader(r *bufio.Reader, offset int64) *messageReader {
	return &messageReader{reader: r, offset: offset}
}

// next returns the next message. It returns io.EOF at a clean end of input
// and errTruncated if the input ends inside a message.
func (r *messageReader) next() (*message, error) {
	if m := r.pending; m != nil {
		r.pending = nil
		return m, nil
	}

	n, err := io.ReadFull(r.reader, r.env[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			r.offset += int64(n)
			return nil, errTruncated
		}
		return nil, err
	}
	env, _ := codec.DecodeEnvelope(r.env[:])
	m := &message{Envelope: env, offset: r.offset}
	r.offset += int64(n)

	if cap(r.scratch) < int(env.Size) {
		r.scratch = make([]byte, env.Size)
	}
	m.payload = r.scratch[:env.Size]
	n, err = io.ReadFull(r.reader, m.payload)
	r.offset += int64(n)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errTruncated
		}
		return nil, err
	}
	return m, nil
}

// unread makes m the result of the following call to next.
func (r *messageReader) unread(m *message) {
	r.pending = m
}

// Offset returns the number of bytes consumed so far, header included.
func (r *messageReader) Offset() int64 {
	return r.offset
}
