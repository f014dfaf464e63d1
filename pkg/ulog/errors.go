package ulog

import (
	"errors"
	"fmt"

	"github.com/ssargent/flightlog/pkg/codec"
)

// Lookup errors returned by the decoded model.
var (
	ErrTopicNotFound  = errors.New("topic not found")
	ErrAmbiguousTopic = errors.New("ambiguous topic")
	ErrFieldNotFound  = errors.New("field not found")
	ErrNoTimestamp    = errors.New("topic has no timestamp field")
)

// FormatError means the input is not a log file this package can decode.
// It is fatal.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "not a recognized log file: " + e.Reason
}

// TruncatedError means the input ended before the fixed header was complete.
// It is fatal.
type TruncatedError struct {
	Got int // header bytes available
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("log truncated in header: got %d of %d bytes", e.Got, codec.HeaderSize)
}

// Warning is a non-fatal problem found while decoding. Warnings never stop a
// parse; they are collected on the Log in the order they were found.
type Warning interface {
	error
	warning()
}

// CompatibilityWarning reports a header version other than the one this
// decoder was written for. Decoding proceeds as if it were the known version.
type CompatibilityWarning struct {
	Version uint8
}

func (w *CompatibilityWarning) Error() string {
	return fmt.Sprintf("unknown file version %d, decoding anyway", w.Version)
}

func (*CompatibilityWarning) warning() {}

// MissingSubscriptionWarning reports data for a msg id that was never
// subscribed. It is raised once per id; the records are dropped.
type MissingSubscriptionWarning struct {
	MsgID uint16
}

func (w *MissingSubscriptionWarning) Error() string {
	return fmt.Sprintf("no subscription found for message id %d, file is most likely corrupt", w.MsgID)
}

func (*MissingSubscriptionWarning) warning() {}

// UnknownFormatWarning reports a subscription whose topic type could not be
// flattened. The msg id is ignored from then on.
type UnknownFormatWarning struct {
	Topic string
	MsgID uint16
	Err   error
}

func (w *UnknownFormatWarning) Error() string {
	return fmt.Sprintf("cannot subscribe %s (id %d): %v", w.Topic, w.MsgID, w.Err)
}

func (w *UnknownFormatWarning) Unwrap() error { return w.Err }

func (*UnknownFormatWarning) warning() {}

// MalformedMessageWarning reports a message whose payload could not be
// decoded. The message is skipped.
type MalformedMessageWarning struct {
	Type   codec.MessageType
	Offset int64 // file offset of the envelope
	Err    error
}

func (w *MalformedMessageWarning) Error() string {
	return fmt.Sprintf("malformed %s message at offset %d: %v", w.Type, w.Offset, w.Err)
}

func (w *MalformedMessageWarning) Unwrap() error { return w.Err }

func (*MalformedMessageWarning) warning() {}
