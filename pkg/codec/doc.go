// Package codec provides the wire-level decoders for flight log files.
//
// A log file is a fixed header followed by a stream of tagged messages.
// This package knows how to decode each of those pieces from a byte slice; it
// does not read from streams and keeps no state between calls. Stream
// handling, schema resolution and demultiplexing live in package ulog.
//
// # File Header
//
//	[Magic(7)][Version(1)][StartTimestamp(8)]
//
// Fields:
//   - Magic: the bytes 0x55 0x4c 0x6f 0x67 0x01 0x12 0x35 ("ULog" plus three signature bytes)
//   - Version: file format version, 0 for every file this decoder was written against
//   - StartTimestamp: 64-bit unsigned microseconds since boot (little-endian)
//
// # Message Envelope
//
// Every message is framed by a 3-byte envelope:
//
//	[Size(2)][Type(1)][Payload(Size)]
//
// Size counts payload bytes only. Type is a single ASCII tag:
//
//	'F' format      composite type definition ("name:type field;type field;...")
//	'I' info        typed key/value metadata
//	'P' parameter   typed key/value parameter
//	'A' add logged  subscription of a msg id to a topic instance
//	'R' remove      end of a subscription
//	'D' data        one raw record for a subscribed msg id
//	'L' logging     text log line with a syslog-style level
//	'O' dropout     gap in the data stream
//	'S' sync        resynchronization marker
//
// Messages with any other tag must be skipped using Size alone.
//
// # Primitive Types
//
// Composite schemas bottom out in a closed set of little-endian primitive
// types. The table below is fixed at compile time:
//
//	int8_t  uint8_t   1 byte
//	int16_t uint16_t  2 bytes
//	int32_t uint32_t  4 bytes
//	int64_t uint64_t  8 bytes
//	float             4 bytes (IEEE 754)
//	double            8 bytes (IEEE 754)
//	bool              1 byte, non-zero is true
//	char              1 byte, decoded as int8
//
// PrimitiveType.Decode decodes one value; PrimitiveType.Gather extracts a dense
// typed column from a buffer of fixed-size records.
//
// # Error Handling
//
// Decoders return one of the *Error sentinels (ErrShortHeader, ErrBadMagic,
// ErrShortPayload, ErrMalformed, ErrUnknownType). Callers decide whether a
// decoding failure is fatal.
package codec
