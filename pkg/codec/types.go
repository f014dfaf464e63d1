package codec

import (
	"encoding/binary"
	"math"
)

// PrimitiveType identifies one of the fixed-width scalar types a log schema
// can reference.
type PrimitiveType uint8

// Primitive types. The zero value is not a valid type.
const (
	Int8 PrimitiveType = iota + 1
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	Bool
	Char
)

// primitive describes how a single PrimitiveType is laid out on the wire.
type primitive struct {
	name   string
	width  int
	decode func(b []byte) any
	gather func(buf []byte, stride, offset, n int) any
}

// primitives is indexed by PrimitiveType. Entries never change after init.
var primitives = [...]primitive{
	Int8: {"int8_t", 1,
		func(b []byte) any { return decInt8(b) },
		func(buf []byte, s, o, n int) any { return gather(buf, s, o, n, decInt8) }},
	Uint8: {"uint8_t", 1,
		func(b []byte) any { return decUint8(b) },
		func(buf []byte, s, o, n int) any { return gather(buf, s, o, n, decUint8) }},
	Int16: {"int16_t", 2,
		func(b []byte) any { return decInt16(b) },
		func(buf []byte, s, o, n int) any { return gather(buf, s, o, n, decInt16) }},
	Uint16: {"uint16_t", 2,
		func(b []byte) any { return binary.LittleEndian.Uint16(b) },
		func(buf []byte, s, o, n int) any { return gather(buf, s, o, n, binary.LittleEndian.Uint16) }},
	Int32: {"int32_t", 4,
		func(b []byte) any { return decInt32(b) },
		func(buf []byte, s, o, n int) any { return gather(buf, s, o, n, decInt32) }},
	Uint32: {"uint32_t", 4,
		func(b []byte) any { return binary.LittleEndian.Uint32(b) },
		func(buf []byte, s, o, n int) any { return gather(buf, s, o, n, binary.LittleEndian.Uint32) }},
	Int64: {"int64_t", 8,
		func(b []byte) any { return decInt64(b) },
		func(buf []byte, s, o, n int) any { return gather(buf, s, o, n, decInt64) }},
	Uint64: {"uint64_t", 8,
		func(b []byte) any { return binary.LittleEndian.Uint64(b) },
		func(buf []byte, s, o, n int) any { return gather(buf, s, o, n, binary.LittleEndian.Uint64) }},
	Float32: {"float", 4,
		func(b []byte) any { return decFloat32(b) },
		func(buf []byte, s, o, n int) any { return gather(buf, s, o, n, decFloat32) }},
	Float64: {"double", 8,
		func(b []byte) any { return decFloat64(b) },
		func(buf []byte, s, o, n int) any { return gather(buf, s, o, n, decFloat64) }},
	Bool: {"bool", 1,
		func(b []byte) any { return decBool(b) },
		func(buf []byte, s, o, n int) any { return gather(buf, s, o, n, decBool) }},
	// char is stored as a signed byte, matching how producers declare it.
	Char: {"char", 1,
		func(b []byte) any { return decInt8(b) },
		func(buf []byte, s, o, n int) any { return gather(buf, s, o, n, decInt8) }},
}

var primitivesByName = func() map[string]PrimitiveType {
	m := make(map[string]PrimitiveType, len(primitives))
	for t := Int8; t <= Char; t++ {
		m[primitives[t].name] = t
	}
	return m
}()

// LookupPrimitive resolves a wire type name such as "uint64_t" or "float".
func LookupPrimitive(name string) (PrimitiveType, bool) {
	t, ok := primitivesByName[name]
	return t, ok
}

// Valid reports whether t is one of the known primitive types.
func (t PrimitiveType) Valid() bool {
	return t >= Int8 && t <= Char
}

// String returns the wire name of the type.
func (t PrimitiveType) String() string {
	if !t.Valid() {
		return "invalid"
	}
	return primitives[t].name
}

// Width returns the encoded size in bytes.
func (t PrimitiveType) Width() int {
	if !t.Valid() {
		return 0
	}
	return primitives[t].width
}

// Decode decodes a single little-endian value from the start of b. The
// concrete Go type of the result is int8, uint8, int16, uint16, int32,
// uint32, int64, uint64, float32, float64 or bool.
func (t PrimitiveType) Decode(b []byte) (any, error) {
	if !t.Valid() {
		return nil, ErrUnknownType
	}
	if len(b) < primitives[t].width {
		return nil, ErrShortPayload
	}
	return primitives[t].decode(b), nil
}

// Gather extracts n values of type t from buf, one per fixed-size record of
// length stride, starting at byte offset within each record. The result is a
// dense typed slice ([]int8, []uint16, []float32, ...). The caller must make
// sure buf holds at least n*stride bytes.
func (t PrimitiveType) Gather(buf []byte, stride, offset, n int) any {
	if !t.Valid() {
		return nil
	}
	return primitives[t].gather(buf, stride, offset, n)
}

func gather[T any](buf []byte, stride, offset, n int, dec func([]byte) T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = dec(buf[i*stride+offset:])
	}
	return out
}

func decInt8(b []byte) int8 { return int8(b[0]) }
func decUint8(b []byte) uint8 { return b[0] }
func decBool(b []byte) bool { return b[0] != 0 }
func decInt16(b []byte) int16 { return int16(binary.LittleEndian.Uint16(b)) }
func decInt32(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) }
func decInt64(b []byte) int64 { return int64(binary.LittleEndian.Uint64(b)) }
func decFloat32(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }
func decFloat64(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }
