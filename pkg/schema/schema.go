// Package schema holds the composite type definitions declared in a log's
// definitions section and flattens them into fixed binary record layouts.
package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors
var (
	ErrMalformedDefinition = errors.New("malformed format definition")
	ErrUnknownType         = errors.New("unknown type")
	ErrNestingTooDeep      = errors.New("type nesting too deep")
	ErrLayoutTooLarge      = errors.New("layout larger than a data message")
)

// Field is one declared member of a composite type.
type Field struct {
	Type      string // primitive wire name or composite type name
	ArraySize int    // 1 for scalars
	Name      string
}

// IsArray reports whether the field declares more than one element.
func (f Field) IsArray() bool {
	return f.ArraySize > 1
}

// Composite is a named aggregate of primitive and composite fields.
type Composite struct {
	Name   string
	Fields []Field
}

// Parse decodes a format message payload of the form
// "name:type field;type[count] field;...".
func Parse(payload []byte) (*Composite, error) {
	name, body, ok := strings.Cut(string(payload), ":")
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: missing type name", ErrMalformedDefinition)
	}

	c := &Composite{Name: name}
	for _, decl := range strings.Split(body, ";") {
		if decl == "" {
			continue
		}
		f, err := parseField(decl)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", name, err)
		}
		c.Fields = append(c.Fields, f)
	}
	return c, nil
}

func parseField(decl string) (Field, error) {
	typ, name, ok := strings.Cut(decl, " ")
	if !ok || typ == "" || name == "" {
		return Field{}, fmt.Errorf("%w: field %q", ErrMalformedDefinition, decl)
	}

	open := strings.IndexByte(typ, '[')
	if open == -1 {
		return Field{Type: typ, ArraySize: 1, Name: name}, nil
	}

	end := strings.IndexByte(typ, ']')
	if end < open {
		return Field{}, fmt.Errorf("%w: field %q", ErrMalformedDefinition, decl)
	}
	n, err := strconv.Atoi(typ[open+1 : end])
	if err != nil || n < 1 {
		return Field{}, fmt.Errorf("%w: array size in %q", ErrMalformedDefinition, decl)
	}
	return Field{Type: typ[:open], ArraySize: n, Name: name}, nil
}

// String renders the composite back in definition syntax.
func (c *Composite) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte(':')
	for _, f := range c.Fields {
		b.WriteString(f.Type)
		if f.IsArray() {
			fmt.Fprintf(&b, "[%d]", f.ArraySize)
		}
		b.WriteByte(' ')
		b.WriteString(f.Name)
		b.WriteByte(';')
	}
	return b.String()
}
