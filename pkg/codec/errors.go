package codec

// Errors returned by the wire decoders.
var (
	ErrShortHeader  = &Error{"header too short"}
	ErrBadMagic     = &Error{"not a recognized log file"}
	ErrShortPayload = &Error{"payload too short"}
	ErrMalformed    = &Error{"malformed message payload"}
	ErrUnknownType  = &Error{"unknown primitive type"}
)

// Error represents a wire decoding error
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
