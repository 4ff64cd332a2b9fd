package pluginproto

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocol is matched by every ProtocolError.
	ErrProtocol = errors.New("protocol error")

	// ErrMalformed is returned for truncated or otherwise unparsable buffers.
	ErrMalformed = errors.New("malformed message")

	// ErrEmptyMessage is returned when an envelope carries no variant.
	ErrEmptyMessage = errors.New("message has no variant")

	// ErrUnknownVariant is returned for variants this schema version does not know.
	ErrUnknownVariant = errors.New("unknown message variant")
)

// ProtocolError describes a failure to encode or decode a message.
type ProtocolError struct {
	Op  string // "encode request", "decode response", ...
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() []error {
	return []error{ErrProtocol, e.Err}
}

func protocolErr(op string, err error) error {
	return &ProtocolError{Op: op, Err: err}
}
