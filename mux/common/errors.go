package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Sentinel Errors
// --------------------------------------------------------------------------

var (
	// ErrInvalidEncoding is returned when a frame payload is not valid for
	// the wire format (malformed UTF-8, or a terminator byte inside the
	// payload on the encode side). It is fatal for the connection: once
	// framing alignment is in doubt, no recovery is attempted.
	ErrInvalidEncoding = errors.New("invalid payload encoding")

	// ErrPayloadTooLarge is returned when a single frame payload exceeds
	// the configured maximum. Fatal for the connection since the decoder
	// cannot resynchronize past an unbounded payload.
	ErrPayloadTooLarge = errors.New("frame payload too large")

	// ErrConnectionClosed is the terminal outcome delivered to every
	// still-pending caller when a connection ends. The engine never
	// retries; retry policy belongs to a layer above.
	ErrConnectionClosed = errors.New("connection closed")
)

// --------------------------------------------------------------------------
// Typed Errors
// --------------------------------------------------------------------------

// DuplicateRequestIDError reports that the peer sent a request with an ID
// that is already outstanding on this connection. This is a protocol
// violation and fatal for the connection.
type DuplicateRequestIDError struct {
	ID uint32
}

func (e DuplicateRequestIDError) Error() string {
	return fmt.Sprintf("duplicate request id %d", e.ID)
}

// UnexpectedResponseIDError reports a response frame referencing an ID that
// is not pending. Non-fatal: the frame is dropped and the connection stays
// up, the condition is surfaced for observability only.
type UnexpectedResponseIDError struct {
	ID uint32
}

func (e UnexpectedResponseIDError) Error() string {
	return fmt.Sprintf("unexpected response id %d", e.ID)
}
