package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/ValentinKolb/dMux/mux/common"
)

const (
	// HeaderSize is the size of the fixed request ID header in bytes
	HeaderSize = 4

	// Terminator is the byte ending every frame. It is consumed by Decode
	// and excluded from the payload
	Terminator byte = '\n'

	// MinFrameSize is the smallest complete frame: empty payload plus terminator
	MinFrameSize = HeaderSize + 1

	// MaxPayloadSize bounds a single payload. Without a length prefix the
	// decoder would otherwise buffer without limit while scanning for a
	// terminator that never comes
	MaxPayloadSize = 16 << 20 // 16 MB
)

// Frame is one complete, self-delimited unit of wire data pairing a
// request ID with a payload. Frames are treated as immutable once created.
type Frame struct {
	ID      uint32
	Payload []byte
}

// String returns a short representation for logging.
func (f Frame) String() string {
	return fmt.Sprintf("[Frame id=%d len=%d]", f.ID, len(f.Payload))
}

// --------------------------------------------------------------------------
// Encode
// --------------------------------------------------------------------------

// Encode serializes a frame into a freshly allocated byte slice.
func Encode(f Frame) ([]byte, error) {
	return AppendEncode(make([]byte, 0, HeaderSize+len(f.Payload)+1), f)
}

// AppendEncode appends the wire representation of f to dst and returns the
// extended slice. It performs no buffering of its own.
//
// The payload is validated before any bytes are appended: it must be valid
// UTF-8 and must not contain the terminator byte, since the delimiter-based
// framing has no escaping and such a payload would be indistinguishable
// from two frames on the wire.
func AppendEncode(dst []byte, f Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return dst, fmt.Errorf("encode frame id %d: %w", f.ID, common.ErrPayloadTooLarge)
	}
	if bytes.IndexByte(f.Payload, Terminator) >= 0 {
		return dst, fmt.Errorf("encode frame id %d: payload contains terminator byte: %w", f.ID, common.ErrInvalidEncoding)
	}
	if !utf8.Valid(f.Payload) {
		return dst, fmt.Errorf("encode frame id %d: payload is not valid UTF-8: %w", f.ID, common.ErrInvalidEncoding)
	}

	dst = binary.BigEndian.AppendUint32(dst, f.ID)
	dst = append(dst, f.Payload...)
	dst = append(dst, Terminator)
	return dst, nil
}

// --------------------------------------------------------------------------
// Decode
// --------------------------------------------------------------------------

// Decode attempts to decode one complete frame from the start of buf.
//
// It returns the decoded frame and the number of bytes consumed. A consumed
// count of zero with a nil error means the buffer does not yet hold a
// complete frame and more bytes are needed; no bytes are consumed in that
// case. Unconsumed bytes after the first frame remain available for the
// next invocation.
//
// A non-nil error (malformed UTF-8, oversized payload) is fatal for the
// connection: framing alignment cannot be trusted afterwards.
func Decode(buf []byte) (Frame, int, error) {
	// Enforce the minimum frame length before scanning for a terminator,
	// so we never scan into bytes that belong to the ID header
	if len(buf) < MinFrameSize {
		return Frame{}, 0, nil
	}

	idx := bytes.IndexByte(buf[HeaderSize:], Terminator)
	if idx < 0 {
		if len(buf)-HeaderSize > MaxPayloadSize {
			return Frame{}, 0, fmt.Errorf("decode frame: %w", common.ErrPayloadTooLarge)
		}
		return Frame{}, 0, nil
	}

	id := binary.BigEndian.Uint32(buf[:HeaderSize])
	raw := buf[HeaderSize : HeaderSize+idx]

	if !utf8.Valid(raw) {
		return Frame{}, 0, fmt.Errorf("decode frame id %d: payload is not valid UTF-8: %w", id, common.ErrInvalidEncoding)
	}

	// Copy the payload so the frame does not alias the caller's buffer
	payload := make([]byte, len(raw))
	copy(payload, raw)

	// Consume the header, payload and the terminator byte
	return Frame{ID: id, Payload: payload}, HeaderSize + idx + 1, nil
}
