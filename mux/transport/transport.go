package transport

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ValentinKolb/dMux/mux/codec"
	"github.com/ValentinKolb/dMux/mux/common"
)

const (
	// defaultBufferSize is used for the inbound accumulation buffer and
	// the outbound write buffer when no size is configured
	defaultBufferSize = 64 * 1024

	// maxBufferSize caps growth of the inbound buffer. One maximum-size
	// frame always fits
	maxBufferSize = codec.MaxPayloadSize + codec.MinFrameSize
)

// frameTransport implements IFrameTransport over one net.Conn.
type frameTransport struct {
	conn    net.Conn
	timeout time.Duration

	w       *bufio.Writer
	scratch []byte // reusable encode buffer, WriteFrame only

	// inbound accumulation buffer; buf[start:end] holds unconsumed bytes
	buf     []byte
	start   int
	end     int
	readErr error // deferred IO error, returned once buffered bytes are exhausted
}

// New creates a frame transport over conn. A timeout of zero disables
// read/write deadlines.
func New(conn net.Conn, timeout time.Duration) IFrameTransport {
	return &frameTransport{
		conn:    conn,
		timeout: timeout,
		w:       bufio.NewWriterSize(conn, defaultBufferSize),
		buf:     make([]byte, defaultBufferSize),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IFrameTransport)
// --------------------------------------------------------------------------

func (t *frameTransport) ReadFrame() (codec.Frame, error) {
	for {
		// Try to decode a frame from the buffered window first
		if t.end > t.start {
			frame, n, err := codec.Decode(t.buf[t.start:t.end])
			if err != nil {
				return codec.Frame{}, err
			}
			if n > 0 {
				t.start += n
				if t.start == t.end {
					t.start, t.end = 0, 0
				}
				common.FramesRead.Inc()
				return frame, nil
			}
		}

		// No complete frame buffered. If the connection already failed,
		// surface that now
		if t.readErr != nil {
			if t.readErr == io.EOF && t.end > t.start {
				// The stream ended in the middle of a frame
				return codec.Frame{}, io.ErrUnexpectedEOF
			}
			return codec.Frame{}, t.readErr
		}

		// Make room for more bytes: compact first, grow if still full
		if t.start > 0 {
			copy(t.buf, t.buf[t.start:t.end])
			t.end -= t.start
			t.start = 0
		}
		if t.end == len(t.buf) {
			if len(t.buf) >= maxBufferSize {
				return codec.Frame{}, fmt.Errorf("read frame: %w", common.ErrPayloadTooLarge)
			}
			size := len(t.buf) * 2
			if size > maxBufferSize {
				size = maxBufferSize
			}
			grown := make([]byte, size)
			copy(grown, t.buf[:t.end])
			t.buf = grown
		}

		if t.timeout > 0 {
			if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
				return codec.Frame{}, err
			}
		}

		n, err := t.conn.Read(t.buf[t.end:])
		t.end += n
		if n > 0 {
			common.BytesRead.Add(n)
		}
		if err != nil {
			// Decode whatever arrived before reporting the error
			t.readErr = err
		}
	}
}

func (t *frameTransport) WriteFrame(frame codec.Frame) error {
	encoded, err := codec.AppendEncode(t.scratch[:0], frame)
	if err != nil {
		return err
	}
	t.scratch = encoded[:0]

	if t.timeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
			return err
		}
	}
	if _, err := t.w.Write(encoded); err != nil {
		return err
	}

	common.FramesWritten.Inc()
	common.BytesWritten.Add(len(encoded))
	return nil
}

func (t *frameTransport) Flush() error {
	if t.timeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
			return err
		}
	}
	return t.w.Flush()
}

func (t *frameTransport) Close() error {
	return t.conn.Close()
}
