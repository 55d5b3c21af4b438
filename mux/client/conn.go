package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dMux/mux/codec"
	"github.com/ValentinKolb/dMux/mux/common"
	"github.com/ValentinKolb/dMux/mux/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("mux/client")

// result carries the outcome of one request
type result struct {
	payload []byte
	err     error
}

// Conn is one multiplexed client connection. It may be used by any number
// of goroutines concurrently; each in-flight request occupies one pending
// slot keyed by its request ID.
type Conn struct {
	tr transport.IFrameTransport

	// pending maps outstanding request IDs to their response slots
	pending *xsync.MapOf[uint32, chan result]

	nextID atomic.Uint32
	sendMu sync.Mutex // serializes frame writes to the transport

	readerDone chan struct{} // closed when the reader goroutine exits
	closeErr   error         // final status, valid after readerDone closes
	closeOnce  sync.Once
}

// NewConn creates a client connection over an established frame transport
// and starts its reader goroutine.
func NewConn(tr transport.IFrameTransport) *Conn {
	c := &Conn{
		tr:         tr,
		pending:    xsync.NewMapOf[uint32, chan result](),
		readerDone: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Dial connects to an endpoint using the given connector and returns a
// ready-to-use client connection.
func Dial(connector transport.IClientConnector, config common.ClientConfig) (*Conn, error) {
	conn, err := connector.Connect(config.Transport.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s via %s: %w",
			config.Transport.Endpoint, connector.GetName(), err)
	}

	if err := connector.UpgradeConnection(conn, config); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %w",
			config.Transport.Endpoint, err)
	}

	timeout := time.Duration(config.TimeoutSecond) * time.Second
	return NewConn(transport.New(conn, timeout)), nil
}

// --------------------------------------------------------------------------
// Calls
// --------------------------------------------------------------------------

// Call sends one raw request payload and blocks until the matching
// response arrives, the context is done or the connection ends.
func (c *Conn) Call(ctx context.Context, payload []byte) ([]byte, error) {
	id := c.allocateID()

	// Register the pending slot before writing, so the response cannot
	// race its own registration. Buffered so the reader never blocks on
	// an abandoned call
	ch := make(chan result, 1)
	c.pending.Store(id, ch)

	c.sendMu.Lock()
	err := c.tr.WriteFrame(codec.Frame{ID: id, Payload: payload})
	if err == nil {
		err = c.tr.Flush()
	}
	c.sendMu.Unlock()

	if err != nil {
		c.pending.Delete(id)
		return nil, fmt.Errorf("failed to send request %d: %w", id, err)
	}

	select {
	case r := <-ch:
		return r.payload, r.err
	case <-ctx.Done():
		// Give up the slot; a response that still arrives is dropped as
		// unexpected
		c.pending.Delete(id)
		return nil, ctx.Err()
	}
}

// allocateID returns a request ID that is not currently pending. Policy:
// monotonically increasing counter with wraparound, skipping any value
// still outstanding. With 2^32 IDs and bounded in-flight requests the loop
// terminates after a handful of probes at worst.
func (c *Conn) allocateID() uint32 {
	for {
		id := c.nextID.Add(1)
		if _, busy := c.pending.Load(id); !busy {
			return id
		}
	}
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Close closes the connection. Every still-pending call resolves with
// common.ErrConnectionClosed.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.tr.Close()
	})
	<-c.readerDone
	return err
}

// Err returns the final status of the connection once it has ended:
// common.ErrConnectionClosed for a clean shutdown, or the underlying
// IO/decode error. It returns nil while the connection is alive.
func (c *Conn) Err() error {
	select {
	case <-c.readerDone:
		return c.closeErr
	default:
		return nil
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readLoop reads response frames and resolves the matching pending slots
// until the connection ends, then fails all remaining slots.
func (c *Conn) readLoop() {
	var finalErr error

	for {
		frame, err := c.tr.ReadFrame()
		if err != nil {
			finalErr = err
			break
		}

		// Resolve the matching pending slot. A response for an unknown ID
		// is notable but not fatal: the peer may have sent a stale or
		// duplicate response
		if ch, ok := c.pending.LoadAndDelete(frame.ID); ok {
			ch <- result{payload: frame.Payload}
		} else {
			common.UnexpectedResponses.Inc()
			Logger.Warningf("dropping frame: %v", common.UnexpectedResponseIDError{ID: frame.ID})
		}
	}

	// Map transport-level endings onto the terminal outcome callers see
	c.closeErr = common.ErrConnectionClosed
	if !isClosedError(finalErr) {
		c.closeErr = finalErr
		Logger.Errorf("connection failed: %v", finalErr)
	}

	// No pending call may be left unresolved
	c.pending.Range(func(id uint32, ch chan result) bool {
		c.pending.Delete(id)
		ch <- result{err: c.closeErr}
		return true
	})

	close(c.readerDone)
}

// isClosedError reports whether err is a normal end-of-connection signal.
func isClosedError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed)
}
