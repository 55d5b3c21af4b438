package dispatch

import (
	"context"
	"errors"
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

var Logger = logger.GetLogger("mux/dispatch")

// HandleFunc processes one decoded request payload and returns the
// response payload. It is invoked once per accepted request and may run
// concurrently with other invocations for the same connection. The context
// is cancelled when the connection closes; an invocation that ignores
// cancellation keeps running, but its result is discarded.
//
// HandleFunc must always produce a response payload: application-level
// errors are encoded into the payload by the caller (see the server
// package), they are never connection-fatal.
type HandleFunc func(ctx context.Context, req []byte) (resp []byte)

// --------------------------------------------------------------------------
// Dispatcher state
// --------------------------------------------------------------------------

// State describes the lifecycle of a Dispatcher.
type State int32

const (
	// StateActive accepts new frames and services pending ones
	StateActive State = iota
	// StateDraining accepts no new work, waits for in-flight workers
	StateDraining
	// StateClosed is terminal
	StateClosed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Dispatcher
// --------------------------------------------------------------------------

// Dispatcher multiplexes concurrent requests over one connection in the
// server role. It exclusively owns its transport and its table of
// outstanding request IDs; no other component may touch either.
type Dispatcher struct {
	tr     transport.IFrameTransport
	handle HandleFunc

	// outstanding holds the request IDs currently owned by an in-progress
	// handler invocation. Marker only, no payload is retained
	outstanding *xsync.MapOf[uint32, struct{}]

	sem     chan struct{} // counting semaphore capping concurrent workers
	wg      sync.WaitGroup
	writeMu sync.Mutex // serializes response writes to the transport

	ctx    context.Context
	cancel context.CancelFunc

	state     atomic.Int32
	closeOnce sync.Once
}

// New creates a Dispatcher for one connection. maxWorkers caps the number
// of concurrently running handler invocations (minimum 1).
func New(tr transport.IFrameTransport, handle HandleFunc, maxWorkers int) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		tr:          tr,
		handle:      handle,
		outstanding: xsync.NewMapOf[uint32, struct{}](),
		sem:         make(chan struct{}, maxWorkers),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Serve reads and services frames until the connection ends, then drains
// in-flight work and closes the transport. It returns the final status of
// the connection: nil for a clean close by the peer, a
// common.DuplicateRequestIDError for the protocol violation of reusing an
// outstanding ID, or the IO/decode error that ended the connection.
func (d *Dispatcher) Serve() error {
	err := d.readLoop()

	// Draining: stop accepting work, cancel in-flight invocations. Their
	// results, if any still arrive, are discarded
	d.state.Store(int32(StateDraining))
	d.cancel()
	_ = d.tr.Close()

	d.wg.Wait()
	d.state.Store(int32(StateClosed))

	if isClosedError(err) {
		return nil
	}
	return err
}

// Close closes the connection immediately. In-flight handler invocations
// are cancelled; Serve returns once they have drained.
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() {
		d.state.CompareAndSwap(int32(StateActive), int32(StateDraining))
		d.cancel()
		_ = d.tr.Close()
	})
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readLoop accepts inbound frames until the transport fails or the peer
// violates the protocol.
func (d *Dispatcher) readLoop() error {
	for {
		frame, err := d.tr.ReadFrame()
		if err != nil {
			return err
		}

		// An ID already outstanding is a protocol violation by the peer:
		// fatal, and the frame is not dispatched
		if _, dup := d.outstanding.LoadOrStore(frame.ID, struct{}{}); dup {
			common.DuplicateRequests.Inc()
			return common.DuplicateRequestIDError{ID: frame.ID}
		}

		// Backpressure: block until a worker slot frees up
		select {
		case d.sem <- struct{}{}:
		case <-d.ctx.Done():
			return common.ErrConnectionClosed
		}

		d.wg.Add(1)
		go d.invoke(frame)
	}
}

// invoke runs one handler invocation and writes its response. Runs in a
// worker goroutine; completion order across workers is arbitrary.
func (d *Dispatcher) invoke(frame codec.Frame) {
	defer func() {
		<-d.sem
		d.wg.Done()
	}()

	start := time.Now()
	resp := d.handle(d.ctx, frame.Payload)
	common.RequestDuration.UpdateDuration(start)
	Logger.Debugf("handled request id %d in %s", frame.ID, time.Since(start))

	// Late result after close: discard, never write to a closed transport
	select {
	case <-d.ctx.Done():
		Logger.Debugf("discarding late result for request id %d", frame.ID)
		return
	default:
	}

	// The ID is released before the response is written; it is owned by
	// this invocation up to this point
	d.outstanding.Delete(frame.ID)

	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if err := d.tr.WriteFrame(codec.Frame{ID: frame.ID, Payload: resp}); err != nil {
		Logger.Errorf("failed to write response for request id %d: %v", frame.ID, err)
		return
	}
	if err := d.tr.Flush(); err != nil {
		Logger.Errorf("failed to flush response for request id %d: %v", frame.ID, err)
	}
}

// isClosedError reports whether err is a normal end-of-connection signal.
func isClosedError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, common.ErrConnectionClosed)
}
