package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dMux/mux/codec"
	"github.com/ValentinKolb/dMux/mux/common"
	"github.com/ValentinKolb/dMux/mux/transport"
)

// startDispatcher wires a Dispatcher to one end of a pipe and returns the
// peer-side transport plus a channel carrying Serve's final status.
func startDispatcher(t *testing.T, handle HandleFunc, maxWorkers int) (transport.IFrameTransport, *Dispatcher, chan error) {
	t.Helper()

	serverConn, peerConn := net.Pipe()

	d := New(transport.New(serverConn, 0), handle, maxWorkers)
	done := make(chan error, 1)
	go func() {
		done <- d.Serve()
	}()

	peer := transport.New(peerConn, 0)
	t.Cleanup(func() { peerConn.Close() })

	return peer, d, done
}

// writeRequest sends one request frame from the peer side.
func writeRequest(t *testing.T, peer transport.IFrameTransport, id uint32, payload string) {
	t.Helper()
	if err := peer.WriteFrame(codec.Frame{ID: id, Payload: []byte(payload)}); err != nil {
		t.Fatalf("Failed to write request %d: %v", id, err)
	}
	if err := peer.Flush(); err != nil {
		t.Fatalf("Failed to flush request %d: %v", id, err)
	}
}

// TestOutOfOrderCompletion submits requests 1,2,3 and forces their handlers
// to complete in order 3,2,1. The dispatcher must write the response frames
// in completion order, each under its original request ID.
func TestOutOfOrderCompletion(t *testing.T) {
	gates := map[string]chan struct{}{
		"req-1": make(chan struct{}),
		"req-2": make(chan struct{}),
		"req-3": make(chan struct{}),
	}
	entered := make(chan string, 3)

	handle := func(ctx context.Context, req []byte) []byte {
		entered <- string(req)
		<-gates[string(req)]
		return []byte("resp-" + string(req))
	}

	peer, _, done := startDispatcher(t, handle, 3)

	writeRequest(t, peer, 1, "req-1")
	writeRequest(t, peer, 2, "req-2")
	writeRequest(t, peer, 3, "req-3")

	// Wait until all three handlers are running concurrently
	for i := 0; i < 3; i++ {
		select {
		case <-entered:
		case <-time.After(5 * time.Second):
			t.Fatal("Timed out waiting for handler invocations")
		}
	}

	// Release the handlers in reverse order and check each response as it
	// is written
	expect := []struct {
		gate string
		id   uint32
	}{
		{"req-3", 3},
		{"req-2", 2},
		{"req-1", 1},
	}
	for _, step := range expect {
		close(gates[step.gate])

		frame, err := peer.ReadFrame()
		if err != nil {
			t.Fatalf("Failed to read response: %v", err)
		}
		if frame.ID != step.id {
			t.Errorf("Expected response for id %d, got %d", step.id, frame.ID)
		}
		if want := "resp-" + step.gate; string(frame.Payload) != want {
			t.Errorf("Expected payload %q, got %q", want, frame.Payload)
		}
	}

	peer.Close()
	if err := <-done; err != nil {
		t.Errorf("Expected clean close, got %v", err)
	}
}

// TestDuplicateRequestID checks that reusing an outstanding ID fails the
// connection and that the second frame is never dispatched to the handler.
func TestDuplicateRequestID(t *testing.T) {
	var invocations atomic.Int32

	handle := func(ctx context.Context, req []byte) []byte {
		invocations.Add(1)
		// Hold the ID outstanding until the connection is torn down
		<-ctx.Done()
		return nil
	}

	peer, _, done := startDispatcher(t, handle, 4)

	writeRequest(t, peer, 5, "first")
	writeRequest(t, peer, 5, "second")

	var dupErr common.DuplicateRequestIDError
	select {
	case err := <-done:
		if !errors.As(err, &dupErr) {
			t.Fatalf("Expected DuplicateRequestIDError, got %v", err)
		}
		if dupErr.ID != 5 {
			t.Errorf("Expected duplicate id 5, got %d", dupErr.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for dispatcher to fail the connection")
	}

	if n := invocations.Load(); n != 1 {
		t.Errorf("Expected exactly 1 handler invocation, got %d", n)
	}
}

// TestCloseCancelsInFlight checks that closing the dispatcher cancels the
// context of every in-flight handler invocation and discards late results.
func TestCloseCancelsInFlight(t *testing.T) {
	const inflight = 4

	entered := make(chan struct{}, inflight)
	cancelled := make(chan struct{}, inflight)

	handle := func(ctx context.Context, req []byte) []byte {
		entered <- struct{}{}
		<-ctx.Done()
		cancelled <- struct{}{}
		return []byte("late")
	}

	peer, d, done := startDispatcher(t, handle, inflight)

	for i := uint32(1); i <= inflight; i++ {
		writeRequest(t, peer, i, fmt.Sprintf("req-%d", i))
	}

	for i := 0; i < inflight; i++ {
		select {
		case <-entered:
		case <-time.After(5 * time.Second):
			t.Fatal("Timed out waiting for handler invocations")
		}
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Failed to close dispatcher: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil status after Close, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for Serve to return")
	}

	for i := 0; i < inflight; i++ {
		select {
		case <-cancelled:
		case <-time.After(5 * time.Second):
			t.Fatal("Timed out waiting for handler cancellation")
		}
	}

	if state := d.State(); state != StateClosed {
		t.Errorf("Expected state closed, got %s", state)
	}

	// The late results must have been discarded: the peer sees the
	// connection end without any response frames
	if _, err := peer.ReadFrame(); err == nil {
		t.Error("Expected no response frames after close")
	}
}

// TestWorkerBackpressure checks that at most maxWorkers handler
// invocations run concurrently and queued frames are serviced once slots
// free up.
func TestWorkerBackpressure(t *testing.T) {
	gate := make(chan struct{})
	var running atomic.Int32
	var peak atomic.Int32

	handle := func(ctx context.Context, req []byte) []byte {
		n := running.Add(1)
		// Track the high-water mark of concurrent invocations
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		<-gate
		running.Add(-1)
		return req
	}

	peer, _, done := startDispatcher(t, handle, 2)

	go func() {
		for i := uint32(1); i <= 6; i++ {
			if err := peer.WriteFrame(codec.Frame{ID: i, Payload: []byte("x")}); err != nil {
				t.Errorf("Failed to write request %d: %v", i, err)
				return
			}
			if err := peer.Flush(); err != nil {
				t.Errorf("Failed to flush request %d: %v", i, err)
				return
			}
		}
	}()

	// Release all workers and collect the six responses
	close(gate)
	seen := make(map[uint32]bool)
	for i := 0; i < 6; i++ {
		frame, err := peer.ReadFrame()
		if err != nil {
			t.Fatalf("Failed to read response %d: %v", i, err)
		}
		seen[frame.ID] = true
	}
	if len(seen) != 6 {
		t.Errorf("Expected 6 distinct response ids, got %d", len(seen))
	}

	if p := peak.Load(); p > 2 {
		t.Errorf("Expected at most 2 concurrent invocations, saw %d", p)
	}

	peer.Close()
	if err := <-done; err != nil {
		t.Errorf("Expected clean close, got %v", err)
	}
}
