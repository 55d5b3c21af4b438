package server

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dMux/mux/client"
	"github.com/ValentinKolb/dMux/mux/common"
	"github.com/ValentinKolb/dMux/mux/serializer"
	"github.com/ValentinKolb/dMux/mux/transport"
	"github.com/ValentinKolb/dMux/mux/transport/tcp"
	"github.com/ValentinKolb/dMux/mux/transport/unix"
)

// startServer starts a server on a random TCP port and returns its address.
func startServer(t *testing.T, handler IHandler) string {
	t.Helper()
	return startServerOn(t, handler, tcp.NewTCPServerConnector(), "127.0.0.1:0")
}

func startServerOn(t *testing.T, handler IHandler, connector transport.IServerConnector, endpoint string) string {
	t.Helper()

	cfg := common.ServerConfig{
		Transport: common.ServerTransportConfig{
			Endpoint:          endpoint,
			MaxWorkersPerConn: 4,
		},
		LogLevel: "error",
	}

	s := NewServer(cfg, connector, serializer.NewJSONSerializer(), handler)
	go func() {
		if err := s.Serve(); err != nil {
			t.Errorf("Serve failed: %v", err)
		}
	}()
	t.Cleanup(func() { _ = s.Close() })

	deadline := time.Now().Add(5 * time.Second)
	for s.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for server to listen")
		}
		time.Sleep(time.Millisecond)
	}
	return s.Addr().String()
}

// dialTest connects an envelope-aware client to the given address.
func dialTest(t *testing.T, connector transport.IClientConnector, addr string) *client.Client {
	t.Helper()

	cfg := common.ClientConfig{
		Transport: common.ClientTransportConfig{Endpoint: addr},
	}
	c, err := client.DialClient(connector, serializer.NewJSONSerializer(), cfg)
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func echoHandler() IHandler {
	return HandlerFunc(func(_ context.Context, req []byte) ([]byte, error) {
		return req, nil
	})
}

func TestServeEcho(t *testing.T) {
	addr := startServer(t, echoHandler())
	c := dialTest(t, tcp.NewTCPClientConnector(), addr)

	resp, err := c.Do(context.Background(), []byte("hello"))
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !bytes.Equal(resp, []byte("hello")) {
		t.Errorf("Expected %q, got %q", "hello", resp)
	}
}

func TestConcurrentCalls(t *testing.T) {
	addr := startServer(t, echoHandler())
	c := dialTest(t, tcp.NewTCPClientConnector(), addr)

	const calls = 16
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := []byte(fmt.Sprintf("payload-%d", i))
			resp, err := c.Do(context.Background(), payload)
			if err != nil {
				t.Errorf("Call %d failed: %v", i, err)
				return
			}
			if !bytes.Equal(resp, payload) {
				t.Errorf("Call %d: expected %q, got %q", i, payload, resp)
			}
		}(i)
	}
	wg.Wait()
}

func TestHandlerErrorKeepsConnectionUsable(t *testing.T) {
	addr := startServer(t, HandlerFunc(func(_ context.Context, req []byte) ([]byte, error) {
		if bytes.Equal(req, []byte("boom")) {
			return nil, fmt.Errorf("kaboom")
		}
		return req, nil
	}))
	c := dialTest(t, tcp.NewTCPClientConnector(), addr)

	// Handler error comes back as an error, not a dead connection
	if _, err := c.Do(context.Background(), []byte("boom")); err == nil {
		t.Fatal("Expected handler error")
	} else if err.Error() != "kaboom" {
		t.Errorf("Expected error %q, got %q", "kaboom", err.Error())
	}

	// The same connection still services requests
	resp, err := c.Do(context.Background(), []byte("still alive"))
	if err != nil {
		t.Fatalf("Follow-up call failed: %v", err)
	}
	if !bytes.Equal(resp, []byte("still alive")) {
		t.Errorf("Expected %q, got %q", "still alive", resp)
	}
}

func TestUnixSocketRoundTrip(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "mux.sock")
	addr := startServerOn(t, echoHandler(), unix.NewUnixServerConnector(), socket)
	c := dialTest(t, unix.NewUnixClientConnector(), addr)

	resp, err := c.Do(context.Background(), []byte("over unix"))
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !bytes.Equal(resp, []byte("over unix")) {
		t.Errorf("Expected %q, got %q", "over unix", resp)
	}
}

func TestTwoServersInOneProcess(t *testing.T) {
	// Starting a second server must not trip over process-wide logger
	// initialization
	echoAddr := startServer(t, echoHandler())
	upperAddr := startServer(t, HandlerFunc(func(_ context.Context, req []byte) ([]byte, error) {
		return bytes.ToUpper(req), nil
	}))

	echoClient := dialTest(t, tcp.NewTCPClientConnector(), echoAddr)
	upperClient := dialTest(t, tcp.NewTCPClientConnector(), upperAddr)

	resp, err := echoClient.Do(context.Background(), []byte("twin"))
	if err != nil {
		t.Fatalf("Call to first server failed: %v", err)
	}
	if !bytes.Equal(resp, []byte("twin")) {
		t.Errorf("Expected %q, got %q", "twin", resp)
	}

	resp, err = upperClient.Do(context.Background(), []byte("twin"))
	if err != nil {
		t.Fatalf("Call to second server failed: %v", err)
	}
	if !bytes.Equal(resp, []byte("TWIN")) {
		t.Errorf("Expected %q, got %q", "TWIN", resp)
	}
}

func TestCloseStopsServe(t *testing.T) {
	cfg := common.ServerConfig{
		Transport: common.ServerTransportConfig{
			Endpoint:          "127.0.0.1:0",
			MaxWorkersPerConn: 2,
		},
		LogLevel: "error",
	}
	s := NewServer(cfg, tcp.NewTCPServerConnector(), serializer.NewJSONSerializer(), echoHandler())

	served := make(chan error, 1)
	go func() { served <- s.Serve() }()

	deadline := time.Now().Add(5 * time.Second)
	for s.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for server to listen")
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}
