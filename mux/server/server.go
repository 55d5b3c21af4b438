package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/dMux/mux/common"
	"github.com/ValentinKolb/dMux/mux/dispatch"
	"github.com/ValentinKolb/dMux/mux/serializer"
	"github.com/ValentinKolb/dMux/mux/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("mux/server")

// Server accepts connections via a transport connector and services
// multiplexed requests on each of them with the registered handler.
type Server struct {
	config    common.ServerConfig
	connector transport.IServerConnector
	ser       serializer.ISerializer
	handler   IHandler

	mu       sync.Mutex
	listener net.Listener
	closed   bool

	// conns holds the dispatcher of every live connection so Close can
	// shut them down
	conns *xsync.MapOf[*dispatch.Dispatcher, struct{}]
	wg    sync.WaitGroup
}

// NewServer creates a new mux server. It takes a config, a transport
// connector, a serializer and the application handler as parameters.
func NewServer(
	config common.ServerConfig,
	connector transport.IServerConnector,
	ser serializer.ISerializer,
	handler IHandler,
) *Server {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &Server{
		config:    config,
		connector: connector,
		ser:       ser,
		handler:   handler,
		conns:     xsync.NewMapOf[*dispatch.Dispatcher, struct{}](),
	}
}

// Addr returns the address the server is listening on, or nil before
// Serve has created the listener. Useful with ":0" endpoints.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve starts listening and accepting connections. It blocks until
// Close is called or the listener fails.
func (s *Server) Serve() error {
	common.InitLoggers(s.config.LogLevel)
	Logger.Infof(s.config.String())

	listener, err := s.connector.Listen(s.config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = listener.Close()
		return common.ErrConnectionClosed
	}
	s.listener = listener
	s.mu.Unlock()

	Logger.Infof("Starting %s server on %s with %d workers per connection",
		s.connector.GetName(), s.config.Transport.Endpoint, s.config.Transport.MaxWorkersPerConn)

	for {
		conn, err := listener.Accept()
		if err != nil {
			// Listener closed by Close
			if errors.Is(err, net.ErrClosed) {
				break
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}

	// Wait for all connections to drain before returning
	s.wg.Wait()
	return nil
}

// Close stops the listener and closes all live connections. In-flight
// handler invocations are cancelled; Serve returns once they drained.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		_ = listener.Close()
	}
	s.conns.Range(func(d *dispatch.Dispatcher, _ struct{}) bool {
		_ = d.Close()
		return true
	})
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection services one accepted connection until it ends.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	remote := conn.RemoteAddr()

	if err := s.connector.UpgradeConnection(conn, s.config); err != nil {
		Logger.Errorf("Failed to upgrade connection from %s: %v", remote, err)
		_ = conn.Close()
		return
	}

	timeout := time.Duration(s.config.TimeoutSecond) * time.Second
	tr := transport.New(conn, timeout)
	d := dispatch.New(tr, s.handleRequest, s.config.Transport.MaxWorkersPerConn)

	s.conns.Store(d, struct{}{})
	defer s.conns.Delete(d)

	Logger.Infof("Accepted connection from %s", remote)

	// Final status of the connection: nil means the peer closed it cleanly
	if err := d.Serve(); err != nil {
		Logger.Errorf("Connection from %s failed: %v", remote, err)
	} else {
		Logger.Infof("Connection from %s closed", remote)
	}
}

// handleRequest unwraps one request envelope, invokes the handler and
// wraps the result. It always returns a response payload: envelope and
// handler errors are reported to the caller as error envelopes.
func (s *Server) handleRequest(ctx context.Context, req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	if err := s.ser.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else if msg.MsgType != common.MsgTRequest {
		respMsg = common.NewErrorResponse(fmt.Sprintf("unexpected message type %s in request", msg.MsgType))
	} else {
		body, err := s.handler.Handle(ctx, msg.Body)
		respMsg = common.NewResponse(body, err)
	}

	val, err := s.ser.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("Failed to serialize response: %v", err)
		fallback := common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err))
		if val, err = s.ser.Serialize(*fallback); err != nil {
			Logger.Errorf("Failed to serialize error response: %v", err)
			return nil
		}
	}
	return val
}
