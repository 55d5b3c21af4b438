package transport

import (
	"net"

	"github.com/ValentinKolb/dMux/mux/codec"
	"github.com/ValentinKolb/dMux/mux/common"
)

// --------------------------------------------------------------------------
// Frame Transport
// --------------------------------------------------------------------------

// IFrameTransport is a duplex channel of decoded frames over one raw byte
// connection. The sequence of frames produced by ReadFrame is finite
// (bounded by the connection lifetime) and ordered by byte arrival.
type IFrameTransport interface {
	// ReadFrame blocks until one complete frame has been received and
	// returns it. It returns io.EOF when the peer closed the connection
	// cleanly, or the decode/IO error that ended the connection.
	ReadFrame() (codec.Frame, error)
	// WriteFrame encodes and buffers one frame for writing. Frames are
	// written FIFO relative to calls.
	WriteFrame(codec.Frame) error
	// Flush forces buffered outbound bytes onto the connection.
	Flush() error
	// Close closes the underlying connection. Pending ReadFrame calls
	// return with an error.
	Close() error
}

// --------------------------------------------------------------------------
// Connectors (dependency injection for tcp, unix, etc.)
// --------------------------------------------------------------------------

// IClientConnector defines the interface for transport-specific client
// connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the given endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// IServerConnector defines the interface for transport-specific server
// connection operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}
