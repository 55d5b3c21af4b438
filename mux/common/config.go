package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Shared socket configuration structs
// --------------------------------------------------------------------------

// SocketConf holds socket buffer settings shared by all stream transports
type SocketConf struct {
	// WriteBufferSize is the socket write buffer size in bytes (0 = OS default)
	WriteBufferSize int
	// ReadBufferSize is the socket read buffer size in bytes (0 = OS default)
	ReadBufferSize int
}

// TCPConf holds TCP-specific tuning options (ignored for unix sockets)
type TCPConf struct {
	// TCPNoDelay disables Nagle's algorithm when true
	TCPNoDelay bool
	// TCPKeepAliveSec enables TCP keep-alive with the given period (0 = off)
	TCPKeepAliveSec int
	// TCPLingerSec sets the socket linger time (negative = OS default)
	TCPLingerSec int
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerTransportConfig holds the transport parameters of a server
type ServerTransportConfig struct {
	// Endpoint is the address to listen on (host:port or socket path)
	Endpoint string
	// MaxWorkersPerConn caps the number of concurrently running handler
	// invocations per connection. Inbound frames beyond the cap are not
	// read until a worker slot frees up (backpressure)
	MaxWorkersPerConn int

	SocketConf
	TCPConf
}

// ServerConfig holds all configuration parameters for a mux server.
type ServerConfig struct {
	Transport ServerTransportConfig

	// TimeoutSecond is the per-read/per-write deadline on connections (0 = none)
	TimeoutSecond int

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection, addField := configWriters(&sb)

	addSection("Mux Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(c.Transport.MaxWorkersPerConn))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	addSection("Socket")
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.Transport.WriteBufferSize))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.Transport.ReadBufferSize))
	addField("TCP NoDelay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the transport parameters of a client
type ClientTransportConfig struct {
	// Endpoint is the address of the server (host:port or socket path)
	Endpoint string

	SocketConf
	TCPConf
}

// ClientConfig holds all configuration parameters for a mux client.
type ClientConfig struct {
	Transport ClientTransportConfig

	// TimeoutSecond is the per-read/per-write deadline on the connection (0 = none)
	TimeoutSecond int

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection, addField := configWriters(&sb)

	addSection("Mux Client")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	addSection("Socket")
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.Transport.WriteBufferSize))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.Transport.ReadBufferSize))
	addField("TCP NoDelay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// configWriters returns helper functions for consistent config formatting
func configWriters(sb *strings.Builder) (addSection func(string), addField func(string, string)) {
	addSection = func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField = func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}
	return
}
