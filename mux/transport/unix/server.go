package unix

import (
	"fmt"
	"net"
	"os"

	"github.com/ValentinKolb/dMux/mux/common"
	"github.com/ValentinKolb/dMux/mux/transport"
)

// serverConnector implements the IServerConnector interface for Unix sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "unix"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	// Remove a stale socket file from a previous run
	if err := os.Remove(config.Transport.Endpoint); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove stale socket file: %w", err)
	}

	listener, err := net.Listen("unix", config.Transport.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create unix socket: %w", err)
	}
	return listener, nil
}

func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.ServerConfig) error {
	return upgrade(conn, config.Transport.SocketConf)
}

// --------------------------------------------------------------------------
// Server Connector Factory Method
// --------------------------------------------------------------------------

// NewUnixServerConnector creates a new Unix socket server connector
func NewUnixServerConnector() transport.IServerConnector {
	return &serverConnector{}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// upgrade applies socket buffer settings to an established connection
func upgrade(conn net.Conn, socketConf common.SocketConf) error {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil // Not a unix connection, nothing to upgrade
	}

	if socketConf.WriteBufferSize > 0 {
		if err := unixConn.SetWriteBuffer(socketConf.WriteBufferSize); err != nil {
			return err
		}
	}

	if socketConf.ReadBufferSize > 0 {
		if err := unixConn.SetReadBuffer(socketConf.ReadBufferSize); err != nil {
			return err
		}
	}

	return nil
}
