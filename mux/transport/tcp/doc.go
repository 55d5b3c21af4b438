// Package tcp implements TCP socket-based connectors for the mux engine.
// It provides concrete implementations of the transport package's connector
// interfaces optimized for TCP connections.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of transport.IClientConnector
//
//   - serverConnector: TCP-specific implementation of transport.IServerConnector
//
// UpgradeConnection applies the TCPConf and SocketConf settings from the
// engine configuration: TCP_NODELAY, keep-alive period, linger time and
// socket buffer sizes.
package tcp
