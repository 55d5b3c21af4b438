// Package unix implements Unix domain socket-based connectors for the mux
// engine. It provides concrete implementations of the transport package's
// connector interfaces for local inter-process communication.
//
// Unix sockets avoid the TCP/IP stack entirely, which makes them the
// fastest option when client and server run on the same host. The endpoint
// in the configuration is interpreted as a filesystem path; a stale socket
// file from a previous run is removed before listening.
package unix
