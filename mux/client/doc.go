// Package client implements the client-role dispatcher of the mux engine:
// it issues concurrent requests over one connection and demultiplexes the
// responses, which may arrive in any order.
//
// A Conn owns one frame transport, a table of pending requests keyed by
// request ID and a single reader goroutine. Request IDs are allocated from
// a monotonically increasing counter with wraparound, skipping any value
// that is still pending. Each call registers a pending slot before its
// frame is written, so a fast response can never race its own
// registration.
//
// A response frame whose ID matches no pending slot is dropped: the
// anomaly is logged and counted but the connection stays up, since the
// peer may legitimately have produced a stale or duplicate response. When
// the connection ends, every still-pending call resolves with
// common.ErrConnectionClosed so that no caller waits forever.
//
// Client wraps a Conn with Message envelope handling: request bodies are
// wrapped, serialized and sent, and error-variant responses are unwrapped
// back into Go errors.
package client
