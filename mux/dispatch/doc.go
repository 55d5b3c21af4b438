// Package dispatch implements the server-role multiplexer core of the mux
// engine: the per-connection Dispatcher that tracks outstanding request
// IDs, invokes the request handler concurrently and writes responses back
// in completion order.
//
// One Dispatcher exclusively owns one frame transport and one table of
// outstanding request IDs. For every inbound frame the dispatcher checks
// the uniqueness invariant (an ID may not be reused by the peer while a
// prior request with that ID is still outstanding), marks the ID
// outstanding and hands the payload to the handler in a worker goroutine.
// A counting semaphore caps concurrent workers per connection; when the
// cap is reached no further frames are read, which propagates backpressure
// to the peer through the transport.
//
// Completion order of responses is entirely decoupled from arrival order:
// each worker writes its response as soon as its handler returns,
// serialized by a write mutex. Closing the connection cancels the context
// passed to all in-flight handler invocations; results that arrive after
// close are discarded, never written.
//
// Dispatcher lifecycle: Active (reading and servicing frames), Draining
// (no new work accepted, waiting for in-flight workers) and Closed.
package dispatch
