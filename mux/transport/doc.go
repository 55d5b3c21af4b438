// Package transport provides the frame transport of the mux engine: it
// applies the codec package's frame format to a raw byte connection,
// buffering partially received bytes on the read side and batching frame
// writes on the write side.
//
// The package also defines the connector interfaces that supply raw
// connections to the engine, with concrete implementations in the tcp and
// unix subpackages. Connectors only dial, listen and tune sockets; all
// framing and correlation logic lives above them.
//
// Key Components:
//
//   - IFrameTransport: A duplex channel of decoded frames over one
//     connection. ReadFrame returns frames strictly in byte-arrival order;
//     WriteFrame is FIFO relative to calls. The transport imposes no
//     ordering logic of its own; deciding when a response is written
//     belongs to the dispatcher.
//
//   - IClientConnector / IServerConnector: Transport-specific dial/listen
//     operations, used for dependency injection by the client and server
//     packages.
//
// An IFrameTransport is owned by exactly one dispatcher. ReadFrame must be
// called from a single goroutine; callers that write from multiple
// goroutines must serialize WriteFrame/Flush themselves.
package transport
