// Package server binds application handlers to the multiplexed transport.
//
// A Server listens via a transport connector (see the tcp and unix
// packages), accepts connections and runs one dispatcher per connection.
// Inbound frames carry serialized Message envelopes; the server unwraps
// them, invokes the registered handler and writes the result back under
// the originating request ID. Handler errors are returned to the caller
// inside an error envelope, they never terminate the connection.
//
// Usage:
//
//	s := server.NewServer(
//		config,
//		tcp.NewTCPServerConnector(),
//		serializer.NewJSONSerializer(),
//		server.HandlerFunc(func(ctx context.Context, req []byte) ([]byte, error) {
//			return bytes.ToUpper(req), nil
//		}),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
package server
