// Package mux provides a multiplexed request/response transport engine.
// It lets a single bidirectional byte connection carry many concurrent
// logical requests whose responses may arrive in any order, and reunites
// each response with its originating request via a per-frame request ID.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities shared across the engine,
//     including the Message envelope, configuration structures, logging
//     and metrics.
//
//   - codec: The wire frame format (a 4-byte big-endian request ID,
//     a UTF-8 payload and a single terminator byte) with stateless
//     encode/decode operations.
//
//   - transport: The frame transport over a raw byte connection, plus
//     pluggable connector implementations (TCP, Unix sockets).
//
//   - serializer: Message envelope serialization with multiple format
//     options (JSON, GOB, Binary) for converting between Message values
//     and frame payloads.
//
//   - dispatch: The server-role dispatcher that tracks outstanding request
//     IDs, invokes the request handler concurrently and writes responses
//     back in completion order.
//
//   - client: The client-role dispatcher that allocates request IDs,
//     tracks pending calls and demultiplexes inbound responses.
//
//   - server: Connection-acceptance glue binding a listener, a dispatcher
//     per connection and the user-supplied request handler together.
package mux
