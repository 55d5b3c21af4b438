// Package codec implements the wire frame format of the mux engine.
//
// A frame is the unit of wire data pairing a request ID with a payload:
//
//	[4 bytes]  request ID, big endian uint32
//	[N bytes]  UTF-8 payload, must not contain the terminator byte
//	[1 byte]   terminator ('\n')
//
// There is no length prefix; framing is delimiter based. The minimum
// decodable unit is 5 bytes (empty payload plus terminator). Because no
// escaping is defined, a payload containing the terminator byte cannot be
// represented; Encode rejects such payloads with ErrInvalidEncoding
// instead of silently producing two frames. Payloads that are not valid
// UTF-8 are likewise rejected, on both the encode and the decode side.
//
// Decode is stateless and never consumes a partial frame: it either
// consumes exactly one complete frame or reports that more bytes are
// needed. Buffering of partially received bytes belongs to the transport
// layer, not to this package.
package codec
