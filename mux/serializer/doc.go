// Package serializer provides Message envelope serialization for the mux
// engine with multiple format options. Serializers convert between
// common.Message values and the byte payloads carried inside frames.
//
// The wire format constrains payloads: they must be valid UTF-8 and must
// not contain the frame terminator byte. The JSON serializer satisfies
// both properties naturally (encoding/json escapes control characters
// inside strings and emits no raw newlines). The GOB and Binary
// serializers produce arbitrary bytes and therefore armor their output
// with base64, trading ~33% size overhead for wire safety.
//
// Available serializers:
//
//   - NewJSONSerializer: human readable, no armoring overhead
//
//   - NewGOBSerializer: Go-native encoding, base64 armored
//
//   - NewBinarySerializer: compact custom format, base64 armored;
//     fastest and smallest before armoring
package serializer
