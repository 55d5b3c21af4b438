package serializer

import "encoding/base64"

// base64 armoring for serializers whose raw output is not frame safe
// (arbitrary bytes may contain the frame terminator or invalid UTF-8)

var armorEncoding = base64.RawStdEncoding

// armor encodes raw bytes into a frame-safe representation
func armor(raw []byte) []byte {
	out := make([]byte, armorEncoding.EncodedLen(len(raw)))
	armorEncoding.Encode(out, raw)
	return out
}

// dearmor decodes a frame payload back into raw bytes
func dearmor(b []byte) ([]byte, error) {
	out := make([]byte, armorEncoding.DecodedLen(len(b)))
	n, err := armorEncoding.Decode(out, b)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
