package serializer

import "github.com/ValentinKolb/dMux/mux/common"

// ISerializer is the interface for all Message envelope serializers.
// Implementations must produce frame-safe payloads: valid UTF-8 without
// the frame terminator byte.
type ISerializer interface {
	// Serialize serializes a Message into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into a Message
	// It takes a byte array and a pointer to a Message as parameters
	// It returns an error if any
	Deserialize(b []byte, msg *common.Message) error
}
