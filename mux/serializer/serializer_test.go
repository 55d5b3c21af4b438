package serializer

import (
	"bytes"
	"reflect"
	"testing"
	"unicode/utf8"

	"github.com/ValentinKolb/dMux/mux/codec"
	"github.com/ValentinKolb/dMux/mux/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() ISerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTRequest},

		// Request with a body
		{
			MsgType: common.MsgTRequest,
			Body:    []byte("test-request-body"),
		},

		// Regular response
		{
			MsgType: common.MsgTResponse,
			Body:    []byte("test-response-body"),
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Err:     "test error message",
		},

		// Message with all fields filled, including bytes that are not
		// frame safe on their own
		{
			MsgType: common.MsgTResponse,
			Body:    []byte("line one\nline two\x00\xff"),
			Err:     "also with\nnewline",
			Meta:    []byte{0x00, 0x0A, 0xFF},
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !messagesEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestSerializerFrameSafety checks that every serializer produces payloads
// that are legal for the wire format: valid UTF-8 without the frame
// terminator byte, even when the message contains raw binary data.
func TestSerializerFrameSafety(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				if !utf8.Valid(data) {
					t.Errorf("Message %d serialized to invalid UTF-8", i)
				}
				if bytes.IndexByte(data, codec.Terminator) >= 0 {
					t.Errorf("Message %d serialized output contains the frame terminator", i)
				}

				// And the payload must actually survive framing
				if _, err := codec.Encode(codec.Frame{ID: 1, Payload: data}); err != nil {
					t.Errorf("Message %d payload rejected by the codec: %v", i, err)
				}
			}
		})
	}
}

// messagesEqual compares two messages, treating nil and empty byte slices
// as equal (gob does not distinguish them)
func messagesEqual(a, b common.Message) bool {
	if a.MsgType != b.MsgType || a.Err != b.Err {
		return false
	}
	if !bytesEqualLoose(a.Body, b.Body) || !bytesEqualLoose(a.Meta, b.Meta) {
		return false
	}
	return true
}

func bytesEqualLoose(a, b []byte) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
