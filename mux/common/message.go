package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single envelope used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Body carries the application payload: the request data for
	// MsgTRequest, the result for MsgTResponse
	Body []byte `json:"body,omitempty"`

	// Err is empty if no error occurred, otherwise it contains the error
	// message of the handler (MsgTError responses)
	Err string `json:"err,omitempty"`

	// Meta information, unused by the engine itself. Can be used by
	// custom handlers to carry additional data
	Meta []byte `json:"meta,omitempty"`
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewRequest creates a new request envelope
func NewRequest(body []byte) *Message {
	return &Message{
		MsgType: MsgTRequest,
		Body:    body,
	}
}

// NewResponse creates a new response envelope. If err is non-nil the
// envelope becomes an error variant and the body is dropped.
func NewResponse(body []byte, err error) *Message {
	if err != nil {
		return &Message{
			MsgType: MsgTError,
			Err:     err.Error(),
		}
	}
	return &Message{
		MsgType: MsgTResponse,
		Body:    body,
	}
}

// NewErrorResponse creates a new error response envelope
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of envelope exchanged between client and server.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTRequest:
		return "request"
	case MsgTResponse:
		return "response"
	case MsgTError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "request":
		*t = MsgTRequest
	case "response":
		*t = MsgTResponse
	case "error":
		*t = MsgTError
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	MsgTUnknown  MessageType = iota
	MsgTRequest              // Client -> Server request
	MsgTResponse             // Server -> Client result
	MsgTError                // Server -> Client handler error
)
