package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dMux/mux/common"
	"github.com/ValentinKolb/dMux/mux/serializer"
	"github.com/ValentinKolb/dMux/mux/transport"
)

// Client wraps a Conn with Message envelope handling. Request bodies are
// wrapped into request envelopes, responses are unwrapped and error
// variants are turned back into Go errors.
type Client struct {
	conn *Conn
	ser  serializer.ISerializer
}

// NewClient creates an envelope-aware client over an existing connection.
func NewClient(conn *Conn, ser serializer.ISerializer) *Client {
	return &Client{conn: conn, ser: ser}
}

// DialClient connects to an endpoint and returns an envelope-aware client.
//
// Usage:
//
//	c, err := client.DialClient(
//		tcp.NewTCPClientConnector(),
//		serializer.NewJSONSerializer(),
//		config,
//	)
func DialClient(connector transport.IClientConnector, ser serializer.ISerializer, config common.ClientConfig) (*Client, error) {
	conn, err := Dial(connector, config)
	if err != nil {
		return nil, err
	}
	return NewClient(conn, ser), nil
}

// Do sends one request body and returns the response body. A handler
// error on the server side is returned as an error here; the connection
// stays usable afterwards.
func (c *Client) Do(ctx context.Context, body []byte) ([]byte, error) {
	req, err := c.ser.Serialize(*common.NewRequest(body))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request: %w", err)
	}

	payload, err := c.conn.Call(ctx, req)
	if err != nil {
		return nil, err
	}

	var msg common.Message
	if err := c.ser.Deserialize(payload, &msg); err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %w", err)
	}

	switch msg.MsgType {
	case common.MsgTResponse:
		return msg.Body, nil
	case common.MsgTError:
		return nil, errors.New(msg.Err)
	default:
		return nil, fmt.Errorf("unexpected message type %s in response", msg.MsgType)
	}
}

// Conn returns the underlying multiplexed connection.
func (c *Client) Conn() *Conn {
	return c.conn
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
