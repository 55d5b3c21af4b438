package server

import "context"

// IHandler processes one request body and returns the response body.
// Handle is invoked once per accepted request and may run concurrently
// with other invocations, also for the same connection. The context is
// cancelled when the connection closes.
//
// A returned error is sent back to the caller as an error envelope; it
// does not affect the connection or other in-flight requests.
type IHandler interface {
	Handle(ctx context.Context, req []byte) ([]byte, error)
}

// HandlerFunc adapts a plain function to the IHandler interface.
type HandlerFunc func(ctx context.Context, req []byte) ([]byte, error)

// Handle calls f(ctx, req).
func (f HandlerFunc) Handle(ctx context.Context, req []byte) ([]byte, error) {
	return f(ctx, req)
}
