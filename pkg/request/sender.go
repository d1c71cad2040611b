package request

import (
	"context"
)

// Sender represents an HTTP transport, the client.Client is a default implementation using the standard net/http package.
//
// A Sender owns connection management, retries and timeouts.
// It must return a *Response whose body stream is unconsumed,
// interpretation of the stream is the caller's responsibility.
type Sender interface {
	// Send method sends the defined request and returns a single-use response handle.
	Send(ctx context.Context, request HTTPRequest) (response *Response, err error)
}
