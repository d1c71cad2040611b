// Package request defines immutable HTTP request descriptors, see NewHTTPRequest function.
//
// A descriptor only describes an outbound request: method, URL, headers and body.
// It is sent by a Sender implementation; the client.Client is the default
// implementation of the request.Sender interface based on the standard net/http package.
//
// Sending a descriptor yields a *Response: a single-use handle to the response
// status code, headers and body stream. Interpretation of the body stream
// belongs to the dispatch package.
package request

// Result - any value.
type Result = any

// NoResult type.
type NoResult struct{}
