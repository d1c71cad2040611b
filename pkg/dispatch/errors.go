package dispatch

import (
	"fmt"
	"net/http"
)

// errorWithRequest allows injection of the offending request context into an error,
// it is implemented by error types created outside the Dispatch function.
type errorWithRequest interface {
	error
	setRequest(method string, url string)
}

// TransportError represents a network-level failure of the Sender.
// It is never retried by the dispatch package, retries belong to the Sender.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf(`request %s "%s" failed: %s`, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPStatusError represents a non-2xx response to a body-expecting dispatch.
// Snippet contains the leading bytes of the error body, if any.
type HTTPStatusError struct {
	Method  string
	URL     string
	Code    int
	Snippet string
}

func (e *HTTPStatusError) Error() string {
	msg := fmt.Sprintf(`request %s "%s" failed: %d %s`, e.Method, e.URL, e.Code, http.StatusText(e.Code))
	if e.Snippet != "" {
		msg += fmt.Sprintf(`, body: "%s"`, e.Snippet)
	}
	return msg
}

// StatusCode returns HTTP status code.
func (e *HTTPStatusError) StatusCode() int {
	return e.Code
}

// EmptyBodyError signals that a body-expecting BodyHandler received zero body bytes.
// Handlers that tolerate an empty body, see the AllowEmpty option, never produce it.
type EmptyBodyError struct {
	Method string
	URL    string
}

func (e *EmptyBodyError) Error() string {
	if e.Method == "" {
		return "response has an empty body, but the body handler requires one"
	}
	return fmt.Sprintf(`request %s "%s" returned an empty body, but the body handler requires one`, e.Method, e.URL)
}

func (e *EmptyBodyError) setRequest(method string, url string) {
	e.Method = method
	e.URL = url
}

// DeserializationError signals that body bytes were present but did not
// conform to the requested type. It is distinct from I/O errors, which
// surface as a TransportError.
type DeserializationError struct {
	Method string
	URL    string
	Err    error
}

func (e *DeserializationError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("cannot decode response body: %s", e.Err)
	}
	return fmt.Sprintf(`cannot decode response body of %s "%s": %s`, e.Method, e.URL, e.Err)
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

func (e *DeserializationError) setRequest(method string, url string) {
	e.Method = method
	e.URL = url
}
