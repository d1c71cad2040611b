package request

import (
	"errors"
	"io"
	"net/http"
)

// ErrStreamClosed is returned by reads from a released response stream.
var ErrStreamClosed = errors.New("response stream is already closed")

// Response is a single-use handle to one HTTP response.
//
// The body stream may be consumed at most once and is valid only until the
// Close method is called, reads after Close fail with ErrStreamClosed.
// Close is idempotent, it is safe to call it multiple times.
// Anything that should outlive the handle must be copied out of the stream
// before Close, see dispatch.CopyToOwnedBuffer.
type Response struct {
	statusCode int
	header     http.Header
	body       io.ReadCloser
	bytesRead  int64
	closed     bool
}

// NewResponse wraps a standard HTTP response into a single-use handle.
// Ownership of the body stream passes to the returned value.
func NewResponse(raw *http.Response) *Response {
	body := raw.Body
	if body == nil {
		body = http.NoBody
	}
	return &Response{statusCode: raw.StatusCode, header: raw.Header, body: body}
}

// NewResponseFromParts creates a response handle from parts.
// It is intended for tests and custom Sender implementations.
func NewResponseFromParts(statusCode int, header http.Header, body io.ReadCloser) *Response {
	if body == nil {
		body = http.NoBody
	}
	return &Response{statusCode: statusCode, header: header, body: body}
}

// StatusCode method returns HTTP status code.
func (r *Response) StatusCode() int {
	return r.statusCode
}

// Header method returns HTTP response headers.
func (r *Response) Header() http.Header {
	if r.header == nil {
		r.header = make(http.Header)
	}
	return r.header
}

// IsSuccess method returns true if HTTP status `code >= 200 and <= 299` otherwise false.
func (r *Response) IsSuccess() bool {
	return r.statusCode > 199 && r.statusCode < 300
}

// IsError method returns true if HTTP status `code >= 400` otherwise false.
func (r *Response) IsError() bool {
	return r.statusCode > 399
}

// Stream method returns the single-use body stream.
func (r *Response) Stream() io.Reader {
	return stream{response: r}
}

// BytesRead method returns the number of body bytes read so far.
func (r *Response) BytesRead() int64 {
	return r.bytesRead
}

// Close releases the body stream. It is safe to call Close multiple times.
func (r *Response) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.body.Close()
}

// stream counts bytes read and blocks reads after the handle is closed.
type stream struct {
	response *Response
}

func (s stream) Read(p []byte) (int, error) {
	if s.response.closed {
		return 0, ErrStreamClosed
	}
	n, err := s.response.body.Read(p)
	s.response.bytesRead += int64(n)
	return n, err
}
