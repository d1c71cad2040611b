// Package dispatch implements the request/response cycle on top of the request.Sender interface.
//
// The Dispatch function sends an immutable request descriptor and interprets
// the response body by a BodyHandler strategy, see the Discard, String, Bytes,
// Object, ObjectInto and StreamTransform constructors. The handler is invoked
// exactly once and the response stream is closed before Dispatch returns,
// whether the handler succeeds or fails. DispatchStatus is a status-only
// variant that tolerates all HTTP status codes.
//
// Call[T Result] binds a Sender, a descriptor and a handler into one
// reusable, sendable value with success/error callbacks.
//
// RunGroup, WaitGroup and Parallel are helpers for concurrent requests.
//
// Retries, timeouts and logging are not implemented here, they belong to the
// Sender implementation, see the client package.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/restflow/go-restflow/pkg/request"
)

// errorBodySnippetLimit is the maximum number of error body bytes attached to an HTTPStatusError.
const errorBodySnippetLimit = 512

// Result is the outcome of one dispatch.
// The response stream is fully consumed and closed by the time a Result exists.
type Result[T request.Result] struct {
	statusCode int
	header     http.Header
	body       T
}

// StatusCode method returns HTTP status code.
func (r *Result[T]) StatusCode() int {
	return r.statusCode
}

// Header method returns HTTP response headers.
func (r *Result[T]) Header() http.Header {
	return r.header
}

// Body method returns the response body mapped by the BodyHandler.
func (r *Result[T]) Body() T {
	return r.body
}

// Dispatch sends the request descriptor and maps the response body by the handler.
//
// The handler is invoked exactly once, only after the Sender call completes,
// and only for a success status code. A non-2xx status fails with an
// HTTPStatusError instead, carrying a snippet of the error body.
// The response stream is closed on every exit path, including a handler panic,
// so any bytes the handler wants to keep must be copied before it returns,
// see CopyToOwnedBuffer.
func Dispatch[T request.Result](ctx context.Context, sender request.Sender, reqDef request.HTTPRequest, handler BodyHandler[T]) (result *Result[T], err error) {
	if handler == nil {
		panic(fmt.Errorf("body handler is not set"))
	}

	// Stop if context has been cancelled
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Send request
	response, err := sender.Send(ctx, reqDef)
	if err != nil {
		return nil, transportError(reqDef, err)
	}

	// Release the stream on every exit path
	defer func() {
		if closeErr := response.Close(); closeErr != nil && err == nil {
			result = nil
			err = transportError(reqDef, closeErr)
		}
	}()

	// Generic HTTP error, the handler is not invoked
	if response.IsError() {
		return nil, statusError(reqDef, response)
	}

	// Map the body, the handler runs exactly once
	body, err := handler.Handle(response)
	if err != nil {
		var reqErr errorWithRequest
		if errors.As(err, &reqErr) {
			reqErr.setRequest(reqDef.Method(), reqDef.URL().String())
		}
		return nil, err
	}

	return &Result[T]{statusCode: response.StatusCode(), header: response.Header(), body: body}, nil
}

// DispatchStatus sends the request descriptor and returns the HTTP status code.
//
// Unlike Dispatch, it tolerates all status codes, 4xx/5xx responses do not
// fail. It is meant for existence checks and state probes. The response body
// is drained and the stream is closed before the method returns.
func DispatchStatus(ctx context.Context, sender request.Sender, reqDef request.HTTPRequest) (statusCode int, err error) {
	// Stop if context has been cancelled
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	response, err := sender.Send(ctx, reqDef)
	if err != nil {
		return 0, transportError(reqDef, err)
	}

	defer func() {
		if closeErr := response.Close(); closeErr != nil && err == nil {
			statusCode = 0
			err = transportError(reqDef, closeErr)
		}
	}()

	// Drain the body, so the connection can be reused
	if _, err := io.Copy(io.Discard, response.Stream()); err != nil {
		return 0, transportError(reqDef, err)
	}

	return response.StatusCode(), nil
}

// DispatchStream hands the raw response stream to the fn.
//
// There are scenarios where direct stream reading is needed, however it is
// better to use Dispatch with the Object handler where possible. The stream
// is closed when DispatchStream returns, fn must copy anything it retains.
func DispatchStream[T request.Result](ctx context.Context, sender request.Sender, reqDef request.HTTPRequest, fn func(stream io.Reader) (T, error)) (*Result[T], error) {
	return Dispatch(ctx, sender, reqDef, StreamTransform(fn))
}

func transportError(reqDef request.HTTPRequest, err error) *TransportError {
	// url.Error repeats the method and URL, keep only the cause
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return &TransportError{Method: reqDef.Method(), URL: reqDef.URL().String(), Err: err}
}

func statusError(reqDef request.HTTPRequest, response *request.Response) *HTTPStatusError {
	snippet, _ := io.ReadAll(io.LimitReader(response.Stream(), errorBodySnippetLimit))
	return &HTTPStatusError{
		Method:  reqDef.Method(),
		URL:     reqDef.URL().String(),
		Code:    response.StatusCode(),
		Snippet: strings.TrimSpace(string(snippet)),
	}
}
