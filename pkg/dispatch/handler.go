package dispatch

import (
	"fmt"
	"io"

	"github.com/restflow/go-restflow/pkg/request"
)

// BodyHandler converts the single-use response stream into a typed value.
//
// A handler is invoked at most once per dispatch. It must fully consume the
// stream and must not let it escape its own scope, the stream is closed as
// soon as the Dispatch call returns. Use CopyToOwnedBuffer for bytes that
// should outlive the call.
//
// Whether an empty body is an error is an explicit property of each handler
// variant: Discard and StreamTransform accept an empty body, String, Bytes,
// Object and ObjectInto fail with an EmptyBodyError unless created with the
// AllowEmpty option.
type BodyHandler[T request.Result] interface {
	Handle(response *request.Response) (T, error)
}

// HandlerOption configures a BodyHandler variant.
type HandlerOption func(c *handlerConfig)

type handlerConfig struct {
	allowEmpty bool
}

// AllowEmpty makes a body-expecting handler treat an empty body as a valid
// absence: String maps it to "", Bytes to nil, Object to a zero value and
// ObjectInto leaves the existing instance untouched.
func AllowEmpty() HandlerOption {
	return func(c *handlerConfig) {
		c.allowEmpty = true
	}
}

func newHandlerConfig(opts []HandlerOption) handlerConfig {
	c := handlerConfig{}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// Discard returns a handler that reads and discards the body.
// Use it when only the status code or a side effect matters.
func Discard() BodyHandler[request.NoResult] {
	return discardHandler{}
}

type discardHandler struct{}

func (discardHandler) Handle(response *request.Response) (request.NoResult, error) {
	if _, err := io.Copy(io.Discard, response.Stream()); err != nil {
		return request.NoResult{}, err
	}
	return request.NoResult{}, nil
}

// String returns a handler that materializes the whole body as text,
// typically for diagnostic bodies.
func String(opts ...HandlerOption) BodyHandler[string] {
	return stringHandler{config: newHandlerConfig(opts)}
}

type stringHandler struct {
	config handlerConfig
}

func (h stringHandler) Handle(response *request.Response) (string, error) {
	data, err := io.ReadAll(response.Stream())
	if err != nil {
		return "", err
	}
	if len(data) == 0 && !h.config.allowEmpty {
		return "", &EmptyBodyError{}
	}
	return string(data), nil
}

// Bytes returns a handler that materializes the whole body as a byte slice.
// The returned slice is owned by the caller.
func Bytes(opts ...HandlerOption) BodyHandler[[]byte] {
	return bytesHandler{config: newHandlerConfig(opts)}
}

type bytesHandler struct {
	config handlerConfig
}

func (h bytesHandler) Handle(response *request.Response) ([]byte, error) {
	data, err := io.ReadAll(response.Stream())
	if err != nil {
		return nil, err
	}
	if len(data) == 0 && !h.config.allowEmpty {
		return nil, &EmptyBodyError{}
	}
	return data, nil
}

// Object returns a handler that deserializes the body into a new instance of T.
// Malformed body fails with a DeserializationError.
func Object[T request.Result](opts ...HandlerOption) BodyHandler[*T] {
	return objectHandler[T]{config: newHandlerConfig(opts)}
}

type objectHandler[T request.Result] struct {
	config handlerConfig
}

func (h objectHandler[T]) Handle(response *request.Response) (*T, error) {
	data, err := io.ReadAll(response.Stream())
	if err != nil {
		return nil, err
	}
	target := new(T)
	if len(data) == 0 {
		if h.config.allowEmpty {
			return target, nil
		}
		return nil, &EmptyBodyError{}
	}
	if err := json.Unmarshal(data, target); err != nil {
		return nil, &DeserializationError{Err: err}
	}
	return target, nil
}

// ObjectInto returns a handler that deserializes the body into the existing
// instance and returns the same reference. Merge semantics apply: fields
// absent from the body leave the corresponding fields untouched, so an
// already-held object can be partially refreshed without reallocation.
func ObjectInto[T request.Result](existing *T, opts ...HandlerOption) BodyHandler[*T] {
	if existing == nil {
		panic(fmt.Errorf("existing instance must be defined by a pointer"))
	}
	return objectIntoHandler[T]{existing: existing, config: newHandlerConfig(opts)}
}

type objectIntoHandler[T request.Result] struct {
	existing *T
	config   handlerConfig
}

func (h objectIntoHandler[T]) Handle(response *request.Response) (*T, error) {
	data, err := io.ReadAll(response.Stream())
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		if h.config.allowEmpty {
			return h.existing, nil
		}
		return nil, &EmptyBodyError{}
	}
	if err := json.Unmarshal(data, h.existing); err != nil {
		return nil, &DeserializationError{Err: err}
	}
	return h.existing, nil
}

// StreamTransform returns a handler that hands the raw stream to the fn and
// returns its result. The stream is valid only during the fn invocation,
// bytes retained past it must be copied, see CopyToOwnedBuffer.
func StreamTransform[T request.Result](fn func(stream io.Reader) (T, error)) BodyHandler[T] {
	if fn == nil {
		panic(fmt.Errorf("stream transform function is not set"))
	}
	return streamTransformHandler[T]{fn: fn}
}

type streamTransformHandler[T request.Result] struct {
	fn func(stream io.Reader) (T, error)
}

func (h streamTransformHandler[T]) Handle(response *request.Response) (T, error) {
	return h.fn(response.Stream())
}
