package dispatch

import (
	"context"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/restflow/go-restflow/pkg/request"
)

const (
	CallSpanName = "restflow.go.client.call"
	// extra attributes for DataDog.
	attrSpanKind            = "span.kind"
	attrSpanKindValueClient = "client"
	attrSpanType            = "span.type"
	attrSpanTypeValueHTTP   = "http"
)

// Sendable is a Call or a group of Calls.
type Sendable interface {
	SendOrErr(ctx context.Context) error
}

// ReqDefinitionError can be used as the Sendable interface.
// So the error will be returned when you try to send the request.
// This simplifies usage, the error is checked only once, in one place.
type ReqDefinitionError struct {
	error
}

func NewReqDefinitionError(err error) Sendable {
	return ReqDefinitionError{error: err}
}

func (v ReqDefinitionError) SendOrErr(_ context.Context) error {
	return v
}

func (v ReqDefinitionError) Unwrap() error {
	return v.error
}

type withTracer interface {
	Tracer() trace.Tracer
}

// Call binds a Sender, a request descriptor and a BodyHandler into one
// sendable value with the result mapped to the R type.
// Like the descriptor itself, a Call is an immutable value,
// every With* method returns a modified copy.
type Call[R request.Result] struct {
	sender  request.Sender
	reqDef  request.HTTPRequest
	handler BodyHandler[R]
	before  []func(ctx context.Context) error
	after   []func(ctx context.Context, result R, err error) error
}

// NewCall creates a Call from a request descriptor and a body handler.
func NewCall[R request.Result](sender request.Sender, reqDef request.HTTPRequest, handler BodyHandler[R]) Call[R] {
	if sender == nil {
		panic(fmt.Errorf("sender is not set"))
	}
	if handler == nil {
		panic(fmt.Errorf("body handler is not set"))
	}
	return Call[R]{sender: sender, reqDef: reqDef, handler: handler}
}

// WithBefore method registers callback to be executed before the request.
// If an error is returned, the request is not sent.
func (c Call[R]) WithBefore(fn func(ctx context.Context) error) Call[R] {
	c.before = append(c.before, fn)
	return c
}

// WithOnComplete method registers callback to be executed when the request is completed.
func (c Call[R]) WithOnComplete(fn func(ctx context.Context, result R, err error) error) Call[R] {
	c.after = append(c.after, fn)
	return c
}

// WithOnSuccess method registers callback to be executed when the request succeeds.
func (c Call[R]) WithOnSuccess(fn func(ctx context.Context, result R) error) Call[R] {
	c.after = append(c.after, func(ctx context.Context, result R, err error) error {
		if err == nil {
			err = fn(ctx, result)
		}
		return err
	})
	return c
}

// WithOnError method registers callback to be executed when the request fails.
func (c Call[R]) WithOnError(fn func(ctx context.Context, err error) error) Call[R] {
	c.after = append(c.after, func(ctx context.Context, result R, err error) error {
		if err != nil {
			err = fn(ctx, err)
		}
		return err
	})
	return c
}

// Send dispatches the bound request and returns the mapped result.
func (c Call[R]) Send(ctx context.Context) (result R, err error) {
	// Telemetry
	if tp, ok := c.sender.(withTracer); ok {
		if tracer := tp.Tracer(); tracer != nil {
			var resultType string
			if v := reflect.TypeOf(result); v != nil {
				resultType = v.String()
			}
			var span trace.Span
			ctx, span = tracer.Start(
				ctx,
				CallSpanName,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String(attrSpanKind, attrSpanKindValueClient),
					attribute.String(attrSpanType, attrSpanTypeValueHTTP),
					attribute.String("api.result_type", resultType),
				),
			)
			defer func() {
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				}
				span.End()
			}()
		}
	}

	// Stop if context has been cancelled
	if err := ctx.Err(); err != nil {
		return result, err
	}

	// Invoke "before" listeners
	for _, fn := range c.before {
		if err := fn(ctx); err != nil {
			return result, err
		}
	}

	// Stop if context has been cancelled
	if err := ctx.Err(); err != nil {
		return result, err
	}

	r, err := Dispatch(ctx, c.sender, c.reqDef, c.handler)
	if err == nil {
		result = r.Body()
	}

	// Invoke "after" listeners
	for _, fn := range c.after {
		// Stop if context has been cancelled
		if err := ctx.Err(); err != nil {
			return result, err
		}
		err = fn(ctx, result, err)
	}

	return result, err
}

func (c Call[R]) SendOrErr(ctx context.Context) error {
	_, err := c.Send(ctx)
	return err
}
