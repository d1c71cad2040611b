package dispatch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/restflow/go-restflow/pkg/dispatch"
	"github.com/restflow/go-restflow/pkg/request"
)

func TestCall_Send(t *testing.T) {
	t.Parallel()

	sender := newFakeSender(nil, newFakeResponse(200, `{"foo":"bar"}`))
	reqDef := request.NewHTTPRequest().WithGet("https://example.com")

	result, err := NewCall(sender, reqDef, Object[testStruct]()).Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &testStruct{Foo: "bar"}, result)
}

func TestCall_ListenersOrder(t *testing.T) {
	t.Parallel()

	var order []string
	sender := newFakeSender(nil, newFakeResponse(200, `{"foo":"bar"}`))
	reqDef := request.NewHTTPRequest().WithGet("https://example.com")

	call := NewCall(sender, reqDef, Object[testStruct]()).
		WithBefore(func(ctx context.Context) error {
			order = append(order, "before1")
			return nil
		}).
		WithBefore(func(ctx context.Context) error {
			order = append(order, "before2")
			return nil
		}).
		WithOnComplete(func(ctx context.Context, result *testStruct, err error) error {
			order = append(order, "complete1")
			return err
		}).
		WithOnSuccess(func(ctx context.Context, result *testStruct) error {
			order = append(order, "success")
			return nil
		}).
		WithOnError(func(ctx context.Context, err error) error {
			order = append(order, "error")
			return err
		})

	_, err := call.Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"before1", "before2", "complete1", "success"}, order)
}

func TestCall_OnError(t *testing.T) {
	t.Parallel()

	var onErrorCalled bool
	sender := newFakeSender(errors.New("network down"))
	reqDef := request.NewHTTPRequest().WithGet("https://example.com")

	_, err := NewCall(sender, reqDef, Object[testStruct]()).
		WithOnSuccess(func(ctx context.Context, result *testStruct) error {
			t.Error("on success should not be called")
			return nil
		}).
		WithOnError(func(ctx context.Context, err error) error {
			onErrorCalled = true
			return err
		}).
		Send(context.Background())
	require.Error(t, err)
	assert.True(t, onErrorCalled)
}

func TestCall_BeforeErrorStopsSending(t *testing.T) {
	t.Parallel()

	sender := newFakeSender(nil, newFakeResponse(200, `{}`))
	reqDef := request.NewHTTPRequest().WithGet("https://example.com")

	_, err := NewCall(sender, reqDef, Object[testStruct]()).
		WithBefore(func(ctx context.Context) error {
			return errors.New("not ready")
		}).
		Send(context.Background())
	require.ErrorContains(t, err, "not ready")
	assert.Equal(t, 0, sender.calls)
}

func TestCall_IsImmutable(t *testing.T) {
	t.Parallel()

	sender := newFakeSender(nil, newFakeResponse(200, `{"foo":"bar"}`))
	reqDef := request.NewHTTPRequest().WithGet("https://example.com")

	original := NewCall(sender, reqDef, Object[testStruct]())
	modified := original.WithOnSuccess(func(ctx context.Context, result *testStruct) error {
		return errors.New("modified call used")
	})
	assert.NotNil(t, modified)

	// The original value has no listeners
	_, err := original.Send(context.Background())
	assert.NoError(t, err)
}

func TestCall_SendOrErr(t *testing.T) {
	t.Parallel()

	sender := newFakeSender(nil, newFakeResponse(200, `{"foo":"bar"}`))
	reqDef := request.NewHTTPRequest().WithGet("https://example.com")

	var call Sendable = NewCall(sender, reqDef, Object[testStruct]())
	assert.NoError(t, call.SendOrErr(context.Background()))
}

func TestNewCall_Panics(t *testing.T) {
	t.Parallel()

	reqDef := request.NewHTTPRequest().WithGet("https://example.com")
	assert.PanicsWithError(t, "sender is not set", func() {
		NewCall(nil, reqDef, Object[testStruct]())
	})
	assert.PanicsWithError(t, "body handler is not set", func() {
		NewCall[*testStruct](newFakeSender(nil), reqDef, nil)
	})
}

func TestReqDefinitionError(t *testing.T) {
	t.Parallel()

	cause := errors.New("invalid definition")
	err := NewReqDefinitionError(cause).SendOrErr(context.Background())
	assert.ErrorIs(t, err, cause)
}
