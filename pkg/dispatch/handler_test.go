package dispatch_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/restflow/go-restflow/pkg/dispatch"
	"github.com/restflow/go-restflow/pkg/request"
)

func newTestResponse(body string) *request.Response {
	return request.NewResponseFromParts(200, make(http.Header), io.NopCloser(strings.NewReader(body)))
}

func TestDiscardHandler(t *testing.T) {
	t.Parallel()

	response := newTestResponse(`{"foo":"bar"}`)
	_, err := Discard().Handle(response)
	require.NoError(t, err)

	// The whole stream is drained
	assert.Equal(t, int64(13), response.BytesRead())
}

func TestDiscardHandler_EmptyBody(t *testing.T) {
	t.Parallel()

	_, err := Discard().Handle(newTestResponse(""))
	assert.NoError(t, err)
}

func TestStringHandler(t *testing.T) {
	t.Parallel()

	out, err := String().Handle(newTestResponse("some text"))
	require.NoError(t, err)
	assert.Equal(t, "some text", out)
}

func TestStringHandler_EmptyBody(t *testing.T) {
	t.Parallel()

	_, err := String().Handle(newTestResponse(""))
	var emptyErr *EmptyBodyError
	require.ErrorAs(t, err, &emptyErr)

	out, err := String(AllowEmpty()).Handle(newTestResponse(""))
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestBytesHandler(t *testing.T) {
	t.Parallel()

	out, err := Bytes().Handle(newTestResponse(`{"foo":"bar"}`))
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"foo":"bar"}`), out)
}

func TestBytesHandler_EmptyBody(t *testing.T) {
	t.Parallel()

	_, err := Bytes().Handle(newTestResponse(""))
	var emptyErr *EmptyBodyError
	require.ErrorAs(t, err, &emptyErr)

	out, err := Bytes(AllowEmpty()).Handle(newTestResponse(""))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestObjectHandler(t *testing.T) {
	t.Parallel()

	out, err := Object[testStruct]().Handle(newTestResponse(`{"foo":"bar","bar":42}`))
	require.NoError(t, err)
	assert.Equal(t, &testStruct{Foo: "bar", Bar: 42}, out)
}

func TestObjectHandler_EmptyBody(t *testing.T) {
	t.Parallel()

	_, err := Object[testStruct]().Handle(newTestResponse(""))
	var emptyErr *EmptyBodyError
	require.ErrorAs(t, err, &emptyErr)
	assert.Equal(t, "response has an empty body, but the body handler requires one", err.Error())

	out, err := Object[testStruct](AllowEmpty()).Handle(newTestResponse(""))
	require.NoError(t, err)
	assert.Equal(t, &testStruct{}, out)
}

func TestObjectHandler_MalformedBody(t *testing.T) {
	t.Parallel()

	_, err := Object[testStruct]().Handle(newTestResponse(`{"foo":`))
	var desErr *DeserializationError
	require.ErrorAs(t, err, &desErr)
	assert.NotNil(t, desErr.Unwrap())
}

func TestObjectIntoHandler_MergeSemantics(t *testing.T) {
	t.Parallel()

	// Fields absent from the body keep their current values
	existing := &testStruct{Foo: "original", Bar: 42}
	out, err := ObjectInto(existing).Handle(newTestResponse(`{"foo":"updated"}`))
	require.NoError(t, err)
	assert.Same(t, existing, out)
	assert.Equal(t, &testStruct{Foo: "updated", Bar: 42}, existing)
}

func TestObjectIntoHandler_EmptyBody(t *testing.T) {
	t.Parallel()

	existing := &testStruct{Foo: "original"}
	_, err := ObjectInto(existing).Handle(newTestResponse(""))
	var emptyErr *EmptyBodyError
	require.ErrorAs(t, err, &emptyErr)

	out, err := ObjectInto(existing, AllowEmpty()).Handle(newTestResponse(""))
	require.NoError(t, err)
	assert.Same(t, existing, out)
	assert.Equal(t, "original", existing.Foo)
}

func TestObjectIntoHandler_NilPanics(t *testing.T) {
	t.Parallel()

	assert.PanicsWithError(t, "existing instance must be defined by a pointer", func() {
		ObjectInto[testStruct](nil)
	})
}

func TestStreamTransformHandler(t *testing.T) {
	t.Parallel()

	out, err := StreamTransform(func(stream io.Reader) (int, error) {
		data, err := io.ReadAll(stream)
		return len(data), err
	}).Handle(newTestResponse("12345"))
	require.NoError(t, err)
	assert.Equal(t, 5, out)
}

func TestStreamTransformHandler_NilPanics(t *testing.T) {
	t.Parallel()

	assert.PanicsWithError(t, "stream transform function is not set", func() {
		StreamTransform[string](nil)
	})
}

func TestCopyToOwnedBuffer(t *testing.T) {
	t.Parallel()

	response := newTestResponse("some content")
	buffered, err := CopyToOwnedBuffer(response.Stream())
	require.NoError(t, err)

	// The copy is readable after the stream is closed
	require.NoError(t, response.Close())
	data, err := io.ReadAll(buffered)
	require.NoError(t, err)
	assert.Equal(t, "some content", string(data))
}
