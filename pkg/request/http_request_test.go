package request_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/restflow/go-restflow/pkg/request"
)

func TestNewHTTPRequest_Methods(t *testing.T) {
	t.Parallel()

	cases := []struct {
		method string
		reqDef HTTPRequest
	}{
		{"GET", NewHTTPRequest().WithGet("https://example.com")},
		{"POST", NewHTTPRequest().WithPost("https://example.com")},
		{"PUT", NewHTTPRequest().WithPut("https://example.com")},
		{"PATCH", NewHTTPRequest().WithPatch("https://example.com")},
		{"DELETE", NewHTTPRequest().WithDelete("https://example.com")},
		{"HEAD", NewHTTPRequest().WithHead("https://example.com")},
	}
	for _, c := range cases {
		assert.Equal(t, c.method, c.reqDef.Method())
		assert.Equal(t, "https://example.com", c.reqDef.URL().String())
	}
}

func TestHTTPRequest_UnsetPanics(t *testing.T) {
	t.Parallel()

	assert.PanicsWithError(t, "request method is not set", func() {
		NewHTTPRequest().Method()
	})
	assert.PanicsWithError(t, "request url is not set", func() {
		NewHTTPRequest().URL()
	})
}

func TestHTTPRequest_BaseURL(t *testing.T) {
	t.Parallel()

	reqDef := NewHTTPRequest().WithBaseURL("https://example.com/api/").WithGet("v2/items")
	assert.Equal(t, "https://example.com/api/v2/items", reqDef.URL().String())

	// Leading slash in the relative URL does not escape the base path
	reqDef = NewHTTPRequest().WithBaseURL("https://example.com/api").WithGet("/v2/items")
	assert.Equal(t, "https://example.com/api/v2/items", reqDef.URL().String())

	// Absolute URL wins over the base URL
	reqDef = NewHTTPRequest().WithBaseURL("https://example.com/api").WithGet("https://other.com/foo")
	assert.Equal(t, "https://other.com/foo", reqDef.URL().String())
}

func TestHTTPRequest_Immutability(t *testing.T) {
	t.Parallel()

	original := NewHTTPRequest().WithGet("https://example.com").AndHeader("X-Foo", "1").AndQueryParam("a", "1")
	modified := original.
		WithMethod("POST").
		AndHeader("X-Foo", "2").
		AndQueryParam("a", "2").
		AndPathParam("id", "123")

	assert.Equal(t, "GET", original.Method())
	assert.Equal(t, "1", original.RequestHeader().Get("X-Foo"))
	assert.Equal(t, "1", original.QueryParams().Get("a"))
	assert.Empty(t, original.PathParams())

	assert.Equal(t, "POST", modified.Method())
	assert.Equal(t, "2", modified.RequestHeader().Get("X-Foo"))
	assert.Equal(t, "2", modified.QueryParams().Get("a"))
	assert.Equal(t, map[string]string{"id": "123"}, modified.PathParams())
}

func TestHTTPRequest_QueryParams(t *testing.T) {
	t.Parallel()

	// Nil if none were set
	reqDef := NewHTTPRequest().WithGet("https://example.com")
	assert.Nil(t, reqDef.QueryParams())

	reqDef = reqDef.WithQueryParams(map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, "1", reqDef.QueryParams().Get("a"))
	assert.Equal(t, "2", reqDef.QueryParams().Get("b"))

	// WithQueryValues replaces all previous parameters
	reqDef = reqDef.WithQueryValues(url.Values{"c": []string{"3"}})
	assert.Equal(t, url.Values{"c": []string{"3"}}, reqDef.QueryParams())
}

func TestHTTPRequest_Body(t *testing.T) {
	t.Parallel()

	reqDef := NewHTTPRequest().WithPost("https://example.com").WithJSONBody(map[string]any{"foo": "bar"})
	assert.Equal(t, "application/json", reqDef.RequestHeader().Get("Content-Type"))
	assert.Equal(t, map[string]any{"foo": "bar"}, reqDef.RequestBody())

	reqDef = NewHTTPRequest().WithPost("https://example.com").WithFormBody(map[string]string{"foo": "bar"})
	assert.Equal(t, "application/x-www-form-urlencoded", reqDef.RequestHeader().Get("Content-Type"))
	assert.Equal(t, "foo=bar", reqDef.RequestBody())

	reqDef = NewHTTPRequest().WithPost("https://example.com").WithBody("raw").WithContentType("text/plain")
	assert.Equal(t, "text/plain", reqDef.RequestHeader().Get("Content-Type"))
	assert.Equal(t, "raw", reqDef.RequestBody())
}

func TestToFormBody(t *testing.T) {
	t.Parallel()

	out := ToFormBody(map[string]any{
		"string": "value",
		"int":    123,
		"bool":   true,
		"slice":  []string{"x", "y"},
		"map":    map[string]string{"key": "val"},
	})
	assert.Equal(t, map[string]string{
		"string":   "value",
		"int":      "123",
		"bool":     "true",
		"slice[0]": "x",
		"slice[1]": "y",
		"map[key]": "val",
	}, out)
}
