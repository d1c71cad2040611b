package client_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/net/http2"

	. "github.com/restflow/go-restflow/pkg/client"
)

func TestDefaultTransport(t *testing.T) {
	t.Parallel()

	transport := DefaultTransport()
	v, ok := transport.(*http.Transport)
	assert.True(t, ok)
	assert.True(t, v.ForceAttemptHTTP2)
	assert.Equal(t, MaxConnectionsPerHost, v.MaxConnsPerHost)
}

func TestHTTP2Transport(t *testing.T) {
	t.Parallel()

	transport := HTTP2Transport()
	_, ok := transport.(*http2.Transport)
	assert.True(t, ok)
}
