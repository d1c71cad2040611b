package counter_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/restflow/go-restflow/pkg/client/counter"
)

func TestReadCloser(t *testing.T) {
	t.Parallel()

	var gotBytes int64
	var gotErr error
	r := NewReadCloser(io.NopCloser(strings.NewReader("12345")), func(bytes int64, err error) {
		gotBytes = bytes
		gotErr = err
	})

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))
	assert.Equal(t, int64(5), r.Bytes())

	require.NoError(t, r.Close())
	assert.Equal(t, int64(5), gotBytes)
	assert.NoError(t, gotErr)
}

func TestReadCloser_ReadErrorIsReported(t *testing.T) {
	t.Parallel()

	cause := errors.New("read failed")
	var gotErr error
	r := NewReadCloser(io.NopCloser(failingReader{err: cause}), func(bytes int64, err error) {
		gotErr = err
	})

	_, err := io.ReadAll(r)
	require.ErrorIs(t, err, cause)
	require.NoError(t, r.Close())
	assert.Equal(t, cause, gotErr)
}

type failingReader struct {
	err error
}

func (r failingReader) Read(p []byte) (int, error) {
	return 0, r.err
}
