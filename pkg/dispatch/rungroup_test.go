package dispatch_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/restflow/go-restflow/pkg/dispatch"
)

func TestRunGroup(t *testing.T) {
	t.Parallel()

	var counter int64
	g := NewRunGroup(context.Background())
	for i := 0; i < 100; i++ {
		g.Add(sendableFn(func(ctx context.Context) error {
			atomic.AddInt64(&counter, 1)
			return nil
		}))
	}

	// Nothing is sent before RunAndWait
	assert.Equal(t, int64(0), atomic.LoadInt64(&counter))

	require.NoError(t, g.RunAndWait())
	assert.Equal(t, int64(100), counter)
}

func TestRunGroup_FirstErrorStopsSending(t *testing.T) {
	t.Parallel()

	cause := errors.New("some error")
	g := NewRunGroup(context.Background())
	g.Add(sendableFn(func(ctx context.Context) error {
		return cause
	}))
	for i := 0; i < 100; i++ {
		g.Add(sendableFn(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}))
	}

	err := g.RunAndWait()
	assert.Equal(t, cause, err)
}

func TestRunGroup_AddWhileRunning(t *testing.T) {
	t.Parallel()

	var counter int64
	g := NewRunGroup(context.Background())
	g.Add(sendableFn(func(ctx context.Context) error {
		atomic.AddInt64(&counter, 1)
		// Additional request scheduled from a running one
		g.Add(sendableFn(func(ctx context.Context) error {
			atomic.AddInt64(&counter, 1)
			return nil
		}))
		return nil
	}))

	require.NoError(t, g.RunAndWait())
	assert.Equal(t, int64(2), counter)
}

func TestParallel(t *testing.T) {
	t.Parallel()

	var counter int64
	increment := sendableFn(func(ctx context.Context) error {
		atomic.AddInt64(&counter, 1)
		return nil
	})

	err := Parallel(increment, increment, increment).SendOrErr(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), counter)
}

func TestParallel_CollectsErrors(t *testing.T) {
	t.Parallel()

	ok := sendableFn(func(ctx context.Context) error {
		return nil
	})
	failing := sendableFn(func(ctx context.Context) error {
		return errors.New("some error")
	})

	err := Parallel(ok, failing, ok).SendOrErr(context.Background())
	assert.ErrorContains(t, err, "some error")
}
