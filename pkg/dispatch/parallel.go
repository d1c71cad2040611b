package dispatch

import (
	"context"
)

// ParallelCalls wraps parallel requests to one Sendable interface.
type ParallelCalls []Sendable

// Parallel wraps parallel requests to one Sendable interface.
func Parallel(requests ...Sendable) ParallelCalls {
	return requests
}

func (v ParallelCalls) SendOrErr(ctx context.Context) error {
	wg := NewWaitGroup(ctx)
	for _, r := range v {
		wg.Send(r)
	}
	return wg.Wait()
}
