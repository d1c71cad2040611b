// Package paging implements lazy iteration over paginated list endpoints.
//
// A Sequence describes a listing: the descriptor of the first page, an
// optional per-item initializer and a next-page discovery function, by
// default the Link response header. A Sequence holds no fetch state, the
// Iterator method can be called many times and every Iterator walks the
// listing from the beginning, fetching pages only when the consumer asks
// for an item that is not buffered yet.
package paging

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/restflow/go-restflow/pkg/dispatch"
	"github.com/restflow/go-restflow/pkg/request"
)

// ErrNoMoreItems is returned by the Iterator.Next method when the sequence is exhausted.
var ErrNoMoreItems = errors.New("no more items")

// NextPageFunc derives the next page descriptor from the current descriptor
// and the response metadata of the fetched page. ok == false ends the sequence.
type NextPageFunc func(current request.HTTPRequest, statusCode int, header http.Header) (next request.HTTPRequest, ok bool)

// ItemInitializer is invoked once for every fetched item, before any item of
// the page is handed to the consumer. An initializer error fails the whole
// page fetch and no item of that page is visible.
type ItemInitializer[R request.Result] func(ctx context.Context, item *R) error

// Sequence describes a paginated listing of R items.
// Create it by the NewSequence function.
type Sequence[R request.Result] struct {
	sender   request.Sender
	first    request.HTTPRequest
	init     ItemInitializer[R]
	nextPage NextPageFunc
}

// Option configures a Sequence.
type Option[R request.Result] func(s *Sequence[R])

// WithItemInitializer option registers a callback invoked once per fetched item.
func WithItemInitializer[R request.Result](fn ItemInitializer[R]) Option[R] {
	return func(s *Sequence[R]) {
		s.init = fn
	}
}

// WithNextPage option replaces the default Link header discovery, see LinkNextPage.
func WithNextPage[R request.Result](fn NextPageFunc) Option[R] {
	return func(s *Sequence[R]) {
		if fn == nil {
			panic(fmt.Errorf("next page function is not set"))
		}
		s.nextPage = fn
	}
}

// NewSequence creates a Sequence from the descriptor of the first page.
// Each page is expected to be a JSON array of R items, an empty body counts
// as an empty page.
func NewSequence[R request.Result](sender request.Sender, first request.HTTPRequest, opts ...Option[R]) *Sequence[R] {
	if sender == nil {
		panic(fmt.Errorf("sender is not set"))
	}
	if first == nil {
		panic(fmt.Errorf("first page request is not set"))
	}
	s := &Sequence[R]{sender: sender, first: first, nextPage: LinkNextPage}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Iterator returns a new iterator positioned before the first item.
// Iterators are independent, advancing one does not affect the others.
// No request is sent until the HasNext or Next method is called.
func (s *Sequence[R]) Iterator() *Iterator[R] {
	return &Iterator[R]{seq: s}
}

// ForEach iterates over all items of the sequence, page by page.
// The iteration stops at the first error, fetch or fn.
func (s *Sequence[R]) ForEach(ctx context.Context, fn func(item *R) error) error {
	it := s.Iterator()
	for {
		item, err := it.Next(ctx)
		if errors.Is(err, ErrNoMoreItems) {
			return nil
		} else if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
	}
}

// All fetches all pages of the sequence and returns the items as one slice.
func (s *Sequence[R]) All(ctx context.Context) ([]*R, error) {
	var out []*R
	err := s.ForEach(ctx, func(item *R) error {
		out = append(out, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Iterator state.
const (
	stateNotStarted = iota // no page fetched yet
	stateHasPage           // a page is buffered, cursor points into it
	stateExhausted         // no more items and no more pages
)

// Iterator walks a Sequence item by item.
// It buffers one page at a time and fetches the next page only when the
// buffered one is consumed. An Iterator is not safe for concurrent use.
type Iterator[R request.Result] struct {
	seq    *Sequence[R]
	state  int
	items  []*R               // buffered page
	cursor int                // index of the next item within the buffered page
	next   request.HTTPRequest // descriptor of the page after the buffered one, nil if none
}

// HasNext reports whether another item is available, fetching pages as needed.
// A failed fetch leaves the iterator unchanged, so the call can be retried.
func (it *Iterator[R]) HasNext(ctx context.Context) (bool, error) {
	for {
		if it.state == stateExhausted {
			return false, nil
		}
		if it.state == stateHasPage && it.cursor < len(it.items) {
			return true, nil
		}

		// No buffered item, determine the page to fetch
		var pageReq request.HTTPRequest
		if it.state == stateNotStarted {
			pageReq = it.seq.first
		} else {
			pageReq = it.next
		}
		if pageReq == nil {
			it.state = stateExhausted
			it.items = nil
			return false, nil
		}

		if err := it.fetchPage(ctx, pageReq); err != nil {
			return false, err
		}

		// An empty page with a next link continues the loop
	}
}

// Next returns the next item, fetching pages as needed.
// It returns ErrNoMoreItems when the sequence is exhausted.
func (it *Iterator[R]) Next(ctx context.Context) (*R, error) {
	found, err := it.HasNext(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoMoreItems
	}
	item := it.items[it.cursor]
	it.cursor++
	return item, nil
}

// fetchPage fetches and buffers one page.
// The iterator state is updated only when the whole page succeeds, including
// all item initializers, so a failed page is never partially visible.
func (it *Iterator[R]) fetchPage(ctx context.Context, reqDef request.HTTPRequest) error {
	result, err := dispatch.Dispatch(ctx, it.seq.sender, reqDef, dispatch.Object[[]*R](dispatch.AllowEmpty()))
	if err != nil {
		return err
	}

	items := *result.Body()
	if fn := it.seq.init; fn != nil {
		for _, item := range items {
			if err := fn(ctx, item); err != nil {
				return fmt.Errorf("cannot initialize page item: %w", err)
			}
		}
	}

	next, found := it.seq.nextPage(reqDef, result.StatusCode(), result.Header())
	if !found {
		next = nil
	}

	it.state = stateHasPage
	it.items = items
	it.cursor = 0
	it.next = next
	return nil
}
