// Package batch runs many keyed requests concurrently with a bounded
// worker pool and per-item failure isolation.
//
// One item failing never cancels its siblings: failures are recorded as
// values in the result map, and the batch runs every item to completion
// before returning. The map is keyed by the caller-supplied item
// identifier, so outcomes can be correlated to inputs after concurrent
// completion.
package batch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/avosk/go-depot/request"
)

// Structural validation sentinels. These are programmer errors,
// reported before any work starts.
var (
	// ErrInvalidConcurrency reports a concurrency bound below 1.
	ErrInvalidConcurrency = errors.New("batch concurrency must be at least 1")

	// ErrNilWorker reports a missing worker function.
	ErrNilWorker = errors.New("batch worker must not be nil")
)

// Worker produces the payload for a single item. Implementations
// typically wrap one request.Executor call, e.g. "download by hash".
// Workers run concurrently and must be safe to call from multiple
// goroutines.
type Worker[K comparable] func(ctx context.Context, key K) (*request.Payload, error)

// Result is the outcome of one item: a payload or the error that
// stopped it.
type Result struct {
	Payload *request.Payload
	Err     error
}

// Succeeded reports whether the item produced a payload.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Run executes worker once per key, with at most concurrency workers in
// flight, and returns one Result per key.
//
// Duplicate keys are not deduplicated: every occurrence runs, and their
// results overwrite each other in input order, so the last occurrence
// wins. Canceling ctx does not abandon items: every worker still runs
// and reports, typically with a transport failure, keeping the result
// map complete.
//
// Run itself fails only on structurally invalid arguments, before any
// work starts. Per-item failures live in the returned map.
func Run[K comparable](ctx context.Context, keys []K, worker Worker[K], concurrency int) (map[K]Result, error) {
	if concurrency < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, concurrency)
	}
	if worker == nil {
		return nil, ErrNilWorker
	}

	results := make([]Result, len(keys))

	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	for i, key := range keys {
		g.Go(func() error {
			payload, err := worker(ctx, key)
			// Worker errors are recorded, not returned: a non-nil
			// return would cancel sibling workers.
			results[i] = Result{Payload: payload, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[K]Result, len(keys))
	for i, key := range keys {
		out[key] = results[i]
	}
	return out, nil
}
