package request

import (
	"context"
	"time"

	"github.com/avosk/go-depot/apierr"
)

// AttemptRecord describes a single completed attempt.
type AttemptRecord struct {
	Method  string
	URL     string
	Attempt int // 1-based
	Status  int // HTTP status, 0 when no response arrived

	// Elapsed is the wall time of this attempt only, excluding any
	// backoff delay before it.
	Elapsed time.Duration

	// Failure is nil when the attempt succeeded.
	Failure *apierr.Failure
}

// Observer receives lifecycle callbacks from the executor. Callbacks
// run synchronously inside the attempt loop, so implementations must
// return quickly and must be safe for concurrent use when the executor
// is shared across goroutines.
type Observer interface {
	// OnAttempt fires after every completed attempt, successful or not.
	OnAttempt(ctx context.Context, rec AttemptRecord)

	// OnRetry fires when the policy schedules another attempt, with the
	// delay that will be slept before it.
	OnRetry(ctx context.Context, rec AttemptRecord, delay time.Duration)

	// OnSuccess fires once per request, when an attempt succeeds.
	OnSuccess(ctx context.Context, rec AttemptRecord)

	// OnFailure fires once per request, when no further attempt will be
	// made. rec.Failure holds the terminal failure.
	OnFailure(ctx context.Context, rec AttemptRecord)
}

// NoopObserver implements Observer with no-op methods.
//
// Embed it to implement only the callbacks you need.
type NoopObserver struct{}

func (NoopObserver) OnAttempt(context.Context, AttemptRecord)              {}
func (NoopObserver) OnRetry(context.Context, AttemptRecord, time.Duration) {}
func (NoopObserver) OnSuccess(context.Context, AttemptRecord)              {}
func (NoopObserver) OnFailure(context.Context, AttemptRecord)              {}
