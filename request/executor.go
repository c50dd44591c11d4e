package request

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avosk/go-depot/apierr"
	"github.com/avosk/go-depot/retry"
)

// httpDoer abstracts the HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Compile-time interface compliance check.
var _ httpDoer = (*http.Client)(nil)

// Executor drives the attempt loop for single requests: send, classify,
// consult the retry policy, wait, repeat. Each Execute call is
// independent, so one Executor is safe to share across goroutines.
type Executor struct {
	client   httpDoer
	policy   retry.Policy
	timeouts Timeouts
	logger   *slog.Logger
	observer Observer

	// Injection point for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTimeouts sets the timeout triple applied when a Spec does not
// carry its own. Zero triples are ignored.
func WithTimeouts(t Timeouts) ExecutorOption {
	return func(e *Executor) {
		if !t.IsZero() {
			e.timeouts = t
		}
	}
}

// WithLogger sets the logger for attempt-level debug logging.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver registers an observer for attempt lifecycle events.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) {
		if o != nil {
			e.observer = o
		}
	}
}

// New creates an Executor that sends requests through client and
// retries per policy. client is typically the *http.Client built by
// NewHTTPClient, so that connect and read deadlines match the executor's
// timeout triple.
func New(client httpDoer, policy retry.Policy, opts ...ExecutorOption) *Executor {
	e := &Executor{
		client:   client,
		policy:   policy,
		timeouts: DefaultTimeouts(),
		logger:   slog.Default(),
		observer: NoopObserver{},
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one logical request: validate, send, classify, and retry
// per policy until an attempt succeeds or the policy stops the loop.
//
// The returned error is either a validation error (ErrInvalidSpec,
// ErrInvalidTimeouts, reported before any I/O) or the *apierr.Failure
// of the last attempt. Classified failures are returned as values,
// never panicked.
func (e *Executor) Execute(ctx context.Context, spec Spec) (*Payload, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	timeouts := e.timeouts
	if !spec.Timeouts.IsZero() {
		timeouts = spec.Timeouts
	}
	if err := timeouts.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	for attempt := 1; ; attempt++ {
		attemptStart := time.Now()
		payload, failure := e.attempt(ctx, spec, timeouts.Overall)

		rec := AttemptRecord{
			Method:  spec.method(),
			URL:     spec.URL,
			Attempt: attempt,
			Elapsed: time.Since(attemptStart),
			Failure: failure,
		}
		if failure != nil {
			rec.Status = failure.StatusCode
		} else {
			rec.Status = payload.StatusCode
		}
		e.observer.OnAttempt(ctx, rec)

		if failure == nil {
			e.observer.OnSuccess(ctx, rec)
			return payload, nil
		}

		e.logger.Debug("Request attempt failed",
			"method", rec.Method,
			"url", spec.URL,
			"attempt", attempt,
			"kind", failure.Kind,
			"status", failure.StatusCode,
		)

		decision := e.policy.Decide(failure, attempt, time.Since(start))
		if !decision.Retry {
			e.observer.OnFailure(ctx, rec)
			return nil, failure
		}

		e.observer.OnRetry(ctx, rec, decision.Delay)
		e.logger.Debug("Retrying request",
			"method", rec.Method,
			"url", spec.URL,
			"attempt", attempt,
			"delay", decision.Delay,
		)

		if err := e.sleep(ctx, decision.Delay); err != nil {
			// Canceled while waiting for the next attempt. Surface the
			// cancellation as a transport failure so the caller sees
			// the same taxonomy as any other aborted attempt.
			failure = apierr.ClassifyTransport(spec.URL, err)
			rec.Failure = failure
			rec.Status = 0
			e.observer.OnFailure(ctx, rec)
			return nil, failure
		}
	}
}

// attempt performs one send and classifies the outcome. Exactly one of
// the results is non-nil.
func (e *Executor) attempt(ctx context.Context, spec Spec, overall time.Duration) (*Payload, *apierr.Failure) {
	attemptCtx, cancel := context.WithTimeout(ctx, overall)
	defer cancel()

	// Fresh reader per attempt so retries replay the body from scratch.
	var body io.Reader
	if len(spec.Body) > 0 {
		body = bytes.NewReader(spec.Body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, spec.method(), spec.URL, body)
	if err != nil {
		return nil, apierr.ClassifyTransport(spec.URL, err)
	}
	if len(spec.Header) > 0 {
		req.Header = spec.Header.Clone()
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, apierr.ClassifyTransport(spec.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.ClassifyTransport(spec.URL, err)
	}

	if f := apierr.Classify(resp.StatusCode, spec.URL, respBody, resp.Header); f != nil {
		return nil, f
	}

	return &Payload{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
		URL:        spec.URL,
	}, nil
}

// sleepContext waits d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
