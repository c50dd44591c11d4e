// Package retry decides whether and when a failed Depot request should be
// resent. The policy is a pure function of its inputs: it never sleeps and
// holds no state, so it can be tested without a clock. Waiting out the
// returned delay is the request executor's job.
package retry

import (
	"math/rand"
	"time"

	"github.com/avosk/go-depot/apierr"
)

// Default policy values, matching the client's shipped configuration.
const (
	DefaultMaxRetries = 5
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultJitter     = 0.1
)

// Policy holds retry parameters for exponential backoff.
//
// Invalid values are normalized before every decision:
//   - MaxRetries < 0 becomes 0 (never retry)
//   - BaseDelay <= 0 becomes 1ms
//   - MaxDelay < BaseDelay becomes BaseDelay
//   - Jitter is clamped to [0, 1]
type Policy struct {
	// MaxRetries is the number of resends after the initial attempt.
	// 0 means a single attempt with no retries.
	MaxRetries int

	// BaseDelay is the delay before the first retry; it doubles each
	// subsequent retry.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff. A server-supplied Retry-After
	// hint is authoritative and is NOT capped.
	MaxDelay time.Duration

	// Jitter is the fraction of the computed delay added as bounded
	// random jitter, to avoid synchronized retry storms across
	// concurrent callers. 0 disables jitter.
	Jitter float64

	// MaxElapsed optionally bounds the total time spent on one logical
	// request; once elapsed reaches it, no further retries are granted.
	// 0 means unlimited.
	MaxElapsed time.Duration
}

// Default returns the policy used when the caller configures nothing.
func Default() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		Jitter:     DefaultJitter,
	}
}

// Decision is the outcome of consulting the policy after a failed attempt.
type Decision struct {
	// Retry is true when the request should be sent again.
	Retry bool

	// Delay is how long to wait before the next attempt. Zero when
	// Retry is false.
	Delay time.Duration
}

// normalized returns a copy of p with invalid fields clamped.
func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Millisecond
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Jitter > 1 {
		p.Jitter = 1
	}
	if p.MaxElapsed < 0 {
		p.MaxElapsed = 0
	}
	return p
}

// Retriable reports whether a failure of this shape is ever worth
// resending.
//
// The retriable set is: any ServerError (5xx), any Transport failure, any
// RateLimited failure, and Other failures whose status is 429 or a gateway
// error (502/503/504). Unauthorized, NotFound, and BadRequest are never
// retried; repeating them cannot change the answer.
//
// The Other arm exists for failures synthesized outside Classify (mock
// transports, hand-built failures); Classify itself never produces Other
// for those statuses.
func Retriable(f *apierr.Failure) bool {
	if f == nil {
		return false
	}
	switch f.Kind {
	case apierr.KindServerError, apierr.KindTransport, apierr.KindRateLimited:
		return true
	case apierr.KindOther:
		switch f.StatusCode {
		case 429, 502, 503, 504:
			return true
		}
		return false
	default:
		return false
	}
}

// Decide returns the retry decision after a failed attempt.
//
// attempt is 1-based: the number of attempts made so far, including the
// one that just failed. elapsed is the cumulative time spent on the
// logical request. Decide performs no waiting itself.
func (p Policy) Decide(f *apierr.Failure, attempt int, elapsed time.Duration) Decision {
	p = p.normalized()

	if !Retriable(f) {
		return Decision{}
	}
	if attempt > p.MaxRetries {
		return Decision{}
	}
	if p.MaxElapsed > 0 && elapsed >= p.MaxElapsed {
		return Decision{}
	}

	// A server-supplied wait hint overrides computed backoff verbatim.
	if d, ok := f.RetryAfter(); ok {
		return Decision{Retry: true, Delay: d}
	}

	return Decision{Retry: true, Delay: p.backoff(attempt)}
}

// backoff computes min(MaxDelay, BaseDelay*2^(attempt-1)) plus bounded
// jitter. Doubling step-by-step with a cap at each step keeps the
// computation overflow-safe for any attempt number.
func (p Policy) backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}

	if p.Jitter > 0 {
		d += time.Duration(rand.Float64() * p.Jitter * float64(d))
		if d > p.MaxDelay {
			d = p.MaxDelay
		}
	}
	return d
}
