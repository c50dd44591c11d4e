// Package apierr defines the failure taxonomy for Depot API interactions.
//
// Every failed attempt against the Depot service is translated into a
// *Failure value carrying a Kind tag plus enough context (URL, status,
// message) for logging without the original response object. Failures are
// returned as error values, never panicked.
//
// Callers match failures two ways: errors.As to inspect the struct, or
// errors.Is against the per-kind sentinels:
//
//	if errors.Is(err, apierr.ErrNotFound) {
//	    // artifact is missing
//	}
package apierr

import (
	"errors"
	"fmt"
	"time"
)

// Kind tags a Failure with its place in the taxonomy.
type Kind int

const (
	// KindUnauthorized covers HTTP 401 and 403 (treated identically).
	KindUnauthorized Kind = iota

	// KindNotFound covers HTTP 404.
	KindNotFound

	// KindRateLimited covers HTTP 429, optionally with a Retry-After hint.
	KindRateLimited

	// KindBadRequest covers HTTP 400.
	KindBadRequest

	// KindServerError covers HTTP 500-599.
	KindServerError

	// KindOther covers any remaining status >= 400.
	KindOther

	// KindTransport covers failures without an HTTP status: connection
	// refused, DNS errors, timeouts before a response, cancellation.
	KindTransport
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not found"
	case KindRateLimited:
		return "rate limited"
	case KindBadRequest:
		return "bad request"
	case KindServerError:
		return "server error"
	case KindOther:
		return "unexpected status"
	case KindTransport:
		return "transport failure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinel errors, one per kind. A *Failure matches the sentinel of its
// kind via errors.Is, so callers never need to string-match messages.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrBadRequest   = errors.New("bad request")
	ErrServerError  = errors.New("server error")
	ErrOther        = errors.New("unexpected status")
	ErrTransport    = errors.New("transport failure")
)

// sentinelFor maps a kind to its sentinel.
func sentinelFor(k Kind) error {
	switch k {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindNotFound:
		return ErrNotFound
	case KindRateLimited:
		return ErrRateLimited
	case KindBadRequest:
		return ErrBadRequest
	case KindServerError:
		return ErrServerError
	case KindOther:
		return ErrOther
	case KindTransport:
		return ErrTransport
	default:
		return nil
	}
}

// Failure is one classified API failure. It is an immutable value: built
// once by the classifier (or a constructor) and never mutated afterwards.
type Failure struct {
	// Kind places the failure in the taxonomy.
	Kind Kind

	// StatusCode is the HTTP status that produced the failure.
	// Zero for transport failures.
	StatusCode int

	// URL is the target of the request that failed.
	URL string

	// Message is a human-readable description, typically built from the
	// response body or the status text.
	Message string

	// Cause is the underlying error for transport failures, nil otherwise.
	Cause error

	// Server-supplied wait hint. retryAfterSet distinguishes "no hint"
	// from an explicit zero; read via RetryAfter.
	retryAfter    time.Duration
	retryAfterSet bool
}

// New builds a Failure of the given kind from an HTTP status.
// Production code goes through Classify; New exists for tests and for
// callers that synthesize failures (e.g. mock transports).
func New(kind Kind, status int, url, message string) *Failure {
	return &Failure{Kind: kind, StatusCode: status, URL: url, Message: message}
}

// NewRateLimited builds a rate-limit failure carrying a Retry-After hint
// of the given number of seconds.
func NewRateLimited(url, message string, retryAfterSeconds int) *Failure {
	return &Failure{
		Kind:          KindRateLimited,
		StatusCode:    429,
		URL:           url,
		Message:       message,
		retryAfter:    time.Duration(retryAfterSeconds) * time.Second,
		retryAfterSet: true,
	}
}

// NewTransport builds a transport failure wrapping cause.
func NewTransport(url string, cause error) *Failure {
	return &Failure{Kind: KindTransport, URL: url, Cause: cause}
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Kind == KindTransport {
		if f.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", f.Kind, f.URL, f.Cause)
		}
		return fmt.Sprintf("%s: %s", f.Kind, f.URL)
	}
	if f.Message != "" {
		return fmt.Sprintf("%s (HTTP %d): %s: %s", f.Kind, f.StatusCode, f.URL, f.Message)
	}
	return fmt.Sprintf("%s (HTTP %d): %s", f.Kind, f.StatusCode, f.URL)
}

// Unwrap exposes the transport cause to errors.Is/As chains.
func (f *Failure) Unwrap() error {
	return f.Cause
}

// Is reports whether target is the sentinel for this failure's kind.
// This makes errors.Is(err, apierr.ErrNotFound) work without callers
// unwrapping to the concrete type.
func (f *Failure) Is(target error) bool {
	return target == sentinelFor(f.Kind)
}

// RetryAfter returns the server-supplied wait hint and whether one was
// present. An absent or unparseable Retry-After header yields ok == false,
// never a zero duration.
func (f *Failure) RetryAfter() (d time.Duration, ok bool) {
	return f.retryAfter, f.retryAfterSet
}

// AsFailure extracts a *Failure from err, unwrapping as needed.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsNotFound reports whether err is a NotFound failure. Callers use this
// for "is the artifact missing" checks instead of matching message text.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
