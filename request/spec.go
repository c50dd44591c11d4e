// Package request executes single Depot API requests with automatic
// retries, failure classification, and per-attempt deadlines.
//
// The package separates three concerns: describing a request (Spec),
// deciding whether a failed attempt should be retried (retry.Policy),
// and driving the attempt loop (Executor). Failures surface as
// *apierr.Failure values so callers can branch on failure kind with
// errors.Is instead of string matching.
package request

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Default timeout configuration.
const (
	DefaultOverallTimeout = 2 * time.Minute
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 30 * time.Second
)

// Validation sentinels. Spec and Timeouts problems are programming
// errors, reported synchronously before any network I/O.
var (
	// ErrInvalidSpec reports a malformed request description.
	ErrInvalidSpec = errors.New("invalid request spec")

	// ErrInvalidTimeouts reports a timeout triple that is incomplete
	// or inconsistent.
	ErrInvalidTimeouts = errors.New("invalid timeouts")
)

// Timeouts bounds the phases of a single attempt.
//
// Connect limits establishing the connection, Read limits waiting for
// response headers once the request is written, and Overall caps the
// whole attempt including the body transfer. Retries are not included:
// every attempt gets the full budget again.
//
// Connect and Read are enforced by the transport built in NewHTTPClient
// and therefore apply client-wide; the executor enforces Overall per
// attempt through the request context.
type Timeouts struct {
	Overall time.Duration
	Connect time.Duration
	Read    time.Duration
}

// DefaultTimeouts returns the timeout triple used when neither the
// executor nor the Spec overrides it.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Overall: DefaultOverallTimeout,
		Connect: DefaultConnectTimeout,
		Read:    DefaultReadTimeout,
	}
}

// Validate checks that every phase has a strictly positive budget and
// that the phases nest: Connect <= Read <= Overall.
func (t Timeouts) Validate() error {
	if t.Overall <= 0 {
		return fmt.Errorf("%w: overall deadline must be positive, got %v", ErrInvalidTimeouts, t.Overall)
	}
	if t.Connect <= 0 {
		return fmt.Errorf("%w: connect deadline must be positive, got %v", ErrInvalidTimeouts, t.Connect)
	}
	if t.Read <= 0 {
		return fmt.Errorf("%w: read deadline must be positive, got %v", ErrInvalidTimeouts, t.Read)
	}
	if t.Connect > t.Read {
		return fmt.Errorf("%w: connect deadline %v exceeds read deadline %v", ErrInvalidTimeouts, t.Connect, t.Read)
	}
	if t.Read > t.Overall {
		return fmt.Errorf("%w: read deadline %v exceeds overall deadline %v", ErrInvalidTimeouts, t.Read, t.Overall)
	}
	return nil
}

// IsZero reports whether no deadline has been set.
func (t Timeouts) IsZero() bool {
	return t == Timeouts{}
}

// Spec describes one logical API request. It is immutable for the
// duration of the call: the executor copies what it needs and replays
// Body from scratch on every retry attempt.
type Spec struct {
	// Method is the HTTP method. Empty means GET.
	Method string

	// URL is the absolute target URL. Required.
	URL string

	// Header holds extra request headers. May be nil.
	Header http.Header

	// Body is the request payload. May be nil for bodyless methods.
	Body []byte

	// Timeouts overrides the executor's timeout triple for this
	// request. The zero value means use the executor's configuration.
	// When set, all three fields are required and must nest.
	Timeouts Timeouts
}

// Validate checks the Spec before any I/O happens. The URL must be an
// absolute http or https URL, and a non-zero Timeouts must satisfy its
// own invariants.
func (s Spec) Validate() error {
	if s.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidSpec)
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: url %q must be absolute http(s)", ErrInvalidSpec, s.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url %q has no host", ErrInvalidSpec, s.URL)
	}
	if s.Method != "" {
		// Reject methods http.NewRequest would reject, before the
		// attempt loop turns the error into a transport failure.
		if _, err := http.NewRequest(s.Method, s.URL, nil); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
	}
	if !s.Timeouts.IsZero() {
		if err := s.Timeouts.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// method returns the effective HTTP method.
func (s Spec) method() string {
	if s.Method == "" {
		return http.MethodGet
	}
	return s.Method
}

// Payload is the successful outcome of a request: the response body
// plus enough response metadata for the caller to act on it.
type Payload struct {
	// StatusCode is the HTTP status of the final attempt.
	StatusCode int

	// Header holds the response headers of the final attempt.
	Header http.Header

	// Body is the full response body.
	Body []byte

	// URL is the request target, echoed back for correlation.
	URL string
}
