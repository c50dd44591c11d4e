package request

import (
	"context"
	"time"

	"github.com/avosk/go-depot/retry"
)

// Exports for testing. These allow black-box tests to inject
// dependencies without widening the public API.

// Doer exports httpDoer so tests can declare mock clients.
type Doer = httpDoer

// NewTestExecutor creates an Executor whose sleep function is replaced,
// so retry tests run without real delays. A nil sleep keeps the
// context-aware default.
func NewTestExecutor(client httpDoer, policy retry.Policy, sleep func(context.Context, time.Duration) error, opts ...ExecutorOption) *Executor {
	e := New(client, policy, opts...)
	if sleep != nil {
		e.sleep = sleep
	}
	return e
}

// SleepContext exports sleepContext for testing.
var SleepContext = sleepContext
