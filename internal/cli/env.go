package cli

import (
	"io"
	"os"

	depot "github.com/avosk/go-depot"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing commands in isolation.
//
// All fields have production defaults via DefaultEnv(). Tests override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command constructors. Use
// DefaultEnv() or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	// ClientFactory builds the Depot client commands talk through.
	ClientFactory ClientFactory
}

// ClientFactory creates Depot clients.
type ClientFactory interface {
	NewClient(cfg depot.Config, opts ...depot.Option) (*depot.Client, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithClientFactory sets the client factory.
func WithClientFactory(f ClientFactory) EnvOption {
	return func(e *Env) {
		e.ClientFactory = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		Getenv:        os.Getenv,
		ClientFactory: &defaultClientFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// newClient assembles a client from the DEPOT_* environment.
func newClient(env *Env, opts ...depot.Option) (*depot.Client, error) {
	cfg, err := depot.ConfigFromEnv(env.Getenv)
	if err != nil {
		return nil, err
	}
	return env.ClientFactory.NewClient(cfg, opts...)
}

// defaultClientFactory delegates to the depot package.
type defaultClientFactory struct{}

func (defaultClientFactory) NewClient(cfg depot.Config, opts ...depot.Option) (*depot.Client, error) {
	return depot.New(cfg, opts...)
}

// Compile-time interface verification.
var _ ClientFactory = (*defaultClientFactory)(nil)
