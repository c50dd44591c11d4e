package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	depot "github.com/avosk/go-depot"
	"github.com/avosk/go-depot/apierr"
	"github.com/avosk/go-depot/internal/cli"
	"github.com/avosk/go-depot/request"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitConfig     = 3
	ExitValidation = 4
	ExitRequest    = 5
	ExitPartial    = 6
	ExitInterrupt  = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create the CLI environment with production defaults.
	env := cli.DefaultEnv()

	var debug bool

	rootCmd := &cobra.Command{
		Use:     "depot",
		Short:   "Fetch artifacts from a Depot content-addressed store",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			initLogger(debug)
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	// Subcommands.
	rootCmd.AddCommand(cli.StatusCmd(env))
	rootCmd.AddCommand(cli.InfoCmd(env))
	rootCmd.AddCommand(cli.FetchCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// initLogger installs the process-wide slog handler. Request attempt
// and retry details only appear at debug level.
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors: Cobra flag/arg parsing errors.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Configuration errors.
	if errors.Is(err, depot.ErrInvalidConfig) {
		return ExitConfig
	}

	// Validation errors: bad input caught before any request.
	if errors.Is(err, depot.ErrInvalidHash) || errors.Is(err, request.ErrInvalidSpec) ||
		errors.Is(err, request.ErrInvalidTimeouts) || errors.Is(err, cli.ErrOutputExists) {
		return ExitValidation
	}

	// Partial batch failure: some items succeeded, some did not.
	if errors.Is(err, cli.ErrPartialFailure) {
		return ExitPartial
	}

	// Request failures against the service.
	if errors.Is(err, apierr.ErrUnauthorized) || errors.Is(err, apierr.ErrNotFound) ||
		errors.Is(err, apierr.ErrRateLimited) || errors.Is(err, apierr.ErrBadRequest) ||
		errors.Is(err, apierr.ErrServerError) || errors.Is(err, apierr.ErrOther) ||
		errors.Is(err, apierr.ErrTransport) {
		return ExitRequest
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate
// Cobra usage errors. Cobra doesn't expose typed errors, so string
// matching is the only reliable approach. These patterns are stable
// across Cobra versions (tested with v1.8+).
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
