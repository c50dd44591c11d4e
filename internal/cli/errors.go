package cli

import "errors"

// CLI-specific sentinel errors.
// These are usage/outcome errors that don't belong to domain packages.

var (
	// ErrOutputExists indicates a fetch target file already exists.
	ErrOutputExists = errors.New("output file already exists")

	// ErrPartialFailure indicates a multi-item command completed with at
	// least one item failing.
	ErrPartialFailure = errors.New("completed with failures")
)
