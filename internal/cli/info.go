package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// InfoCmd creates the info command.
func InfoCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "info <hash>...",
		Short: "Show artifact metadata",
		Long: `Show the metadata record of one or more artifacts, identified by
their SHA-256 content hash.`,
		Example: `  depot info 3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855c
  depot info <hash-a> <hash-b>`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, env, args)
		},
	}
}

// runInfo looks up each hash in turn. Lookups that fail are reported
// to stderr and the command keeps going; any failure makes the whole
// command exit with ErrPartialFailure.
func runInfo(cmd *cobra.Command, env *Env, hashes []string) error {
	client, err := newClient(env)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	failed := 0
	for i, hash := range hashes {
		art, err := client.ArtifactInfo(ctx, hash)
		if err != nil {
			fmt.Fprintf(env.Stderr, "Error: %s: %v\n", shortHash(hash), err)
			failed++
			continue
		}

		if i > 0 {
			fmt.Fprintln(env.Stdout)
		}
		fmt.Fprintf(env.Stdout, "hash:         %s\n", art.Hash)
		fmt.Fprintf(env.Stdout, "size:         %s\n", formatBytes(art.Size))
		fmt.Fprintf(env.Stdout, "content-type: %s\n", art.ContentType)
		fmt.Fprintf(env.Stdout, "created:      %s\n", art.CreatedAt.Format(time.RFC3339))
		if len(art.Labels) > 0 {
			fmt.Fprintf(env.Stdout, "labels:       %s\n", formatLabels(art.Labels))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d lookups failed", ErrPartialFailure, failed, len(hashes))
	}
	return nil
}

// shortHash abbreviates a hash for log and error lines. Invalid
// (short) hashes pass through untouched.
func shortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}
