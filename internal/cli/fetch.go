package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	depot "github.com/avosk/go-depot"
	"github.com/avosk/go-depot/metrics"
)

// FetchCmd creates the fetch command.
func FetchCmd(env *Env) *cobra.Command {
	var (
		outputDir   string
		parallel    int
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "fetch <hash>...",
		Short: "Download artifacts to files",
		Long: `Download one or more artifacts by their SHA-256 content hash.

Each artifact is written to <output-dir>/<hash>. Downloads run
concurrently under the --parallel cap, and one failed download does
not stop the others: failures are reported per item and the command
exits non-zero if any item failed.

With --metrics-addr, request metrics are served on that address at
/metrics for the duration of the run.`,
		Example: `  depot fetch 3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855c
  depot fetch <hash-a> <hash-b> <hash-c> -o ./artifacts -p 8
  depot fetch <hash> --metrics-addr 127.0.0.1:2112`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, env, args, outputDir, parallel, metricsAddr)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Directory to write artifacts into")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "Max concurrent downloads (0 = DEPOT_PARALLEL)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")

	return cmd
}

// runFetch downloads every hash and writes each to its own file.
// Validation order: output dir -> client config -> hashes (inside
// DownloadMany). Download and write failures are per-item.
func runFetch(cmd *cobra.Command, env *Env, hashes []string, outputDir string, parallel int, metricsAddr string) error {
	ctx := cmd.Context()

	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}

	var opts []depot.Option
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, depot.WithObserver(metrics.NewCollector(reg)))

		srv := serveMetrics(env, metricsAddr, reg)
		defer func() { _ = srv.Close() }()
	}

	client, err := newClient(env, opts...)
	if err != nil {
		return err
	}

	// The result map holds one entry per unique hash; repeated
	// arguments would otherwise hit the O_EXCL write twice.
	hashes = dedupe(hashes)

	fmt.Fprintf(env.Stderr, "Fetching %d artifacts...\n", len(hashes))
	results, err := client.DownloadMany(ctx, hashes, parallel)
	if err != nil {
		return err
	}

	failed := 0
	for _, hash := range hashes {
		res := results[hash]
		if !res.Succeeded() {
			fmt.Fprintf(env.Stderr, "Error: %s: %v\n", shortHash(hash), res.Err)
			failed++
			continue
		}

		path := filepath.Join(outputDir, hash)
		if err := writeArtifact(path, res.Payload.Body); err != nil {
			fmt.Fprintf(env.Stderr, "Error: %s: %v\n", shortHash(hash), err)
			failed++
			continue
		}
		fmt.Fprintf(env.Stdout, "%s  %s\n", shortHash(hash), path)
	}

	fmt.Fprintf(env.Stderr, "Done: %d/%d fetched\n", len(hashes)-failed, len(hashes))
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d downloads failed", ErrPartialFailure, failed, len(hashes))
	}
	return nil
}

// serveMetrics exposes reg on addr at /metrics until the returned
// server is closed. Listen failures are reported as warnings: metrics
// are an aid to the run, not a reason to abort it.
func serveMetrics(env *Env, addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(env.Stderr, "Warning: metrics server: %v\n", err)
		}
	}()
	return srv
}

// dedupe removes repeated hashes, keeping first-occurrence order.
func dedupe(hashes []string) []string {
	seen := make(map[string]bool, len(hashes))
	out := make([]string, 0, len(hashes))
	for _, h := range hashes {
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
