package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"

	depot "github.com/avosk/go-depot"
)

// Test artifact hashes and contents shared across command tests.
const (
	alphaBody = "alpha artifact bytes"
	betaBody  = "beta artifact bytes"
)

var (
	hashAlpha = strings.Repeat("a1", 32)
	hashBeta  = strings.Repeat("b2", 32)
	hashGone  = strings.Repeat("0f", 32)
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// staticEnv returns a getenv function that reads from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// newDepotServer serves a two-artifact store and counts requests.
func newDepotServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	content := map[string]string{hashAlpha: alphaBody, hashBeta: betaBody}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"version":"1.4.2","healthy":true,"artifacts":2,"used_bytes":1048576}`)
	})
	mux.HandleFunc("GET /api/v1/artifacts/{hash}", func(w http.ResponseWriter, r *http.Request) {
		hash := r.PathValue("hash")
		body, ok := content[hash]
		if !ok {
			http.Error(w, "artifact not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"hash":%q,"size":%d,"content_type":"text/plain","created_at":"2026-05-11T09:30:00Z","labels":{"team":"infra"}}`, hash, len(body))
	})
	mux.HandleFunc("GET /api/v1/artifacts/{hash}/content", func(w http.ResponseWriter, r *http.Request) {
		body, ok := content[r.PathValue("hash")]
		if !ok {
			http.Error(w, "artifact not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, body)
	})

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// testEnv creates an Env pointed at baseURL with retries disabled.
// Returns the Env plus its stdout and stderr buffers for assertions.
func testEnv(baseURL string) (*Env, *syncBuffer, *syncBuffer) {
	stdout := &syncBuffer{}
	stderr := &syncBuffer{}
	env := NewEnv(
		WithStdout(stdout),
		WithStderr(stderr),
		WithGetenv(staticEnv(map[string]string{
			depot.EnvBaseURL:    baseURL,
			depot.EnvMaxRetries: "0",
			depot.EnvBaseDelay:  "1ms",
		})),
	)
	return env, stdout, stderr
}

// newTestCmd creates a bare cobra.Command carrying ctx, for driving
// run* functions directly.
func newTestCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	return cmd
}
