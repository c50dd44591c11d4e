package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/avosk/go-depot/apierr"
	"github.com/avosk/go-depot/metrics"
	"github.com/avosk/go-depot/request"
	"github.com/avosk/go-depot/retry"
)

// Notes:
// - Counter families are asserted with testutil.GatherAndCompare against
//   the text exposition format; histograms are only counted, since their
//   sample values depend on wall time.

const target = "https://depot.example.com/api/v1/status"

func TestCollectorCounts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	ctx := context.Background()

	okRec := request.AttemptRecord{
		Method:  http.MethodGet,
		URL:     target,
		Attempt: 2,
		Status:  http.StatusOK,
		Elapsed: 10 * time.Millisecond,
	}
	failRec := request.AttemptRecord{
		Method:  http.MethodGet,
		URL:     target,
		Attempt: 1,
		Status:  http.StatusServiceUnavailable,
		Elapsed: 5 * time.Millisecond,
		Failure: apierr.New(apierr.KindServerError, http.StatusServiceUnavailable, target, "boom"),
	}

	collector.OnAttempt(ctx, failRec)
	collector.OnRetry(ctx, failRec, 100*time.Millisecond)
	collector.OnAttempt(ctx, okRec)
	collector.OnSuccess(ctx, okRec)

	expected := `
# HELP depot_request_attempts_total Total request attempts, including retries
# TYPE depot_request_attempts_total counter
depot_request_attempts_total{method="GET",status="200"} 1
depot_request_attempts_total{method="GET",status="503"} 1
# HELP depot_request_failures_total Failed attempts by failure kind
# TYPE depot_request_failures_total counter
depot_request_failures_total{kind="server error"} 1
# HELP depot_request_retries_total Retries scheduled, by the failure kind that caused them
# TYPE depot_request_retries_total counter
depot_request_retries_total{kind="server error"} 1
# HELP depot_requests_total Logical requests by terminal outcome
# TYPE depot_requests_total counter
depot_requests_total{outcome="success"} 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"depot_request_attempts_total",
		"depot_request_failures_total",
		"depot_request_retries_total",
		"depot_requests_total",
	)
	if err != nil {
		t.Errorf("GatherAndCompare() mismatch: %v", err)
	}
}

func TestCollectorTerminalFailure(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	ctx := context.Background()

	rec := request.AttemptRecord{
		Method:  http.MethodGet,
		URL:     target,
		Attempt: 1,
		Status:  http.StatusNotFound,
		Failure: apierr.New(apierr.KindNotFound, http.StatusNotFound, target, "gone"),
	}
	collector.OnAttempt(ctx, rec)
	collector.OnFailure(ctx, rec)

	expected := `
# HELP depot_requests_total Logical requests by terminal outcome
# TYPE depot_requests_total counter
depot_requests_total{outcome="failure"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "depot_requests_total"); err != nil {
		t.Errorf("GatherAndCompare() mismatch: %v", err)
	}
}

func TestCollectorObservesExecutor(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	client, err := request.NewHTTPClient(request.Timeouts{
		Overall: 5 * time.Second,
		Connect: time.Second,
		Read:    2 * time.Second,
	}, "")
	if err != nil {
		t.Fatalf("NewHTTPClient() unexpected error: %v", err)
	}
	exec := request.New(client,
		retry.Policy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		request.WithObserver(metrics.NewCollector(reg)),
	)

	if _, err := exec.Execute(context.Background(), request.Spec{URL: srv.URL}); err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}

	expected := `
# HELP depot_request_failures_total Failed attempts by failure kind
# TYPE depot_request_failures_total counter
depot_request_failures_total{kind="server error"} 1
# HELP depot_request_retries_total Retries scheduled, by the failure kind that caused them
# TYPE depot_request_retries_total counter
depot_request_retries_total{kind="server error"} 1
# HELP depot_requests_total Logical requests by terminal outcome
# TYPE depot_requests_total counter
depot_requests_total{outcome="success"} 1
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"depot_request_failures_total",
		"depot_request_retries_total",
		"depot_requests_total",
	)
	if err != nil {
		t.Errorf("GatherAndCompare() mismatch: %v", err)
	}

	// Histograms carry wall-time samples; just check they were fed.
	for _, name := range []string{"depot_request_attempt_duration_seconds", "depot_retry_delay_seconds"} {
		n, err := testutil.GatherAndCount(reg, name)
		if err != nil {
			t.Fatalf("GatherAndCount(%q) unexpected error: %v", name, err)
		}
		if n == 0 {
			t.Errorf("GatherAndCount(%q) = 0, want at least one series", name)
		}
	}
}
