// Package metrics publishes Prometheus instrumentation for the request
// executor: attempt counts, failure kinds, retry activity, and latency.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/avosk/go-depot/request"
)

// Compile-time interface compliance check.
var _ request.Observer = (*Collector)(nil)

// Collector implements request.Observer and feeds executor events into
// Prometheus collectors. Register it on an Executor with
// request.WithObserver.
type Collector struct {
	attempts *prometheus.CounterVec
	failures *prometheus.CounterVec
	retries  *prometheus.CounterVec
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	delay    prometheus.Histogram
}

// NewCollector registers the executor metrics with reg and returns the
// collector. Pass prometheus.DefaultRegisterer to publish on the
// default registry; registering twice on the same registry panics, as
// usual for promauto.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depot_request_attempts_total",
				Help: "Total request attempts, including retries",
			},
			[]string{"method", "status"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depot_request_failures_total",
				Help: "Failed attempts by failure kind",
			},
			[]string{"kind"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depot_request_retries_total",
				Help: "Retries scheduled, by the failure kind that caused them",
			},
			[]string{"kind"},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "depot_requests_total",
				Help: "Logical requests by terminal outcome",
			},
			[]string{"outcome"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "depot_request_attempt_duration_seconds",
				Help:    "Wall time of individual attempts",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		delay: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "depot_retry_delay_seconds",
				Help:    "Backoff delays scheduled between attempts",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
			},
		),
	}
}

// OnAttempt records one completed attempt.
func (c *Collector) OnAttempt(_ context.Context, rec request.AttemptRecord) {
	c.attempts.WithLabelValues(rec.Method, strconv.Itoa(rec.Status)).Inc()
	c.latency.WithLabelValues(rec.Method).Observe(rec.Elapsed.Seconds())
	if rec.Failure != nil {
		c.failures.WithLabelValues(rec.Failure.Kind.String()).Inc()
	}
}

// OnRetry records a scheduled retry and its delay.
func (c *Collector) OnRetry(_ context.Context, rec request.AttemptRecord, delay time.Duration) {
	kind := "unknown"
	if rec.Failure != nil {
		kind = rec.Failure.Kind.String()
	}
	c.retries.WithLabelValues(kind).Inc()
	c.delay.Observe(delay.Seconds())
}

// OnSuccess records a terminal success.
func (c *Collector) OnSuccess(_ context.Context, _ request.AttemptRecord) {
	c.requests.WithLabelValues("success").Inc()
}

// OnFailure records a terminal failure.
func (c *Collector) OnFailure(_ context.Context, _ request.AttemptRecord) {
	c.requests.WithLabelValues("failure").Inc()
}
