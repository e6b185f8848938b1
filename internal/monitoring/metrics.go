// Package monitoring exposes Prometheus instrumentation for the
// qualification pipeline.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is
// valid and records nothing, so instrumented code never branches on it.
type Metrics struct {
	registry *prometheus.Registry

	candidates      *prometheus.CounterVec
	modelCalls      *prometheus.CounterVec
	crawlFailures   prometheus.Counter
	qualifyDuration prometheus.Histogram
	batchRuns       prometheus.Counter
}

// New creates and registers the pipeline collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		candidates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_candidates_total",
				Help: "Candidates processed, labeled by assigned tier (or failed).",
			},
			[]string{"tier"},
		),
		modelCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadscout_model_calls_total",
				Help: "Model provider submissions, labeled by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		crawlFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leadscout_crawl_failures_total",
				Help: "Crawl attempts that produced no usable content.",
			},
		),
		qualifyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leadscout_qualify_duration_seconds",
				Help:    "Wall-clock duration of a single candidate qualification.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		batchRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leadscout_batch_runs_total",
				Help: "Pipeline batch runs started.",
			},
		),
	}
	reg.MustRegister(m.candidates, m.modelCalls, m.crawlFailures, m.qualifyDuration, m.batchRuns)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCandidate records one processed candidate by tier.
func (m *Metrics) ObserveCandidate(tier string) {
	if m == nil {
		return
	}
	m.candidates.WithLabelValues(tier).Inc()
}

// ObserveModelCall records one provider submission outcome
// ("ok", "error", "quota", "rate_limited").
func (m *Metrics) ObserveModelCall(provider, outcome string) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(provider, outcome).Inc()
}

// ObserveCrawlFailure records an unusable crawl result.
func (m *Metrics) ObserveCrawlFailure() {
	if m == nil {
		return
	}
	m.crawlFailures.Inc()
}

// ObserveQualifyDuration records one candidate's qualification latency.
func (m *Metrics) ObserveQualifyDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.qualifyDuration.Observe(d.Seconds())
}

// ObserveBatchRun records a pipeline run start.
func (m *Metrics) ObserveBatchRun() {
	if m == nil {
		return
	}
	m.batchRuns.Inc()
}
