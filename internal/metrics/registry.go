// Package metrics exposes job and fetch counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the screener's metrics on a private prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	RunsTotal      *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	LastCandidates prometheus.Gauge
	FetchErrors    *prometheus.CounterVec
	CacheFallbacks prometheus.Counter
}

// NewRegistry creates and registers every metric.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_runs_total",
				Help: "Scheduled and manual job runs by job and result",
			},
			[]string{"job", "result"},
		),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "screener_run_duration_seconds",
				Help:    "Duration of job runs in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"job"},
		),

		LastCandidates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "screener_last_candidates",
				Help: "Candidates produced by the most recent search",
			},
		),

		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_fetch_errors_total",
				Help: "Remote fetch failures by source",
			},
			[]string{"source"},
		),

		CacheFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "screener_cache_fallbacks_total",
				Help: "Fetches served from a stale cache after a remote failure",
			},
		),
	}
	r.reg.MustRegister(r.RunsTotal, r.RunDuration, r.LastCandidates, r.FetchErrors, r.CacheFallbacks)
	return r
}

// ObserveRun records one job run.
func (r *Registry) ObserveRun(job string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.RunsTotal.WithLabelValues(job, result).Inc()
	r.RunDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
}

// SkipRun records a tick dropped because another job held the lock.
func (r *Registry) SkipRun(job string) {
	r.RunsTotal.WithLabelValues(job, "skipped").Inc()
}

// SetCandidates records the size of the latest search.
func (r *Registry) SetCandidates(n int) { r.LastCandidates.Set(float64(n)) }

// FetchFailed implements collector.Observer.
func (r *Registry) FetchFailed(source string) { r.FetchErrors.WithLabelValues(source).Inc() }

// CacheFallback implements collector.Observer.
func (r *Registry) CacheFallback() { r.CacheFallbacks.Inc() }

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
