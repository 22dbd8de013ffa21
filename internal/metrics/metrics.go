// Package metrics holds the Prometheus instruments for evaluation runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the sentinel. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	TickersEvaluated *prometheus.CounterVec // labels: signal
	TickersSkipped   prometheus.Counter
	CacheRequests    *prometheus.CounterVec   // labels: result=hit|miss|error
	FetchDuration    *prometheus.HistogramVec // labels: kind=history|fundamentals
	RunDuration      prometheus.Histogram
	LastRunTimestamp prometheus.Gauge
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TickersEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "valuation_tickers_evaluated_total",
			Help: "Tickers classified, by signal",
		}, []string{"signal"}),
		TickersSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "valuation_tickers_skipped_total",
			Help: "Tickers that produced no indicator bundle",
		}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "valuation_cache_requests_total",
			Help: "Market data cache lookups, by result",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "valuation_fetch_duration_seconds",
			Help:    "Market data fetch latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"kind"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "valuation_run_duration_seconds",
			Help:    "Wall time of a full watch-list evaluation",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "valuation_last_run_timestamp_seconds",
			Help: "Unix time of the last completed evaluation",
		}),
	}
	reg.MustRegister(
		m.TickersEvaluated,
		m.TickersSkipped,
		m.CacheRequests,
		m.FetchDuration,
		m.RunDuration,
		m.LastRunTimestamp,
	)
	return m
}

// ObserveFetch records the latency of a fetch that began at start.
func (m *Metrics) ObserveFetch(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// CacheResult counts a cache lookup outcome.
func (m *Metrics) CacheResult(result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// Evaluated counts a classified ticker.
func (m *Metrics) Evaluated(signal string) {
	if m == nil {
		return
	}
	m.TickersEvaluated.WithLabelValues(signal).Inc()
}

// Skipped counts a ticker that produced no bundle.
func (m *Metrics) Skipped() {
	if m == nil {
		return
	}
	m.TickersSkipped.Inc()
}

// RunFinished records a completed run.
func (m *Metrics) RunFinished(start, end time.Time) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(end.Sub(start).Seconds())
	m.LastRunTimestamp.Set(float64(end.Unix()))
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
