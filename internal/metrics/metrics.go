// Package metrics exposes Prometheus counters for standings computations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes.
const (
	FetchOK          = "ok"
	FetchUnavailable = "unavailable"
	FetchNoData      = "no_data"
)

// Metrics owns a private registry. A nil *Metrics discards everything.
type Metrics struct {
	registry    *prometheus.Registry
	fetches     *prometheus.CounterVec
	runs        prometheus.Counter
	runDuration prometheus.Histogram
	unresolved  prometheus.Counter
	played      prometheus.Gauge
}

// New registers the standings collectors plus the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "standings",
			Name:      "match_fetches_total",
			Help:      "Match file fetches by outcome.",
		}, []string{"outcome"}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "standings",
			Name:      "computations_total",
			Help:      "Completed standings computations.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "standings",
			Name:      "computation_duration_seconds",
			Help:      "Wall time of one standings computation.",
			Buckets:   prometheus.DefBuckets,
		}),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "standings",
			Name:      "unresolved_rows_total",
			Help:      "Match rows whose player is not on the roster.",
		}),
		played: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "standings",
			Name:      "matches_played",
			Help:      "Matches with data in the latest computation.",
		}),
	}
	m.registry.MustRegister(
		m.fetches, m.runs, m.runDuration, m.unresolved, m.played,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Fetch counts one fetch outcome.
func (m *Metrics) Fetch(outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
}

// Unresolved counts rows that matched no roster player.
func (m *Metrics) Unresolved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.unresolved.Add(float64(n))
}

// Run records a finished computation.
func (m *Metrics) Run(d time.Duration, played int) {
	if m == nil {
		return
	}
	m.runs.Inc()
	m.runDuration.Observe(d.Seconds())
	m.played.Set(float64(played))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
