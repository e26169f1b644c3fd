// Package metrics exposes Prometheus instruments for universe builds.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "universe"

// Metrics holds the collectors registered on a private registry
type Metrics struct {
	registry *prometheus.Registry

	BuildsTotal   *prometheus.CounterVec
	BuildDuration prometheus.Histogram
	UniverseSize  prometheus.Gauge
	CacheHits     prometheus.Counter
}

// New creates a Metrics instance with all collectors registered
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		BuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "builds_total",
			Help:      "Universe builds by outcome",
		}, []string{"status"}),
		BuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "build_duration_seconds",
			Help:      "Time spent evaluating the universe screen",
			Buckets:   prometheus.DefBuckets,
		}),
		UniverseSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "selected_stocks",
			Help:      "Number of stocks in the most recently built universe",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "cache_hits_total",
			Help:      "Universe builds served from cache",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
