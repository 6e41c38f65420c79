/*
metrics.go - Prometheus instrumentation for the API

PURPOSE:
  Counts and times the expensive operations (simulate, solve, sensitivity)
  and the sensitivity cache. Exposed on /metrics.

  Metrics live in their own registry so tests can build as many handlers
  as they like without colliding on the default registerer.

SEE ALSO:
  - server.go: mounts promhttp on /metrics
  - analysis/cache.go: Cache interface wrapped by InstrumentCache
*/
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/feasibility-engine/analysis"
)

const namespace = "feaso"

// Metrics holds the API's collectors.
type Metrics struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec   // by operation and outcome
	durations  *prometheus.HistogramVec // by operation
	cacheHits  prometheus.Counter
	cacheMiss  prometheus.Counter
	jobsQueued prometheus.Gauge
}

// NewMetrics creates and registers the collectors in a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Wall time of engine operations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"operation"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensitivity_cache_hits_total",
			Help:      "Sensitivity grids served from cache.",
		}),
		cacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensitivity_cache_misses_total",
			Help:      "Sensitivity grids computed.",
		}),
		jobsQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensitivity_jobs_queued",
			Help:      "Sensitivity jobs waiting for a runner.",
		}),
	}
	reg.MustRegister(
		m.operations, m.durations, m.cacheHits, m.cacheMiss, m.jobsQueued,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe records one operation. Call it deferred with the start time and a
// pointer to the named error result.
func (m *Metrics) Observe(operation string, start time.Time, err *error) {
	outcome := "ok"
	if err != nil && *err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.durations.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// =============================================================================
// INSTRUMENTED CACHE
// =============================================================================

type instrumentedCache struct {
	analysis.Cache
	hits, misses prometheus.Counter
}

// InstrumentCache counts hits and misses of c.
func (m *Metrics) InstrumentCache(c analysis.Cache) analysis.Cache {
	return &instrumentedCache{Cache: c, hits: m.cacheHits, misses: m.cacheMiss}
}

func (c *instrumentedCache) Get(key string) ([][]analysis.Cell, bool) {
	grid, ok := c.Cache.Get(key)
	if ok {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
	return grid, ok
}
