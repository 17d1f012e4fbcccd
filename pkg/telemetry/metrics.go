package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the pipeline. A disabled Metrics
// is a no-op, so library code can call it unconditionally. It satisfies
// runner.MetricsObserver and scratch.Observer.
type Metrics struct {
	enabled bool

	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec

	scratchLive      prometheus.Gauge
	scratchAllocated prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector from configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{}, nil
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		enabled:  true,
		registry: registry,

		invocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "invocations_total",
				Help:      "Total number of external program invocations",
			},
			[]string{"program", "status"},
		),
		invocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Duration of external program invocations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"program"},
		),
		scratchLive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "scratch_files_live",
				Help:      "Number of currently tracked scratch files",
			},
		),
		scratchAllocated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "scratch_files_allocated_total",
				Help:      "Total number of scratch files allocated",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		m.invocationsTotal,
		m.invocationDuration,
		m.scratchLive,
		m.scratchAllocated,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveInvocation records one external program invocation.
func (m *Metrics) ObserveInvocation(program, status string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.invocationsTotal.WithLabelValues(program, status).Inc()
	m.invocationDuration.WithLabelValues(program).Observe(d.Seconds())
}

// TempAllocated records one scratch file allocation.
func (m *Metrics) TempAllocated() {
	if !m.enabled {
		return
	}
	m.scratchAllocated.Inc()
	m.scratchLive.Inc()
}

// TempReleased records one scratch file release.
func (m *Metrics) TempReleased() {
	if !m.enabled {
		return
	}
	m.scratchLive.Dec()
}

// Handler returns an HTTP handler exposing the registry, or nil when
// metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
