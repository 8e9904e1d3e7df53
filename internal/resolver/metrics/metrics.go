package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the resolver module.
type Metrics struct {
	// Final outcomes by entity type and method
	Resolutions *prometheus.CounterVec

	// Per-strategy store latency
	StrategyLatency *prometheus.HistogramVec

	// Cache lookups by outcome: "hit", "miss", "error", "bypass"
	CacheLookups *prometheus.CounterVec

	// Strategies that failed and were skipped
	Degraded *prometheus.CounterVec

	BatchSize prometheus.Histogram

	ResolveLatency *prometheus.HistogramVec
}

// New registers resolver metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers resolver metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medadmit_resolver_resolutions_total",
			Help: "Resolved identifiers by entity type and method",
		}, []string{"type", "method"}),

		StrategyLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medadmit_resolver_strategy_duration_seconds",
			Help:    "Duration of a single matcher attempt",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}, []string{"strategy"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medadmit_resolver_cache_lookups_total",
			Help: "Resolution cache lookups by outcome",
		}, []string{"outcome"}),

		Degraded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medadmit_resolver_degraded_total",
			Help: "Matcher attempts that failed on a backend error or timeout",
		}, []string{"strategy"}),

		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "medadmit_resolver_batch_size",
			Help:    "Identifiers per batch request",
			Buckets: []float64{1, 5, 10, 25, 50, 75, 100},
		}),

		ResolveLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medadmit_resolver_resolve_duration_seconds",
			Help:    "End-to-end resolution latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"path"}), // path: "single", "batch"
	}
}

func (m *Metrics) IncrementResolution(entityType, method string) {
	if m != nil {
		m.Resolutions.WithLabelValues(entityType, method).Inc()
	}
}

func (m *Metrics) ObserveStrategyLatency(strategy string, d time.Duration) {
	if m != nil {
		m.StrategyLatency.WithLabelValues(strategy).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementCacheLookup(outcome string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementDegraded(strategy string) {
	if m != nil {
		m.Degraded.WithLabelValues(strategy).Inc()
	}
}

func (m *Metrics) ObserveBatchSize(n int) {
	if m != nil {
		m.BatchSize.Observe(float64(n))
	}
}

func (m *Metrics) ObserveResolveLatency(path string, d time.Duration) {
	if m != nil {
		m.ResolveLatency.WithLabelValues(path).Observe(d.Seconds())
	}
}
