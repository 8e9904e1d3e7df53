package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions      *prometheus.CounterVec
	ConfigMissing  *prometheus.CounterVec
	StoreErrors    prometheus.Counter
	FallbackActive prometheus.Gauge
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medadmit_ratelimit_decisions_total",
			Help: "Total number of rate limit decisions by endpoint class and outcome",
		}, []string{"class", "outcome"}),
		ConfigMissing: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medadmit_ratelimit_config_missing_total",
			Help: "Total number of requests denied because their class has no configured limit",
		}, []string{"class"}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "medadmit_ratelimit_store_errors_total",
			Help: "Total number of primary bucket store failures",
		}),
		FallbackActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "medadmit_ratelimit_fallback_active",
			Help: "1 while rate limiting is served from in-process buckets",
		}),
	}
}

func (m *Metrics) RecordDecision(class string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.Decisions.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) IncrementConfigMissing(class string) {
	if m == nil {
		return
	}
	m.ConfigMissing.WithLabelValues(class).Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}

func (m *Metrics) SetFallbackActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.FallbackActive.Set(1)
	} else {
		m.FallbackActive.Set(0)
	}
}
