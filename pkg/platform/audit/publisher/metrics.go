package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit publishing.
type Metrics struct {
	Emitted       prometheus.Counter
	Dropped       prometheus.Counter
	Flushed       prometheus.Counter
	FlushFailures prometheus.Counter
	Buffered      prometheus.Gauge
}

// NewMetrics registers audit publisher metrics with the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer registers audit publisher metrics with reg.
func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Emitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "medadmit_audit_events_emitted_total",
			Help: "Total number of audit events accepted into the buffer",
		}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "medadmit_audit_events_dropped_total",
			Help: "Total number of audit events dropped because the buffer was full or the sink failed",
		}),
		Flushed: factory.NewCounter(prometheus.CounterOpts{
			Name: "medadmit_audit_events_flushed_total",
			Help: "Total number of audit events written to the sink",
		}),
		FlushFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "medadmit_audit_flush_failures_total",
			Help: "Total number of failed sink writes",
		}),
		Buffered: factory.NewGauge(prometheus.GaugeOpts{
			Name: "medadmit_audit_events_buffered",
			Help: "Current number of audit events waiting to be flushed",
		}),
	}
}

func (m *Metrics) IncEmitted() {
	if m == nil {
		return
	}
	m.Emitted.Inc()
}

func (m *Metrics) AddDropped(n int) {
	if m == nil {
		return
	}
	m.Dropped.Add(float64(n))
}

func (m *Metrics) AddFlushed(n int) {
	if m == nil {
		return
	}
	m.Flushed.Add(float64(n))
}

func (m *Metrics) IncFlushFailures() {
	if m == nil {
		return
	}
	m.FlushFailures.Inc()
}

func (m *Metrics) SetBuffered(n int) {
	if m == nil {
		return
	}
	m.Buffered.Set(float64(n))
}
