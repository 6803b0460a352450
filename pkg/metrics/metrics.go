// Package metrics exposes relay activity as prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the relay's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	sends         *prometheus.CounterVec
	inbound       *prometheus.CounterVec
	enrichment    *prometheus.CounterVec
	flushFailures prometheus.Counter
	activeThreads prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "picorelay",
			Name:      "sends_total",
			Help:      "Outbound sends by kind (new_thread, reply) and result.",
		}, []string{"kind", "result"}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "picorelay",
			Name:      "inbound_total",
			Help:      "Inbound counterparty messages by resolution result.",
		}, []string{"result"}),
		enrichment: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "picorelay",
			Name:      "enrichment_total",
			Help:      "Enrichment fires by mode and result.",
		}, []string{"mode", "result"}),
		flushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "picorelay",
			Name:      "flush_failures_total",
			Help:      "Thread store flushes that failed and were rolled back.",
		}),
		activeThreads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "picorelay",
			Name:      "active_threads",
			Help:      "Threads currently accepting sends.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sends, m.inbound, m.enrichment, m.flushFailures, m.activeThreads)
	}
	return m
}

func (m *Metrics) Send(kind, result string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Inbound(result string) {
	if m == nil {
		return
	}
	m.inbound.WithLabelValues(result).Inc()
}

func (m *Metrics) Enrichment(mode, result string) {
	if m == nil {
		return
	}
	m.enrichment.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) FlushFailure() {
	if m == nil {
		return
	}
	m.flushFailures.Inc()
}

func (m *Metrics) SetActiveThreads(n int) {
	if m == nil {
		return
	}
	m.activeThreads.Set(float64(n))
}
