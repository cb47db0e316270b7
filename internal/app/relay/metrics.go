package relay

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aegis-sign/solwallet/internal/infra/store"
)

// Metrics 记录签名转发的关键指标。
type Metrics struct {
	relayTotal       *prometheus.CounterVec
	broadcastLatency prometheus.Histogram
	orphanedTotal    prometheus.Counter
}

// NewMetrics 构造 Metrics，reg 为空则注册到默认注册器。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		relayTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_total",
			Help: "Relay attempts by category and outcome",
		}, []string{"category", "outcome"}),
		broadcastLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_broadcast_latency_ms",
			Help:    "Latency of ledger broadcast in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),
		orphanedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_orphaned_broadcast_total",
			Help: "Broadcasts accepted by the ledger whose record write failed",
		}),
	}
	reg.MustRegister(m.relayTotal, m.broadcastLatency, m.orphanedTotal)
	return m
}

func (m *Metrics) incRelay(category store.Category, outcome string) {
	if m == nil {
		return
	}
	m.relayTotal.WithLabelValues(string(category), outcome).Inc()
}

func (m *Metrics) observeBroadcastLatency(ms float64) {
	if m == nil {
		return
	}
	m.broadcastLatency.Observe(ms)
}

func (m *Metrics) incOrphanedBroadcast() {
	if m == nil {
		return
	}
	m.orphanedTotal.Inc()
}
