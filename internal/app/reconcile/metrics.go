package reconcile

import "github.com/prometheus/client_golang/prometheus"

// Metrics 记录对账扇出的关键指标。
type Metrics struct {
	lookupTotal   *prometheus.CounterVec
	batchSize     prometheus.Histogram
	lookupLatency prometheus.Histogram
}

// NewMetrics 构造 Metrics，reg 为空则注册到默认注册器。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		lookupTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_lookup_total",
			Help: "Ledger status lookups by outcome",
		}, []string{"outcome"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reconcile_batch_size",
			Help:    "Number of pending records per reconciliation pass",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
		lookupLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reconcile_lookup_latency_ms",
			Help:    "Latency of ledger status lookups in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}
	reg.MustRegister(m.lookupTotal, m.batchSize, m.lookupLatency)
	return m
}

func (m *Metrics) incLookup(outcome string) {
	if m == nil {
		return
	}
	m.lookupTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeBatchSize(n int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(n))
}

func (m *Metrics) observeLookupLatency(ms float64) {
	if m == nil {
		return
	}
	m.lookupLatency.Observe(ms)
}
