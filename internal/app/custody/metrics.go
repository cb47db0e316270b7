package custody

import "github.com/prometheus/client_golang/prometheus"

// Metrics 记录私钥缓存的命中情况。
type Metrics struct {
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewMetrics 构造 Metrics，reg 为空则注册到默认注册器。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "custody_key_cache_hits_total",
			Help: "Private key cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "custody_key_cache_misses_total",
			Help: "Private key cache misses",
		}),
	}
	reg.MustRegister(m.cacheHits, m.cacheMisses)
	return m
}

func (m *Metrics) incCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) incCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}
