package reconcile

import "log/slog"

// Config 控制对账扇出行为。
type Config struct {
	// MaxInFlight 限制单批并发账本查询数，防止 pending 集合耗尽连接。
	MaxInFlight int
	// RateLimit 为每秒账本查询上限，0 表示不限。
	RateLimit float64
	RateBurst int
	Logger    *slog.Logger
	Metrics   *Metrics
}

func (c *Config) normalize() Config {
	cfg := *c
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 16
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}
