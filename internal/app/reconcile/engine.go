package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aegis-sign/solwallet/internal/infra/ledger"
	"github.com/aegis-sign/solwallet/internal/infra/store"
)

// Ledger 抽象 finalized 级别的签名状态查询，由 ledger.Client 实现。
type Ledger interface {
	Status(ctx context.Context, signature string) (ledger.Outcome, error)
}

// Engine 在读取交易历史时顺带推进 pending 记录：
// 对每条 pending 并发查询账本，能定论的写入终态，查询失败的原样保留。
// 没有后台调度器，读取本身就是重试。
type Engine struct {
	records store.RecordStore
	ledger  Ledger
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *Metrics
}

// NewEngine 构造 Engine。
func NewEngine(records store.RecordStore, statusClient Ledger, cfg Config) (*Engine, error) {
	if records == nil {
		return nil, errors.New("record store is required")
	}
	if statusClient == nil {
		return nil, errors.New("ledger client is required")
	}
	normalized := cfg.normalize()
	e := &Engine{
		records: records,
		ledger:  statusClient,
		cfg:     normalized,
		logger:  normalized.Logger,
		metrics: normalized.Metrics,
	}
	if normalized.RateLimit > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(normalized.RateLimit), normalized.RateBurst)
	}
	return e, nil
}

// ListAndReconcile 返回 owner 的全部记录；若存在 pending 记录，
// 先对账再重新读取，保证返回的是推进后的状态。
func (e *Engine) ListAndReconcile(ctx context.Context, ownerID string) ([]store.Record, error) {
	all, err := e.records.RecordsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	var pending []store.Record
	for _, record := range all {
		if record.Result == store.ResultPending {
			pending = append(pending, record)
		}
	}
	if len(pending) == 0 {
		return all, nil
	}
	e.metrics.observeBatchSize(len(pending))

	// 有界扇出：整批必须落定（成功、跳过或单条失败）后才返回。
	sem := make(chan struct{}, e.cfg.MaxInFlight)
	var wg sync.WaitGroup
	for _, record := range pending {
		wg.Add(1)
		go func(record store.Record) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			e.resolve(ctx, record)
		}(record)
	}
	wg.Wait()

	refreshed, err := e.records.RecordsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("reload records: %w", err)
	}
	return refreshed, nil
}

// resolve 查询单条 pending 记录并在能定论时写入终态。
// 查询失败只记日志，不影响整批。
func (e *Engine) resolve(ctx context.Context, record store.Record) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			e.metrics.incLookup("error")
			return
		}
	}
	start := time.Now()
	outcome, err := e.ledger.Status(ctx, record.Signature)
	e.metrics.observeLookupLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		e.metrics.incLookup("error")
		e.logger.Warn("status lookup failed, record stays pending",
			"signature", record.Signature, "error", err)
		return
	}
	if !outcome.Finalized {
		e.metrics.incLookup("pending")
		return
	}
	result := store.ResultSuccess
	label := "success"
	if outcome.ExecErr != "" {
		result = store.ResultFailed
		label = "failed"
	}
	updated, err := e.records.MarkResult(ctx, record.Signature, result)
	if err != nil {
		e.metrics.incLookup("error")
		e.logger.Warn("record update failed",
			"signature", record.Signature, "result", result, "error", err)
		return
	}
	e.metrics.incLookup(label)
	if !updated {
		// 另一批次已抢先写入终态，条件更新保证不会回退。
		return
	}
	e.logger.Info("record finalized", "signature", record.Signature, "result", result)
}
