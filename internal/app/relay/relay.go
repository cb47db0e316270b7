package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/aegis-sign/solwallet/internal/infra/store"
	"github.com/aegis-sign/solwallet/pkg/apierrors"
	"github.com/aegis-sign/solwallet/pkg/validator"
)

// Ledger 抽象交易广播能力，由 ledger.Client 实现。
type Ledger interface {
	Submit(ctx context.Context, signed []byte) (string, error)
}

// Custody 抽象私钥取用能力。
type Custody interface {
	PrivateKey(ctx context.Context, accountID string) (solana.PrivateKey, error)
}

// Relay 代理签名并广播客户端构造的未签名交易，成功后落一条 PENDING 记录。
type Relay struct {
	ledger  Ledger
	custody Custody
	records store.RecordStore
	clock   func() time.Time
	logger  *slog.Logger
	metrics *Metrics
}

// Option 定义可选参数。
type Option func(*Relay)

// WithLogger 注入日志器。
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock 注入时间来源。
func WithClock(clock func() time.Time) Option {
	return func(r *Relay) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithMetrics 注入指标收集器。
func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		if m != nil {
			r.metrics = m
		}
	}
}

// New 构造 Relay。
func New(ledger Ledger, custody Custody, records store.RecordStore, opts ...Option) (*Relay, error) {
	if ledger == nil {
		return nil, errors.New("ledger client is required")
	}
	if custody == nil {
		return nil, errors.New("custody service is required")
	}
	if records == nil {
		return nil, errors.New("record store is required")
	}
	r := &Relay{
		ledger:  ledger,
		custody: custody,
		records: records,
		clock:   time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Relay 解码、签名并广播一笔交易，返回网络分配的签名。
// 解码失败与广播被拒都不会产生任何记录。
func (r *Relay) Relay(ctx context.Context, ownerID string, category store.Category, payload string) (string, error) {
	raw, err := validator.DecodePayload(payload)
	if err != nil {
		r.metrics.incRelay(category, "malformed")
		return "", apierrors.Wrap(apierrors.CodeMalformedTransaction, "", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		r.metrics.incRelay(category, "malformed")
		return "", apierrors.New(apierrors.CodeMalformedTransaction, fmt.Sprintf("undecodable transaction: %v", err))
	}

	key, err := r.custody.PrivateKey(ctx, ownerID)
	if err != nil {
		r.metrics.incRelay(category, "unknown_account")
		return "", err
	}

	// 签名是纯本地操作；交易若要求托管钱包之外的签名者则在此失败。
	if _, err := tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(key.PublicKey()) {
			return &key
		}
		return nil
	}); err != nil {
		r.metrics.incRelay(category, "malformed")
		return "", apierrors.New(apierrors.CodeMalformedTransaction, fmt.Sprintf("sign transaction: %v", err))
	}
	signed, err := tx.MarshalBinary()
	if err != nil {
		r.metrics.incRelay(category, "malformed")
		return "", apierrors.New(apierrors.CodeMalformedTransaction, fmt.Sprintf("serialize transaction: %v", err))
	}

	start := r.clock()
	signature, err := r.ledger.Submit(ctx, signed)
	if err != nil {
		r.metrics.incRelay(category, "rejected")
		return "", apierrors.New(apierrors.CodeBroadcastRejected, fmt.Sprintf("broadcast rejected: %v", err))
	}
	r.metrics.observeBroadcastLatency(float64(time.Since(start).Milliseconds()))

	record := store.Record{
		Signature: signature,
		Result:    store.ResultPending,
		Timestamp: r.clock().UTC().Format(time.RFC3339),
		Category:  category,
		Owner:     ownerID,
	}
	if err := r.records.AppendRecord(ctx, record); err != nil {
		// 广播已在链上生效且无法撤销；记录缺失会让这笔交易永远无法对账，
		// 必须高声上报而不是吞掉。请求本身仍返回签名。
		r.metrics.incOrphanedBroadcast()
		r.logger.Error("broadcast accepted but record write failed",
			"signature", signature, "owner", ownerID, "category", category, "error", err)
	}
	r.metrics.incRelay(category, "ok")
	return signature, nil
}
