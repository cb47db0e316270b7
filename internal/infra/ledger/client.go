package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// maxTxVersion 允许查询 v0 版本交易。
var maxTxVersion uint64 = 0

// Outcome 描述一次 finalized 级别状态查询的结论。
// Finalized 为 false 表示网络尚未对该签名出结果。
type Outcome struct {
	Finalized bool
	ExecErr   string
}

// Client 是远端账本 RPC 的薄适配层：提交已签名交易、查询签名状态。
// 不做内部重试，重试策略由调用方决定。
type Client struct {
	rpc         *rpc.Client
	callTimeout time.Duration
}

// NewClient 构造 Client。
func NewClient(cfg Config) *Client {
	if cfg.RPCURL == "" {
		cfg.RPCURL = DefaultConfig().RPCURL
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultConfig().CallTimeout
	}
	return &Client{
		rpc:         rpc.New(cfg.RPCURL),
		callTimeout: cfg.CallTimeout,
	}
}

// Submit 提交已签名的序列化交易，开启 preflight 模拟并使用 confirmed 级别。
// 节点拒绝（模拟失败、节点错误）与传输错误一并返回给调用方。
func (c *Client) Submit(ctx context.Context, signed []byte) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	sig, err := c.rpc.SendRawTransactionWithOpts(callCtx, signed, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	return sig.String(), nil
}

// Status 在 finalized 级别查询签名状态。
// 未找到（尚未终局）返回零值 Outcome 与 nil 错误；传输/节点错误原样返回。
func (c *Client) Status(ctx context.Context, signature string) (Outcome, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return Outcome{}, fmt.Errorf("parse signature: %w", err)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	out, err := c.rpc.GetTransaction(callCtx, sig, &rpc.GetTransactionOpts{
		Commitment:                     rpc.CommitmentFinalized,
		Encoding:                       solana.EncodingBase64,
		MaxSupportedTransactionVersion: &maxTxVersion,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return Outcome{}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("get transaction: %w", err)
	}
	if out == nil {
		return Outcome{}, nil
	}
	outcome := Outcome{Finalized: true}
	if out.Meta != nil && out.Meta.Err != nil {
		outcome.ExecErr = fmt.Sprintf("%v", out.Meta.Err)
	}
	return outcome, nil
}
