package custody

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/aegis-sign/solwallet/internal/infra/store"
	"github.com/aegis-sign/solwallet/pkg/apierrors"
)

// Service 托管账户密钥对：创建时落库，使用时只在已认证的请求上下文中取出。
// 私钥除创建落库外不经任何响应返回。
type Service struct {
	accounts store.AccountStore
	cache    *keyCache
	logger   *slog.Logger
	metrics  *Metrics
}

// Option 定义可选参数。
type Option func(*Service)

// WithLogger 注入日志器。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCacheTTL 开启私钥内存缓存并设置有效期，0 表示关闭。
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cache = newKeyCache(ttl, time.Now)
		}
	}
}

// WithMetrics 注入指标收集器。
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewService 构造 Service。
func NewService(accounts store.AccountStore, opts ...Option) (*Service, error) {
	if accounts == nil {
		return nil, errors.New("account store is required")
	}
	s := &Service{
		accounts: accounts,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateKeypair 为账户生成新密钥对并持久化两半，只返回公钥。
func (s *Service) CreateKeypair(ctx context.Context, accountID string) (string, error) {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		return "", fmt.Errorf("generate keypair: %w", err)
	}
	publicKey := priv.PublicKey().String()
	if err := s.accounts.SetKeypair(ctx, accountID, publicKey, priv.String()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apierrors.New(apierrors.CodeUnknownAccount, "no such account")
		}
		return "", fmt.Errorf("persist keypair: %w", err)
	}
	s.logger.Info("keypair created", "account", accountID, "public_key", publicKey)
	return publicKey, nil
}

// PrivateKey 返回已认证账户的私钥材料，账户或密钥缺失时报 UNKNOWN_ACCOUNT。
func (s *Service) PrivateKey(ctx context.Context, accountID string) (solana.PrivateKey, error) {
	if key, ok := s.cache.get(accountID); ok {
		s.metrics.incCacheHit()
		return key, nil
	}
	s.metrics.incCacheMiss()
	account, err := s.accounts.AccountByID(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apierrors.New(apierrors.CodeUnknownAccount, "no such account")
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account.PrivateKey == "" {
		return nil, apierrors.New(apierrors.CodeUnknownAccount, "no keypair for account")
	}
	key, err := solana.PrivateKeyFromBase58(account.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	s.cache.put(accountID, key)
	return key, nil
}
