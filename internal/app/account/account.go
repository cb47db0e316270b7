package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-sign/solwallet/internal/infra/store"
	"github.com/aegis-sign/solwallet/pkg/apierrors"
)

const defaultHashCost = 10

// Custody 抽象密钥托管能力，由 custody.Service 实现。
type Custody interface {
	CreateKeypair(ctx context.Context, accountID string) (string, error)
	PrivateKey(ctx context.Context, accountID string) (solana.PrivateKey, error)
}

// TokenIssuer 抽象会话令牌签发。
type TokenIssuer interface {
	Issue(accountID string) (string, error)
}

// Service 处理注册、登录与 owner-only 的身份自查。
type Service struct {
	accounts store.AccountStore
	custody  Custody
	tokens   TokenIssuer
	logger   *slog.Logger
	hashCost int
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

// WithHashCost 自定义 bcrypt cost，便于测试提速。
func WithHashCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.hashCost = cost
		}
	}
}

// NewService 构造 Service。
func NewService(accounts store.AccountStore, custody Custody, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if accounts == nil {
		return nil, errors.New("account store is required")
	}
	if custody == nil {
		return nil, errors.New("custody service is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	s := &Service{
		accounts: accounts,
		custody:  custody,
		tokens:   tokens,
		logger:   slog.Default(),
		hashCost: defaultHashCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Signup 注册账户：查重、散列口令、建账户、生成托管密钥对，只返回公钥。
func (s *Service) Signup(ctx context.Context, name, email, password string) (string, error) {
	_, err := s.accounts.AccountByEmail(ctx, email)
	if err == nil {
		return "", apierrors.New(apierrors.CodeDuplicateAccount, "email already registered")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("lookup email: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	id, err := s.accounts.CreateAccount(ctx, store.Account{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	})
	if errors.Is(err, store.ErrDuplicateEmail) {
		return "", apierrors.New(apierrors.CodeDuplicateAccount, "email already registered")
	}
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	publicKey, err := s.custody.CreateKeypair(ctx, id)
	if err != nil {
		return "", fmt.Errorf("create keypair: %w", err)
	}
	s.logger.Info("account registered", "account", id)
	return publicKey, nil
}

// Signin 校验凭证并签发令牌，返回令牌与公钥。
// 未知邮箱与口令不符统一归为 UNAUTHORIZED。
func (s *Service) Signin(ctx context.Context, email, password string) (string, string, error) {
	account, err := s.accounts.AccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", "", apierrors.New(apierrors.CodeUnauthorized, "unknown email")
	}
	if err != nil {
		return "", "", fmt.Errorf("lookup email: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", "", apierrors.New(apierrors.CodeUnauthorized, "incorrect password")
	}
	raw, err := s.tokens.Issue(account.ID)
	if err != nil {
		return "", "", fmt.Errorf("issue token: %w", err)
	}
	return raw, account.PublicKey, nil
}

// PrivateKey 返回调用者本人的私钥（base58），仅服务于 owner-only 自查接口。
func (s *Service) PrivateKey(ctx context.Context, accountID string) (string, error) {
	key, err := s.custody.PrivateKey(ctx, accountID)
	if err != nil {
		return "", err
	}
	return key.String(), nil
}
