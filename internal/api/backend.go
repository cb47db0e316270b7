package walletapi

import (
	"context"

	"github.com/aegis-sign/solwallet/internal/infra/store"
)

// Accounts 定义账户注册/登录/自查能力，由 account.Service 实现。
type Accounts interface {
	Signup(ctx context.Context, name, email, password string) (publicKey string, err error)
	Signin(ctx context.Context, email, password string) (token, publicKey string, err error)
	PrivateKey(ctx context.Context, accountID string) (string, error)
}

// Relayer 定义代签并广播能力，由 relay.Relay 实现。
type Relayer interface {
	Relay(ctx context.Context, ownerID string, category store.Category, payload string) (string, error)
}

// Reconciler 定义读取并对账交易历史的能力，由 reconcile.Engine 实现。
type Reconciler interface {
	ListAndReconcile(ctx context.Context, ownerID string) ([]store.Record, error)
}

// TokenVerifier 校验会话令牌并返回账户 ID。
type TokenVerifier interface {
	Verify(raw string) (string, error)
}
