package store

import (
	"context"
	"errors"
)

// Result 表示交易记录的终局状态，只允许 PENDING 向终态单向流转。
type Result string

const (
	ResultPending Result = "PENDING"
	ResultSuccess Result = "SUCCESS"
	ResultFailed  Result = "FAILED"
)

// Terminal 判断结果是否为终态。
func (r Result) Terminal() bool {
	return r == ResultSuccess || r == ResultFailed
}

// Category 标记交易的业务方向。
type Category string

const (
	CategoryBuy  Category = "BUY"
	CategorySell Category = "SELL"
)

// Account 表示一个托管钱包账户，PrivateKey 仅在创建时写入。
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	PublicKey    string
	PrivateKey   string
}

// Record 表示一笔已广播交易的持久化记录。
type Record struct {
	Signature string
	Result    Result
	Timestamp string
	Category  Category
	Owner     string
}

var (
	// ErrNotFound 表示账户或记录不存在。
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail 表示邮箱已被注册。
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateSignature 表示签名已有记录。
	ErrDuplicateSignature = errors.New("signature already recorded")
)

// AccountStore 维护账户身份与密钥对的持久化映射。
type AccountStore interface {
	// CreateAccount 持久化账户并返回分配的 ID，邮箱重复时返回 ErrDuplicateEmail。
	CreateAccount(ctx context.Context, account Account) (string, error)
	// AccountByEmail 按邮箱查询账户，不存在时返回 ErrNotFound。
	AccountByEmail(ctx context.Context, email string) (Account, error)
	// AccountByID 按 ID 查询账户，不存在时返回 ErrNotFound。
	AccountByID(ctx context.Context, id string) (Account, error)
	// SetKeypair 写入账户的密钥对，账户不存在时返回 ErrNotFound。
	SetKeypair(ctx context.Context, id, publicKey, privateKey string) error
}

// RecordStore 维护交易记录，按 owner 与 signature 两个维度检索。
type RecordStore interface {
	// AppendRecord 追加一条记录，签名重复时返回 ErrDuplicateSignature。
	AppendRecord(ctx context.Context, record Record) error
	// RecordsByOwner 按创建顺序返回 owner 的全部记录。
	RecordsByOwner(ctx context.Context, owner string) ([]Record, error)
	// MarkResult 条件更新：仅当记录仍为 PENDING 时写入终态，
	// 返回是否发生了状态流转。result 必须为终态。
	MarkResult(ctx context.Context, signature string, result Result) (bool, error)
}
