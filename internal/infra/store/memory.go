package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory 是 AccountStore 与 RecordStore 的进程内实现，
// 用于测试与未配置持久化存储时的本地运行。
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]Account
	emails   map[string]string
	records  []Record
	bySig    map[string]int
}

// NewMemory 构造空的内存存储。
func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]Account),
		emails:   make(map[string]string),
		bySig:    make(map[string]int),
	}
}

// CreateAccount 实现 AccountStore。
func (m *Memory) CreateAccount(_ context.Context, account Account) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.emails[account.Email]; ok {
		return "", ErrDuplicateEmail
	}
	account.ID = uuid.NewString()
	m.accounts[account.ID] = account
	m.emails[account.Email] = account.ID
	return account.ID, nil
}

// AccountByEmail 实现 AccountStore。
func (m *Memory) AccountByEmail(_ context.Context, email string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[email]
	if !ok {
		return Account{}, ErrNotFound
	}
	return m.accounts[id], nil
}

// AccountByID 实现 AccountStore。
func (m *Memory) AccountByID(_ context.Context, id string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}

// SetKeypair 实现 AccountStore。
func (m *Memory) SetKeypair(_ context.Context, id, publicKey, privateKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	account.PublicKey = publicKey
	account.PrivateKey = privateKey
	m.accounts[id] = account
	return nil
}

// AppendRecord 实现 RecordStore。
func (m *Memory) AppendRecord(_ context.Context, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bySig[record.Signature]; ok {
		return ErrDuplicateSignature
	}
	m.records = append(m.records, record)
	m.bySig[record.Signature] = len(m.records) - 1
	return nil
}

// RecordsByOwner 实现 RecordStore，返回快照避免调用方持有内部切片。
func (m *Memory) RecordsByOwner(_ context.Context, owner string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0)
	for _, record := range m.records {
		if record.Owner == owner {
			out = append(out, record)
		}
	}
	return out, nil
}

// MarkResult 实现 RecordStore，仅允许 PENDING→终态的单向流转。
func (m *Memory) MarkResult(_ context.Context, signature string, result Result) (bool, error) {
	if !result.Terminal() {
		return false, fmt.Errorf("result %q is not terminal", result)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.bySig[signature]
	if !ok {
		return false, ErrNotFound
	}
	if m.records[idx].Result != ResultPending {
		return false, nil
	}
	m.records[idx].Result = result
	return true, nil
}
