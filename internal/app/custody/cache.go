package custody

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
)

// keyCache 缓存热点账户的私钥，降低高频签名时的存储读放大。
// nil receiver 表示缓存关闭。
type keyCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	key     solana.PrivateKey
	expires time.Time
}

func newKeyCache(ttl time.Duration, now func() time.Time) *keyCache {
	return &keyCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *keyCache) get(accountID string) (solana.PrivateKey, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[accountID]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, accountID)
		return nil, false
	}
	return entry.key, true
}

func (c *keyCache) put(accountID string, key solana.PrivateKey) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[accountID] = cacheEntry{key: key, expires: c.now().Add(c.ttl)}
}
