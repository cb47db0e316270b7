package ledger

import (
	"os"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

// Config 控制 RPC 客户端行为。
type Config struct {
	RPCURL      string
	CallTimeout time.Duration
}

// DefaultConfig 返回指向 devnet 的默认配置。
func DefaultConfig() Config {
	return Config{
		RPCURL:      rpc.DevNet_RPC,
		CallTimeout: 10 * time.Second,
	}
}

// LoadConfigFromEnv 解析环境变量覆盖默认配置。
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("SOLWALLET_RPC_URL"); v != "" {
		cfg.RPCURL = v
	}
	if d := readDuration("SOLWALLET_RPC_CALL_TIMEOUT"); d > 0 {
		cfg.CallTimeout = d
	}
	return cfg
}

func readDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}
