package history

import (
	"context"
	"fmt"
)

// Backend names accepted by Open
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// BackendConfig selects and locates a KV backend.
type BackendConfig struct {
	Backend     string
	Dir         string
	RedisAddr   string
	PostgresDSN string
}

// Open connects the configured backend. The returned func releases it.
func Open(ctx context.Context, cfg BackendConfig) (KV, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryKV(), noop, nil
	case BackendFile, "":
		kv, err := NewFileKV(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return kv, noop, nil
	case BackendRedis:
		kv, err := NewRedisKV(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() { _ = kv.Close() }, nil
	case BackendPostgres:
		kv, err := NewPostgresKV(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}
