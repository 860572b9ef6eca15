package pagecache

import (
	"context"
	"fmt"
)

// Backend names accepted by OpenStore.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// StoreConfig selects and configures a backend.
type StoreConfig struct {
	Type       string
	SQLitePath string
	RedisURL   string
	Prefix     string
}

// OpenStore opens the configured backend. An empty type means memory.
func OpenStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Type {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case BackendRedis:
		return OpenRedis(ctx, cfg.RedisURL, cfg.Prefix)
	default:
		return nil, fmt.Errorf("pagecache: unknown backend %q", cfg.Type)
	}
}
