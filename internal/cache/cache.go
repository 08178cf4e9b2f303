// Package cache stores simulation results keyed by their deterministic
// seed. Identical inputs reproduce identical results, so a hit can be
// served without rerunning the simulation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xtding233/arkgrid-toolkit/internal/logger"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Close() error
}

// Key builds a cache key. The tables version is part of it so a config
// reload never serves results computed against old tables.
func Key(kind, tablesVersion string, seed uint32) string {
	return fmt.Sprintf("%s:%s:%08x", kind, tablesVersion, seed)
}

// GetJSON decodes a cached value into v. A value that no longer decodes is
// treated as a miss.
func GetJSON(ctx context.Context, c Cache, key string, v any) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON encodes v and stores it.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}

// FromEnv returns a Redis cache when REDIS_ADDR is set and a memory cache
// of size entries otherwise.
func FromEnv(log *logger.Logger, size int) (Cache, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		if log != nil {
			log.Info("result cache in memory", "entries", size)
		}
		return NewMemory(size), nil
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_PREFIX"))
	if prefix == "" {
		prefix = "arkgrid"
	}
	return NewRedis(log, addr, prefix)
}
