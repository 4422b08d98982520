// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores search result lists and full-text outcomes with a
// per-entry TTL. Three backends share one interface: an in-process LRU, Redis,
// and a local SQLite file.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/discovery-engine/pkg/types"
)

// ErrUnavailable wraps every backend transport failure. Callers treat it as
// a miss and fetch directly.
var ErrUnavailable = errors.New("cache unavailable")

// Store is a key-value cache with per-entry expiry.
type Store interface {
	// Get returns the value for key. found is false for missing or expired
	// entries.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set writes value under key, replacing any existing entry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// BatchGet fetches many keys in one round trip. Missing keys are absent
	// from the result.
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)

	// BatchSet writes many entries in one round trip with a shared TTL.
	BatchSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error

	// Invalidate removes every key matching a glob pattern and reports how
	// many were removed.
	Invalidate(ctx context.Context, pattern string) (int, error)

	Close() error
}

// Purger is implemented by backends that keep expired entries until swept.
// Redis expires keys on its own.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// Entry is one cached value with its namespace and expiry. Key is the full
// store key, namespace included.
type Entry struct {
	Namespace string
	Key       string
	Value     []byte
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its expiry at now. A zero
// ExpiresAt never expires.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Key joins a namespace and a key.
func Key(namespace, key string) string {
	return namespace + ":" + key
}

// Marshal encodes a cache value as JSON.
func Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding cache value: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a cache value written by Marshal.
func Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding cache value: %w", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg types.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(cfg.MemoryEntries)
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("cache backend redis requires redis_url")
		}
		return OpenRedis(ctx, cfg.RedisURL)
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("cache backend sqlite requires sqlite_path")
		}
		return OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
