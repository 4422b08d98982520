// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/pdiddy/discovery-engine/internal/cache"
	"github.com/pdiddy/discovery-engine/internal/metrics"
	"github.com/pdiddy/discovery-engine/internal/secrets"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

// loadConfig layers the config file and environment over the defaults and
// fills adapter credentials from the loaded secrets.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	// Flag-bound keys need explicit defaults or an unset flag's empty value
	// replaces them.
	viper.SetDefault("log.level", cfg.Log.Level)
	viper.SetDefault("cache.backend", cfg.Cache.Backend)
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	secrets.Apply(&cfg, loadedSecrets)
	return cfg, nil
}

// openCache opens the configured backend. A backend that cannot be reached
// is not fatal: the command runs uncached.
func openCache(ctx context.Context, cfg types.CacheConfig) cache.Store {
	store, err := cache.Open(ctx, cfg)
	if err != nil {
		logger.Warn("cache unavailable, continuing without cache",
			slog.String("backend", cfg.Backend), slog.Any("error", err))
		return nil
	}
	return store
}

func closeCache(store cache.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		logger.Warn("closing cache", slog.Any("error", err))
	}
}

// writeMetrics dumps the process metrics to path. Failures are reported on
// w and never change the exit status.
func writeMetrics(path string, w io.Writer) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		fmt.Fprintf(w, "writing metrics: %v\n", err)
		return
	}
	fmt.Fprintf(w, "metrics: %s\n", path)
}
