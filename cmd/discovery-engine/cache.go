// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/discovery-engine/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the result cache",
	Long: `Cache maintains the configured cache backend. Keys are namespaced:
search:<kind>:<adapter>:<hash> for adapter results and fulltext:<id> for
acquisition outcomes.`,
}

// --- invalidate subcommand ---

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <pattern>",
	Short: "Remove every cache entry matching a glob pattern",
	Long: `Invalidate removes entries whose key matches the glob pattern, for
example "search:dataset:*" or "fulltext:doi:10.1038/*".`,
	Args: cobra.ExactArgs(1),
	RunE: runCacheInvalidate,
}

func runCacheInvalidate(cmd *cobra.Command, args []string) error {
	store, err := cache.Open(cmd.Context(), appConfig.Cache)
	if err != nil {
		return err
	}
	defer closeCache(store)

	n, err := store.Invalidate(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("invalidated: %d entries matching %q\n", n, args[0])
	return nil
}

// --- purge subcommand ---

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired entries from backends that keep them",
	RunE:  runCachePurge,
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	store, err := cache.Open(cmd.Context(), appConfig.Cache)
	if err != nil {
		return err
	}
	defer closeCache(store)

	p, ok := store.(cache.Purger)
	if !ok {
		fmt.Printf("purge: backend %q expires entries on its own\n", appConfig.Cache.Backend)
		return nil
	}
	n, err := p.Purge(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("purged: %d expired entries\n", n)
	return nil
}

func init() {
	cacheCmd.AddCommand(cacheInvalidateCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
