// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the discovery-engine CLI.
// Subcommands cover federated search, full-text acquisition, and cache
// maintenance.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/discovery-engine/internal/logging"
	"github.com/pdiddy/discovery-engine/internal/secrets"
	"github.com/pdiddy/discovery-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds credentials loaded from the secrets directory at startup.
	loadedSecrets map[string]string

	// appConfig is the effective configuration: defaults, then the config
	// file and environment, then secrets.
	appConfig types.Config

	logger *slog.Logger
)

// rootCmd is the base command for the discovery-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "discovery-engine",
	Short: "Federated search and full-text acquisition for biomedical research",
	Long: `discovery-engine searches dataset repositories (GEO, ArrayExpress) and
citation engines (PubMed, Europe PMC, OpenAlex, Semantic Scholar, arXiv) in
parallel, merges duplicates, and ranks the results. It then acquires full text
for chosen publications by walking institutional access, open repositories,
and open-access aggregators until one of them has a copy.

Results and acquisition outcomes are cached in memory, Redis, or SQLite.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appConfig = cfg
		logger = logging.New(cfg.Log, os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./discovery-engine.yaml or ~/.config/discovery-engine/discovery-engine.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of credential files")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("cache", "", "cache backend: sqlite (default), redis, memory")
	rootCmd.PersistentFlags().String("metrics-file", "", "write adapter and cache metrics to this file (Prometheus text format) on exit")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("cache.backend", rootCmd.PersistentFlags().Lookup("cache"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("discovery-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "discovery-engine"))
		}
	}

	viper.SetEnvPrefix("DISCOVERY_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range []string{"log.level", "log.format", "cache.backend", "cache.redis_url", "cache.sqlite_path"} {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	path, _ := rootCmd.PersistentFlags().GetString("metrics-file")
	writeMetrics(path, os.Stderr)
	if err != nil {
		os.Exit(1)
	}
}
