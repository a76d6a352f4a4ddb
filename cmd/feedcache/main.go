package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oriys/feedcache/internal/cache"
	"github.com/oriys/feedcache/internal/config"
	"github.com/oriys/feedcache/internal/logging"
)

var (
	configPath string
	storeName  string
	redisAddr  string
	redisPass  string
	redisDB    int
	pgDSN      string
	logLevel   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "feedcache",
		Short:         "feedcache - stable JSON Feeds from repeated scrapes",
		Long:          "Merges scraped items into a cached JSON Feed, keeping dates and identity stable across runs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&storeName, "store", cache.BackendMemory, "Cache backend (memory, redis, postgres)")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", config.DefaultRedisAddr, "Redis address")
	rootCmd.PersistentFlags().StringVar(&redisPass, "redis-pass", "", "Redis password")
	rootCmd.PersistentFlags().IntVar(&redisDB, "redis-db", 0, "Redis database")
	rootCmd.PersistentFlags().StringVar(&pgDSN, "postgres", "", "Postgres DSN")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		addCmd(),
		renderCmd(),
		sweepCmd(),
		daemonCmd(),
	)
	return rootCmd
}

// loadConfig reads the config file and environment, then applies the flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(configPath); err != nil {
			return nil, err
		}
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Store.Backend = storeName
	}
	if flags.Changed("redis") {
		cfg.Store.Redis.Addr = redisAddr
	}
	if flags.Changed("redis-pass") {
		cfg.Store.Redis.Password = redisPass
	}
	if flags.Changed("redis-db") {
		cfg.Store.Redis.DB = redisDB
	}
	if flags.Changed("postgres") {
		cfg.Store.Postgres.DSN = pgDSN
	}
	if logLevel != "" {
		cfg.Observability.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logging.InitStructured(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)
	return cfg, nil
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	c, err := cache.Open(ctx, cfg.CacheConfig())
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.Store.Backend, err)
	}
	return c, nil
}
