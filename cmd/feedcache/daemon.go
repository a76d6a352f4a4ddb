package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oriys/feedcache/internal/api"
	"github.com/oriys/feedcache/internal/logging"
	"github.com/oriys/feedcache/internal/metrics"
	"github.com/oriys/feedcache/internal/observability"
)

func daemonCmd() *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Serve feeds over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if httpAddr != "" {
				cfg.Daemon.HTTPAddr = httpAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := observability.Init(ctx, cfg.Telemetry()); err != nil {
				return err
			}
			defer observability.Shutdown(context.Background())

			c, err := openCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			var pm *metrics.PrometheusMetrics
			if cfg.Observability.Metrics.Enabled {
				pm = metrics.NewPrometheus(cfg.Observability.Metrics.Namespace, nil)
			}

			srv := api.NewServer(api.ServerConfig{
				Config:  cfg,
				Cache:   c,
				Metrics: pm,
			})
			go srv.RunSweeper(ctx, cfg.Daemon.SweepInterval)

			httpServer := api.StartHTTPServer(cfg.Daemon.HTTPAddr, srv)
			logging.Op().Info("feedcache daemon started",
				"addr", cfg.Daemon.HTTPAddr,
				"store", cfg.Store.Backend,
				"feeds", len(cfg.Feeds),
				"tracing", observability.Enabled())

			<-ctx.Done()
			logging.Op().Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP address (overrides daemon.http_addr)")

	return cmd
}
