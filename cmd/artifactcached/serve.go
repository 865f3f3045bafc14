package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meigma/artifactcache"
	"github.com/meigma/artifactcache/auth"
	"github.com/meigma/artifactcache/config"
	"github.com/meigma/artifactcache/server"
	redisstore "github.com/meigma/artifactcache/store/redis"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cache server (configured via environment)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush on exit

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			kv, err := redisstore.New(ctx, redisstore.Config{URL: cfg.RedisURL})
			if err != nil {
				return fmt.Errorf("connect store: %w", err)
			}
			defer kv.Close()
			logger.Info("store connected", zap.String("url", cfg.RedisURL))

			reg := prometheus.NewRegistry()
			verifier := auth.NewVerifier(cfg.SecretKey, cfg.ReadOnlyToken, cfg.ReadWriteToken)
			engine := artifactcache.New(kv, cfg.KeyPrefix, verifier,
				artifactcache.WithMaxItemSize(cfg.MaxItemSize),
				artifactcache.WithMaxTotalSize(cfg.MaxTotalSize),
				artifactcache.WithTTL(cfg.TTL),
				artifactcache.WithLogger(logger),
				artifactcache.WithMetrics(artifactcache.NewMetrics(reg)),
			)

			srv := server.New(engine, reg, server.WithLogger(logger))
			return srv.Run(ctx, cfg.Listen)
		},
	}
}
