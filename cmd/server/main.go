package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"contract-collab-service/internal/app"
	"contract-collab-service/internal/config"
	"contract-collab-service/internal/observability"
	"contract-collab-service/internal/tools/common"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := common.LoadEnvFile(".env"); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, loggerProvider, err := observability.InitLogging(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	slog.SetDefault(logger)

	runtime, err := observability.InitRuntime(ctx, cfg, logger, loggerProvider)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	db, err := app.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	redisClient := app.NewRedisClient(cfg)
	resolver := app.ProvideIdentityResolver(cfg)

	a := app.InitializeApp(cfg, logger, db, redisClient, runtime, resolver)

	logger.Info("collab coordinator starting",
		"profile", cfg.Profile,
		"addr", cfg.HTTPAddr,
		"presence_backend", presenceBackend(cfg),
	)
	return a.Run(ctx)
}

func presenceBackend(cfg *config.Config) string {
	if cfg.RedisAddr != "" {
		return "redis"
	}
	return "memory"
}
