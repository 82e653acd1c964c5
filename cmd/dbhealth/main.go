package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/4gd-ai/genesilico-ocr/internal/common"
	"github.com/4gd-ai/genesilico-ocr/internal/repository"
)

// dbhealth checks connectivity and applies pending schema statements.
func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if cfg.Database.DSN == "" {
		logger.Error("DB_URL env var is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		DialTimeout:     3 * time.Second,
	}, logger)
	if err != nil {
		logger.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, time.Second, logger); err != nil {
		logger.Error("database health: FAIL", "error", err)
		os.Exit(1)
	}
	logger.Info("database health: OK")

	if err := repository.Migrate(ctx, pool, logger); err != nil {
		logger.Error("applying schema", "error", err)
		os.Exit(1)
	}
}
