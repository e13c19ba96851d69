// cmd/historian/main.go drains the room activity queue from Redis into Postgres.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/kargo/internal/cache"
	"github.com/jason-s-yu/kargo/internal/config"
	"github.com/jason-s-yu/kargo/internal/database"
	"github.com/jason-s-yu/kargo/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)
	if cfg.RedisAddr == "" || cfg.DatabaseURL == "" {
		logger.Fatal("historian needs both REDIS_ADDR and DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatalf("database schema: %v", err)
	}

	store := historian.StoreFunc(func(ctx context.Context, rows []database.ActivityRow) error {
		return database.InsertActivityBatch(ctx, pool, rows)
	})
	svc := historian.New(
		cache.NewActivityQueue(rdb, cfg.ActivityQueue, logger),
		store,
		historian.Config{
			BatchSize:  cfg.HistorianBatchSize,
			FlushDelay: cfg.HistorianFlush,
			MaxPending: cfg.HistorianMaxPending,
		},
		logger,
	)
	svc.Run(ctx)
	logger.Info("Historian shutdown complete.")
}
