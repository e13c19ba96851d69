// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/kargo/internal/auth"
	"github.com/jason-s-yu/kargo/internal/cache"
	"github.com/jason-s-yu/kargo/internal/config"
	"github.com/jason-s-yu/kargo/internal/database"
	"github.com/jason-s-yu/kargo/internal/handlers"
	"github.com/jason-s-yu/kargo/internal/monitor"
	"github.com/jason-s-yu/kargo/internal/room"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tokens *auth.Issuer
	if cfg.JWTPrivateKeyPath != "" {
		tokens, err = auth.NewIssuerFromPath(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.TokenTTL)
	} else {
		tokens, err = auth.NewIssuer(cfg.TokenTTL)
	}
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	mon := monitor.NewMonitor(cfg.MetricsNS)
	hooks := room.Hooks{Observer: mon}

	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		pub := cache.NewActivityPublisher(cache.NewActivityQueue(rdb, cfg.ActivityQueue, logger), cache.DefaultPublishBuffer, logger)
		hooks.Activity = pub

		// runs past the HTTP shutdown so buffered entries still reach Redis
		pubCtx, pubCancel := context.WithCancel(context.Background())
		pubDone := make(chan struct{})
		go func() {
			pub.Run(pubCtx)
			close(pubDone)
		}()
		defer func() {
			pubCancel()
			<-pubDone
		}()
		logger.Infof("Publishing activity to Redis list %s", cfg.ActivityQueue)
	}

	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			logger.Fatalf("database schema: %v", err)
		}
		hooks.Deals = database.NewDealStore(pool, logger)
		logger.Info("Persisting opening deals to Postgres")
	}

	registry := room.NewRegistry(room.Options{Hooks: hooks, Logger: logger})
	gs := handlers.NewGameServer(handlers.ServerOptions{
		Registry:       registry,
		Tokens:         tokens,
		Monitor:        mon,
		Logger:         logger,
		OutboxSize:     cfg.OutboxSize,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           gs.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Running on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
