package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendio/internal/amqp"
	"spendio/internal/config"
	applog "spendio/internal/log"
	"spendio/internal/remote"
	"spendio/internal/storage"
	"spendio/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting spendio-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.SupabaseURL == "" || cfg.SupabaseServiceRoleKey == "" {
		logger.Error("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the sync worker")
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the sync worker")
		os.Exit(1)
	}

	store, err := storage.NewStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize local store", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	// The worker serves every user's rows, so it authenticates with a
	// service-role key instead of a user session.
	client, err := remote.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseTable)
	if err != nil {
		logger.Error("Failed to initialize remote client", applog.FieldError, err)
		os.Exit(1)
	}
	adapter := remote.NewServiceRoleAdapter(client, cfg.SupabaseServiceRoleKey)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncWorker := worker.NewSyncWorker(store, adapter, cfg.SyncBatchSize)

	// Drain whatever accumulated while the worker was down.
	logger.Info("Performing startup sweep...")
	if err := syncWorker.StartupSweep(ctx); err != nil {
		logger.Error("Startup sweep failed", applog.FieldError, err)
		// Don't exit; the periodic sweep retries what the sweep missed.
	}

	go func() {
		if err := amqpClient.ConsumeWithRetry(ctx, syncWorker.HandleMessage); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err)
			}
			cancel()
		}
	}()

	// Periodic sweep catches rows whose queue message was lost.
	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := syncWorker.ProcessPending(ctx); err != nil {
					logger.Error("Periodic sweep failed", applog.FieldError, err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Worker stopped gracefully")
}
