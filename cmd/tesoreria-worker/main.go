package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tesoreria/internal/amqp"
	"tesoreria/internal/config"
	applog "tesoreria/internal/log"
	"tesoreria/internal/sheets"
	gsheet "tesoreria/internal/sheets/google"
	"tesoreria/internal/sheets/memory"
	"tesoreria/internal/storage"
	"tesoreria/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting tesoreria-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var publisher sheets.ReportPublisher
	switch cfg.MirrorBackend {
	case "google":
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		publisher = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	default:
		publisher = memory.New()
		logger.Info("In-memory mirror initialized (no external spreadsheet)")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewReportSyncWorker(repo, publisher)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// Queue consumer with reconnect.
	g.Go(func() error {
		return amqpClient.ConsumeReportSyncWithRetry(gctx, func(msg *amqp.ReportSyncMessage) error {
			return syncWorker.HandleSyncMessage(gctx, msg)
		})
	})

	// Periodic resync as a backup for lost messages.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.ResyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := syncWorker.PeriodicResync(gctx); err != nil {
					logger.Error("Periodic resync failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
