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
	"golang.org/x/sync/errgroup"

	"bachat/internal/config"
	"bachat/internal/events"
	gsheet "bachat/internal/export/google"
	"bachat/internal/logging"
	"bachat/internal/storage"
	"bachat/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting bachat-worker")

	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		slog.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.GoogleSpreadsheetID == "" {
		slog.Info("Ledger export disabled - no GOOGLE_SPREADSHEET_ID provided")
		<-ctx.Done()
		return
	}

	ledger, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		slog.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	slog.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	exportWorker := worker.NewExportWorker(repo, ledger, cfg.ExportBatchSize)

	// On startup, process any pending exports that might have been missed
	if err := exportWorker.StartupCheck(ctx); err != nil {
		slog.Error("Failed startup export check", "error", err)
		// Don't exit - continue with normal operation
	}

	g, gctx := errgroup.WithContext(ctx)

	// Event-driven exports over AMQP (optional: the periodic pass below
	// covers everything when no broker is configured)
	if cfg.AMQPURL != "" {
		amqpClient, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			err := amqpClient.Consume(gctx, exportWorker.HandleEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		slog.Info("AMQP disabled - relying on periodic export pass only")
	}

	// Periodic pending-export pass as a safety net for lost messages
	g.Go(func() error {
		ticker := time.NewTicker(cfg.ExportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := exportWorker.ProcessPending(gctx); err != nil {
					slog.Error("Periodic export pass failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		slog.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("Worker shutdown complete")
}
