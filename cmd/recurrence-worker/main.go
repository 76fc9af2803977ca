package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bilancio/internal/amqp"
	"bilancio/internal/config"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent("recurrence-worker")
	applog.SetDefault(logger)

	logger.Info("Starting recurrence-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Generated copies are published for export like any other movement,
	// so carry the AMQP client when available.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, sync messages disabled", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	ledger := services.NewLedgerService(repo, amqpClient)
	processor := services.NewRecurrenceProcessor(repo, ledger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run := func() {
		created, err := processor.ProcessDue(ctx, core.Today())
		if err != nil {
			logger.Error("Recurrence processing failed", "error", err)
			return
		}
		if created > 0 {
			logger.Info("Recurrence processing created movements", "created", created)
		}
	}

	// Run once at startup, then on the configured interval.
	run()

	ticker := time.NewTicker(cfg.RecurrenceInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())
	cancel()
	logger.Info("Worker shutdown complete")
}
