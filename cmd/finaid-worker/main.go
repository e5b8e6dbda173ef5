package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/matten-rd/finaid/internal/amqp"
	"github.com/matten-rd/finaid/internal/config"
	"github.com/matten-rd/finaid/internal/docstore"
	"github.com/matten-rd/finaid/internal/docstore/memory"
	"github.com/matten-rd/finaid/internal/docstore/sqlite"
	"github.com/matten-rd/finaid/internal/log"
	"github.com/matten-rd/finaid/internal/propagation"
)

// finaid-worker consumes category-updated events and fans the new display
// fields out to every transaction snapshot referencing the category.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting finaid-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the propagation worker")
		os.Exit(1)
	}

	var (
		store docstore.Store
		err   error
	)
	switch cfg.DataBackend {
	case "sqlite":
		store, err = sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite document store", log.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
	default:
		// A memory store in the worker only makes sense for local smoke runs;
		// it shares nothing with the API process.
		store = memory.New()
		logger.Warn("Using in-memory store, propagation affects this process only")
	}
	defer store.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	propagator := propagation.New(store, cfg.PropagationWorkers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Consuming category updated messages",
		"queue", cfg.AMQPQueue,
		"workers", cfg.PropagationWorkers)

	err = amqpClient.ConsumeCategoryUpdated(ctx, func(msg *amqp.CategoryUpdatedMessage) error {
		return propagator.HandleCategoryUpdated(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
