package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/matten-rd/finaid/internal/amqp"
	"github.com/matten-rd/finaid/internal/catalog"
	"github.com/matten-rd/finaid/internal/config"
	"github.com/matten-rd/finaid/internal/docstore"
	"github.com/matten-rd/finaid/internal/docstore/memory"
	"github.com/matten-rd/finaid/internal/docstore/sqlite"
	apphttp "github.com/matten-rd/finaid/internal/http"
	"github.com/matten-rd/finaid/internal/ledger"
	"github.com/matten-rd/finaid/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
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
		store = memory.New()
	}
	defer store.Close()
	logger.Info("Initialized document store", "backend", cfg.DataBackend)

	// AMQP is optional; without it category edits simply skip propagation.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided, category propagation is off")
	}

	led := ledger.New(store, ledger.Config{
		MaxAttempts:  cfg.LedgerMaxRetries,
		RetryBackoff: cfg.LedgerBackoff,
	})
	cat := catalog.NewService(store, amqpClient)

	server := apphttp.NewServer(led, cat, store, cfg.SummaryCacheTTL)
	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        server.Handler(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting finaid server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
