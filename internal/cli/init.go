// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/gastos, cmd/gastos-worker and cmd/gastos-cli.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gastos/internal/config"
	"gastos/internal/ledger"
	"gastos/internal/log"
	"gastos/internal/session"
)

// SetupLogger initializes structured logging at the given LOG_LEVEL.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level string, out io.Writer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	if out != nil {
		cfg.Output = out
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. A missing file is
// fine; a malformed one is reported.
func LoadEnvFile() error {
	return config.LoadDotEnv()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// NewSessionManager builds the session manager from the configuration.
// store may be nil.
func NewSessionManager(cfg *config.Config, store session.Store, logger *log.Logger) (*session.Manager, error) {
	budget, err := cfg.DefaultBudgetMoney()
	if err != nil {
		return nil, fmt.Errorf("default budget: %w", err)
	}
	return session.NewManager(session.Config{
		DefaultBudget: budget,
		TTL:           cfg.SessionTTL,
		MaxSessions:   cfg.MaxSessions,
	}, store, ledger.NewReducer(nil), logger), nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
