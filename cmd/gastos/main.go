package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"gastos/internal/backend"
	"gastos/internal/cache"
	"gastos/internal/cli"
	apphttp "gastos/internal/http"
	"gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/services"
)

func main() {
	// Load .env file for local development (ignore a missing file)
	envErr := cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	if envErr != nil {
		logger.Warn("Ignoring .env file", log.FieldError, envErr)
	}
	logger.Info("Starting gastos")

	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	data, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	manager, err := cli.NewSessionManager(cfg, data.Store, logger)
	if err != nil {
		logger.Error("Failed to initialize sessions", log.FieldError, err)
		os.Exit(1)
	}

	caches := cache.NewManager(logger)
	caches.Register(manager.Cache())
	caches.StartCleanup(5 * time.Minute)

	reg := metrics.New(manager.Active)
	ledgerSvc := services.NewLedgerService(manager, data.Publisher, reg, logger)

	checks := make(map[string]apphttp.Check, len(data.Checks))
	for name, check := range data.Checks {
		checks[name] = apphttp.Check(check)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Ledger:             ledgerSvc,
		Metrics:            reg,
		Checks:             checks,
		Logger:             logger,
		CurrencySymbol:     cfg.CurrencySymbol,
		CookieSecure:       cfg.CookieSecure,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown failed", log.FieldError, err)
		}
		caches.Stop()
		if data.Cleanup != nil {
			if err := data.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}
	})

	go func() {
		logger.Info("HTTP server listening",
			"addr", srv.Addr,
			"backend", cfg.DataBackend,
			"events", data.Publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
