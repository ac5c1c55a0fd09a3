package main

import (
	"context"
	"os"
	"time"

	"gastos/internal/amqp"
	"gastos/internal/backend"
	"gastos/internal/cli"
	"gastos/internal/log"
	"gastos/internal/services"
	"gastos/internal/storage"
	"gastos/internal/worker"
)

func main() {
	envErr := cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	if envErr != nil {
		logger.Warn("Ignoring .env file", log.FieldError, envErr)
	}
	logger.Info("Starting gastos-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	// The journal lives in the SQLite database whatever backend the web server uses.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	writer, err := backend.NewFactory(logger).CreateJournalWriter(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize journal export", log.FieldError, err)
		os.Exit(1)
	}

	var consumer worker.Consumer
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		consumer = client
	} else {
		logger.Info("AMQP disabled, exporting the local journal only")
	}

	processor := services.NewJournalProcessor(repo, writer, services.JournalProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
	}, nil, logger)

	// Export anything left over from a previous run before waiting for the first tick.
	if n, err := processor.ExportPending(context.Background()); err != nil {
		logger.Error("Startup export failed", log.FieldError, err)
	} else if n > 0 {
		logger.Info("Startup export completed", log.FieldCount, n)
	}

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)

	if err := worker.New(consumer, processor, logger).Run(ctx); err != nil {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
}
