package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gastos/internal/amqp"
	"gastos/internal/log"
	"gastos/internal/services"
	"gastos/internal/sheets"
	gsheet "gastos/internal/sheets/google"
	"gastos/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w (valid types: %s)", err, strings.Join(GetBackendTypeStrings(), ", "))
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	result := &BackendResult{
		Store:  repo,
		Checks: map[string]HealthCheck{"sqlite": repo.Ping},
	}
	closers := []func() error{repo.Close}

	client := f.connectAMQP(ctx, config)
	if client != nil {
		result.Publisher = client
		result.Checks["amqp"] = client.Ping
		closers = append([]func() error{client.Close}, closers...)
	} else {
		// Without a broker the journal is written in-process; the worker
		// still exports it from the same database.
		processor := services.NewJournalProcessor(repo, nil, services.JournalProcessorConfig{}, nil, f.logger)
		result.Publisher = services.PublisherFunc(processor.HandleEvent)
	}
	result.Cleanup = closeAll(closers)

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", client != nil)
	return result, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	result := &BackendResult{Checks: map[string]HealthCheck{}}
	if client := f.connectAMQP(ctx, config); client != nil {
		result.Publisher = client
		result.Checks["amqp"] = client.Ping
		result.Cleanup = client.Close
	}
	f.logger.InfoContext(ctx, "Initialized memory backend", "amqp_enabled", result.Publisher != nil)
	return result, nil
}

// connectAMQP returns nil when AMQP is not configured or unreachable; the
// ledger works without it.
func (f *DefaultFactory) connectAMQP(ctx context.Context, config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}

// CreateJournalWriter implements Factory.CreateJournalWriter
func (f *DefaultFactory) CreateJournalWriter(ctx context.Context, config Config) (sheets.JournalWriter, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.InfoContext(ctx, "Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil, nil
	}
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Google Sheets client initialized",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", cli.SheetName())
	return cli, nil
}

func closeAll(closers []func() error) CleanupFunc {
	return func() error {
		var errs []error
		for _, c := range closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
