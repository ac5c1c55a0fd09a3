package backend

import (
	"context"

	"gastos/internal/services"
	"gastos/internal/session"
	"gastos/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// BackendResult holds what the web server needs from the data layer.
type BackendResult struct {
	// Store persists session snapshots; nil for the memory backend.
	Store session.Store
	// Publisher receives ledger events; nil when nothing consumes them.
	Publisher services.EventPublisher
	// Checks are probed by /readyz, keyed by dependency name.
	Checks  map[string]HealthCheck
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateJournalWriter returns the export target of the worker, or nil
	// when exporting is disabled.
	CreateJournalWriter(ctx context.Context, config Config) (sheets.JournalWriter, error)
}
