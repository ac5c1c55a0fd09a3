package services

import (
	"context"
	"fmt"
	"time"

	"gastos/internal/ledger"
	"gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/sheets"
)

// JournalStore is the part of the SQLite repository the processor needs.
type JournalStore interface {
	RecordEvent(ctx context.Context, ev ledger.Event) (bool, error)
	PendingExports(ctx context.Context, limit int) ([]ledger.Event, error)
	MarkExported(ctx context.Context, ids []string) error
	MarkExportError(ctx context.Context, id string) error
}

// JournalProcessorConfig holds configuration for the journal processor
type JournalProcessorConfig struct {
	// PollInterval is how often pending rows are exported (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of rows exported per poll cycle (default: 10)
	BatchSize int
}

// DefaultJournalProcessorConfig returns sensible defaults
func DefaultJournalProcessorConfig() JournalProcessorConfig {
	return JournalProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
	}
}

// JournalProcessor records ledger events in the journal and exports pending
// rows to the sheet in batches.
type JournalProcessor struct {
	store   JournalStore
	sheets  sheets.JournalWriter
	config  JournalProcessorConfig
	metrics *metrics.Registry
	logger  *log.Logger
}

// NewJournalProcessor creates a processor. writer may be nil, in which case
// events are journaled but never exported.
func NewJournalProcessor(store JournalStore, writer sheets.JournalWriter, config JournalProcessorConfig, m *metrics.Registry, logger *log.Logger) *JournalProcessor {
	def := DefaultJournalProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &JournalProcessor{
		store:   store,
		sheets:  writer,
		config:  config,
		metrics: m,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent journals ev. Only actions that change recorded money are kept;
// redelivered events are ignored.
func (p *JournalProcessor) HandleEvent(ctx context.Context, ev ledger.Event) error {
	if !ev.Action.Journaled() {
		p.metrics.ObserveJournal("skipped")
		return nil
	}
	inserted, err := p.store.RecordEvent(ctx, ev)
	if err != nil {
		p.metrics.ObserveJournal("error")
		return fmt.Errorf("record event %s: %w", ev.ID, err)
	}
	if !inserted {
		p.metrics.ObserveJournal("duplicate")
		return nil
	}
	p.metrics.ObserveJournal("ok")
	p.logger.InfoContext(ctx, "Ledger event journaled",
		log.FieldEventID, ev.ID,
		log.FieldSessionID, ev.SessionID,
		log.FieldAction, string(ev.Action))
	return nil
}

// ExportPending exports one batch of pending rows and returns how many were
// exported. When the sheet rejects the batch every row in it gets a failed
// attempt recorded.
func (p *JournalProcessor) ExportPending(ctx context.Context) (int, error) {
	if p.sheets == nil {
		return 0, nil
	}
	events, err := p.store.PendingExports(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending exports: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	p.logger.DebugContext(ctx, "Exporting journal batch", log.FieldCount, len(events))

	if err := p.sheets.AppendEvents(ctx, events); err != nil {
		p.metrics.ObserveExport(len(events), err)
		for _, ev := range events {
			if markErr := p.store.MarkExportError(ctx, ev.ID); markErr != nil {
				p.logger.ErrorContext(ctx, "Failed to record export attempt",
					log.FieldEventID, ev.ID, log.FieldError, markErr)
			}
		}
		return 0, fmt.Errorf("append to sheet: %w", err)
	}

	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	if err := p.store.MarkExported(ctx, ids); err != nil {
		// The rows reached the sheet; they will be exported again on the next
		// poll. Duplicated rows carry the same event id.
		p.metrics.ObserveExport(len(events), nil)
		return len(events), fmt.Errorf("mark exported: %w", err)
	}
	p.metrics.ObserveExport(len(events), nil)
	return len(events), nil
}

// Run exports pending rows every PollInterval until ctx is done.
func (p *JournalProcessor) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.exportAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.exportAll(ctx)
		}
	}
}

// exportAll drains full batches so a backlog does not wait one interval per batch.
func (p *JournalProcessor) exportAll(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := p.ExportPending(ctx)
		if err != nil {
			p.logger.WarnContext(ctx, "Journal export failed", log.FieldError, err)
			return
		}
		if n < p.config.BatchSize {
			return
		}
	}
}
