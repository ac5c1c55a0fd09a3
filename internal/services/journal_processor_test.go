package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"gastos/internal/ledger"
	"gastos/internal/sheets/memory"
	"gastos/internal/storage"
)

func newJournal(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "gastos.db"), nil)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func journalEvent(n int, kind ledger.Kind) ledger.Event {
	return ledger.Event{
		ID:          fmt.Sprintf("ev-%02d", n),
		SessionID:   "s1",
		Action:      kind,
		ExpenseID:   "e1",
		ExpenseName: "Pan",
		Category:    "2",
		AmountCents: 350,
		ExpenseDate: "2025-02-15",
		BudgetCents: 1000,
		OccurredAt:  time.Date(2025, 2, 15, 10, 0, n, 0, time.UTC),
	}
}

func TestDefaultJournalProcessorConfig(t *testing.T) {
	config := DefaultJournalProcessorConfig()

	if config.PollInterval != 30*time.Second {
		t.Errorf("expected PollInterval 30s, got %v", config.PollInterval)
	}
	if config.BatchSize != 10 {
		t.Errorf("expected BatchSize 10, got %d", config.BatchSize)
	}

	p := NewJournalProcessor(nil, nil, JournalProcessorConfig{}, nil, nil)
	if p.config != config {
		t.Errorf("zero config should fall back to defaults, got %+v", p.config)
	}
}

func TestJournalProcessor_HandleEvent(t *testing.T) {
	repo := newJournal(t)
	p := NewJournalProcessor(repo, nil, DefaultJournalProcessorConfig(), nil, nil)
	ctx := context.Background()

	ev := journalEvent(1, ledger.KindAddExpense)
	if err := p.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	// redelivery
	if err := p.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("HandleEvent() on duplicate error = %v", err)
	}
	if err := p.HandleEvent(ctx, journalEvent(2, ledger.KindFilterCategory)); err != nil {
		t.Fatalf("HandleEvent() on skipped kind error = %v", err)
	}

	pending, err := repo.PendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("PendingExports() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != ev.ID {
		t.Fatalf("expected only %s pending, got %+v", ev.ID, pending)
	}
}

func TestJournalProcessor_ExportPending(t *testing.T) {
	repo := newJournal(t)
	sink := memory.New()
	p := NewJournalProcessor(repo, sink, JournalProcessorConfig{PollInterval: time.Second, BatchSize: 2}, nil, nil)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := p.HandleEvent(ctx, journalEvent(i, ledger.KindAddExpense)); err != nil {
			t.Fatalf("HandleEvent(%d) error = %v", i, err)
		}
	}

	n, err := p.ExportPending(ctx)
	if err != nil || n != 2 {
		t.Fatalf("first batch: n=%d err=%v", n, err)
	}
	n, err = p.ExportPending(ctx)
	if err != nil || n != 1 {
		t.Fatalf("second batch: n=%d err=%v", n, err)
	}
	n, err = p.ExportPending(ctx)
	if err != nil || n != 0 {
		t.Fatalf("nothing left: n=%d err=%v", n, err)
	}

	rows := sink.Rows()
	if len(rows) != 3 {
		t.Fatalf("expected 3 exported rows, got %d", len(rows))
	}
	for i, row := range rows {
		if want := fmt.Sprintf("ev-%02d", i+1); row.ID != want {
			t.Errorf("row %d = %s, want %s (oldest first)", i, row.ID, want)
		}
	}
	status, _, err := repo.ExportStatus(ctx, "ev-01")
	if err != nil || status != storage.ExportDone {
		t.Errorf("ev-01 status = %q, err = %v", status, err)
	}
}

func TestJournalProcessor_ExportFailureParksAfterMaxAttempts(t *testing.T) {
	repo := newJournal(t)
	sink := memory.New()
	sink.FailWith(errors.New("quota exceeded"))
	p := NewJournalProcessor(repo, sink, DefaultJournalProcessorConfig(), nil, nil)
	ctx := context.Background()

	if err := p.HandleEvent(ctx, journalEvent(1, ledger.KindDeleteExpense)); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	for i := 0; i < storage.MaxExportAttempts; i++ {
		if _, err := p.ExportPending(ctx); err == nil {
			t.Fatalf("attempt %d: expected export error", i+1)
		}
	}

	status, attempts, err := repo.ExportStatus(ctx, "ev-01")
	if err != nil {
		t.Fatalf("ExportStatus() error = %v", err)
	}
	if status != storage.ExportFailed || attempts != storage.MaxExportAttempts {
		t.Errorf("status = %q attempts = %d, want %q %d", status, attempts, storage.ExportFailed, storage.MaxExportAttempts)
	}

	sink.FailWith(nil)
	if n, err := p.ExportPending(ctx); err != nil || n != 0 {
		t.Errorf("parked event must not be retried: n=%d err=%v", n, err)
	}
}

func TestJournalProcessor_WithoutWriter(t *testing.T) {
	p := NewJournalProcessor(newJournal(t), nil, DefaultJournalProcessorConfig(), nil, nil)
	if n, err := p.ExportPending(context.Background()); err != nil || n != 0 {
		t.Errorf("ExportPending() without writer = %d, %v", n, err)
	}
}

func TestJournalProcessor_RunExportsUntilCancelled(t *testing.T) {
	repo := newJournal(t)
	sink := memory.New()
	p := NewJournalProcessor(repo, sink, JournalProcessorConfig{PollInterval: 10 * time.Millisecond, BatchSize: 5}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.HandleEvent(ctx, journalEvent(1, ledger.KindResetApp)); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// Rows journaled while the loop runs go out on a later tick.
	if err := p.HandleEvent(ctx, journalEvent(2, ledger.KindAddExpense)); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(sink.Rows()) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if len(sink.Rows()) != 2 {
		t.Fatalf("expected both rows exported, got %d", len(sink.Rows()))
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
