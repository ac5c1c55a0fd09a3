package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gastos/internal/core"
	"gastos/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "gastos.db"), nil)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSnapshotRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	st := ledger.State{
		Budget:        core.Money{Cents: 100000},
		InitialBudget: core.Money{Cents: 90000},
		Expenses: []core.Expense{
			{ID: "b", Name: "Cine", Category: "5", Amount: core.Money{Cents: 1200}, Date: core.NewDate(2025, 2, 14)},
			{ID: "a", Name: "Pan", Category: "2", Amount: core.Money{Cents: 350}, Date: core.NewDate(2025, 2, 15)},
		},
		EditingID:      "a",
		CategoryFilter: "2",
	}
	if err := repo.SaveSnapshot(ctx, "s1", st); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, found, err := repo.LoadSnapshot(ctx, "s1")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if got.Budget != st.Budget || got.InitialBudget != st.InitialBudget || got.EditingID != "a" || got.CategoryFilter != "2" {
		t.Fatalf("header mismatch: %+v", got)
	}
	if len(got.Expenses) != 2 || got.Expenses[0].ID != "b" || got.Expenses[1].ID != "a" {
		t.Fatalf("expenses out of order: %+v", got.Expenses)
	}
	if !got.Expenses[0].Date.Equal(st.Expenses[0].Date.Time) || got.Expenses[0].Amount.Cents != 1200 {
		t.Fatalf("expense mismatch: %+v", got.Expenses[0])
	}

	// Saving again replaces the expense list.
	st.Expenses = st.Expenses[:1]
	st.EditingID = ""
	if err := repo.SaveSnapshot(ctx, "s1", st); err != nil {
		t.Fatalf("save again: %v", err)
	}
	got, _, _ = repo.LoadSnapshot(ctx, "s1")
	if len(got.Expenses) != 1 {
		t.Fatalf("expected 1 expense after overwrite, got %d", len(got.Expenses))
	}

	if err := repo.DeleteSnapshot(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found, err := repo.LoadSnapshot(ctx, "s1"); err != nil || found {
		t.Fatalf("expected snapshot gone, found=%v err=%v", found, err)
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	repo := newTestRepo(t)
	_, found, err := repo.LoadSnapshot(context.Background(), "nope")
	if err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}
}

func testEvent(id string, at time.Time) ledger.Event {
	return ledger.Event{
		ID:             id,
		SessionID:      "s1",
		Action:         ledger.KindAddExpense,
		ExpenseID:      "e1",
		ExpenseName:    "Pan",
		Category:       "2",
		AmountCents:    350,
		ExpenseDate:    "2025-02-15",
		BudgetCents:    1000,
		RemainingCents: 650,
		OccurredAt:     at,
	}
}

func TestJournalExportLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 2, 15, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"ev2", "ev1", "ev3"} {
		// ev1 is the oldest
		at := base.Add(time.Duration(i) * time.Minute)
		if id == "ev1" {
			at = base.Add(-time.Minute)
		}
		inserted, err := repo.RecordEvent(ctx, testEvent(id, at))
		if err != nil || !inserted {
			t.Fatalf("record %s: inserted=%v err=%v", id, inserted, err)
		}
	}
	inserted, err := repo.RecordEvent(ctx, testEvent("ev1", base))
	if err != nil || inserted {
		t.Fatalf("duplicate should be ignored: inserted=%v err=%v", inserted, err)
	}

	pending, err := repo.PendingExports(ctx, 2)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "ev1" || pending[1].ID != "ev2" {
		t.Fatalf("unexpected pending batch: %+v", pending)
	}
	if pending[0].AmountCents != 350 || pending[0].Action != ledger.KindAddExpense || !pending[0].OccurredAt.Equal(base.Add(-time.Minute)) {
		t.Fatalf("event fields lost: %+v", pending[0])
	}

	if err := repo.MarkExported(ctx, []string{"ev1", "ev2"}); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	pending, _ = repo.PendingExports(ctx, 10)
	if len(pending) != 1 || pending[0].ID != "ev3" {
		t.Fatalf("expected only ev3 pending, got %+v", pending)
	}

	for i := 0; i < MaxExportAttempts; i++ {
		if err := repo.MarkExportError(ctx, "ev3"); err != nil {
			t.Fatalf("mark error: %v", err)
		}
	}
	status, attempts, err := repo.ExportStatus(ctx, "ev3")
	if err != nil || status != ExportFailed || attempts != MaxExportAttempts {
		t.Fatalf("status=%s attempts=%d err=%v", status, attempts, err)
	}
	pending, _ = repo.PendingExports(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("failed event should leave the queue, got %+v", pending)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "gastos.db")

	first, err := RunMigrations(dsn)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first != 2 {
		t.Fatalf("schema version = %d, want 2", first)
	}
	again, err := RunMigrations(dsn)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if again != first {
		t.Fatalf("version moved from %d to %d without new migrations", first, again)
	}
}
