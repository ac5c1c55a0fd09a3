package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gastos/internal/ledger"
	"gastos/internal/log"
)

// Export states of a journaled event.
const (
	ExportPending = "pending"
	ExportDone    = "exported"
	ExportFailed  = "error"
)

type eventRow struct {
	EventID        string `db:"event_id"`
	SessionID      string `db:"session_id"`
	Action         string `db:"action"`
	ExpenseID      string `db:"expense_id"`
	ExpenseName    string `db:"expense_name"`
	Category       string `db:"category"`
	AmountCents    int64  `db:"amount_cents"`
	ExpenseDate    string `db:"expense_date"`
	BudgetCents    int64  `db:"budget_cents"`
	RemainingCents int64  `db:"remaining_cents"`
	OccurredAt     string `db:"occurred_at"`
}

func toEventRow(ev ledger.Event) eventRow {
	return eventRow{
		EventID:        ev.ID,
		SessionID:      ev.SessionID,
		Action:         string(ev.Action),
		ExpenseID:      ev.ExpenseID,
		ExpenseName:    ev.ExpenseName,
		Category:       ev.Category,
		AmountCents:    ev.AmountCents,
		ExpenseDate:    ev.ExpenseDate,
		BudgetCents:    ev.BudgetCents,
		RemainingCents: ev.RemainingCents,
		OccurredAt:     ev.OccurredAt.UTC().Format(timeLayout),
	}
}

func (row eventRow) event() (ledger.Event, error) {
	at, err := time.Parse(timeLayout, row.OccurredAt)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("event %s: parse occurred_at: %w", row.EventID, err)
	}
	return ledger.Event{
		ID:             row.EventID,
		SessionID:      row.SessionID,
		Action:         ledger.Kind(row.Action),
		ExpenseID:      row.ExpenseID,
		ExpenseName:    row.ExpenseName,
		Category:       row.Category,
		AmountCents:    row.AmountCents,
		ExpenseDate:    row.ExpenseDate,
		BudgetCents:    row.BudgetCents,
		RemainingCents: row.RemainingCents,
		OccurredAt:     at,
	}, nil
}

// RecordEvent journals ev. Redelivered events are ignored; inserted reports
// whether the row is new.
func (r *SQLiteRepository) RecordEvent(ctx context.Context, ev ledger.Event) (inserted bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.NamedExecContext(ctx, `
		INSERT INTO ledger_events (event_id, session_id, action, expense_id, expense_name, category,
			amount_cents, expense_date, budget_cents, remaining_cents, occurred_at)
		VALUES (:event_id, :session_id, :action, :expense_id, :expense_name, :category,
			:amount_cents, :expense_date, :budget_cents, :remaining_cents, :occurred_at)
		ON CONFLICT (event_id) DO NOTHING`, toEventRow(ev))
	if err != nil {
		return false, fmt.Errorf("insert ledger event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		r.logger.DebugContext(ctx, "Duplicate ledger event ignored", log.FieldEventID, ev.ID)
	}
	return n > 0, nil
}

// PendingExports returns up to limit events waiting for export, oldest first.
func (r *SQLiteRepository) PendingExports(ctx context.Context, limit int) ([]ledger.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT event_id, session_id, action, expense_id, expense_name, category,
			amount_cents, expense_date, budget_cents, remaining_cents, occurred_at
		FROM ledger_events
		WHERE export_status = ?
		ORDER BY occurred_at, event_id
		LIMIT ?`, ExportPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending exports: %w", err)
	}

	events := make([]ledger.Event, 0, len(rows))
	for _, row := range rows {
		ev, err := row.event()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// MarkExported flags the given events as exported.
func (r *SQLiteRepository) MarkExported(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query, args, err := sqlx.In(`
		UPDATE ledger_events
		SET export_status = ?, exported_at = ?
		WHERE event_id IN (?)`, ExportDone, r.now().UTC().Format(timeLayout), ids)
	if err != nil {
		return fmt.Errorf("build mark exported query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	r.logger.InfoContext(ctx, "Ledger events marked as exported", log.FieldCount, len(ids))
	return nil
}

// MarkExportError counts a failed export attempt. After MaxExportAttempts
// the event leaves the pending queue.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		UPDATE ledger_events
		SET export_attempts = export_attempts + 1,
			export_status = CASE WHEN export_attempts + 1 >= ? THEN ? ELSE export_status END
		WHERE event_id = ?`, MaxExportAttempts, ExportFailed, id)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	r.logger.WarnContext(ctx, "Ledger event export failed", log.FieldEventID, id)
	return nil
}

// ExportStatus returns the export state of an event.
func (r *SQLiteRepository) ExportStatus(ctx context.Context, id string) (status string, attempts int, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var row struct {
		Status   string `db:"export_status"`
		Attempts int    `db:"export_attempts"`
	}
	if err := r.db.GetContext(ctx, &row, `SELECT export_status, export_attempts FROM ledger_events WHERE event_id = ?`, id); err != nil {
		return "", 0, fmt.Errorf("get export status: %w", err)
	}
	return row.Status, row.Attempts, nil
}
