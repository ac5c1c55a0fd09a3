// Package storage persists ledger snapshots and the ledger event journal in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"gastos/internal/core"
	"gastos/internal/ledger"
	"gastos/internal/log"
)

const (
	defaultTimeout = 5 * time.Second
	timeLayout     = "2006-01-02T15:04:05.000000000Z07:00" // fixed width, sorts as text

	// MaxExportAttempts is how many failed exports an event gets before it
	// is parked with status error.
	MaxExportAttempts = 5
)

// SQLiteRepository implements session.Store and the worker journal.
type SQLiteRepository struct {
	db      *sqlx.DB
	timeout time.Duration
	logger  *log.Logger
	now     func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	version, err := RunMigrations(dsn)
	if err != nil {
		return nil, err
	}
	logger.WithComponent(log.ComponentStorage).Debug("Ledger schema ready", "schema_version", version, "path", dbPath)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		timeout: defaultTimeout,
		logger:  logger.WithComponent(log.ComponentStorage),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database is reachable, for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.db.PingContext(ctx)
}

type ledgerRow struct {
	SessionID          string `db:"session_id"`
	BudgetCents        int64  `db:"budget_cents"`
	InitialBudgetCents int64  `db:"initial_budget_cents"`
	EditingID          string `db:"editing_id"`
	CategoryFilter     string `db:"category_filter"`
	UpdatedAt          string `db:"updated_at"`
}

type expenseRow struct {
	SessionID   string `db:"session_id"`
	ID          string `db:"id"`
	Position    int    `db:"position"`
	Name        string `db:"name"`
	Category    string `db:"category"`
	AmountCents int64  `db:"amount_cents"`
	ExpenseDate string `db:"expense_date"`
}

// SaveSnapshot replaces the stored ledger of a session.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, id string, st ledger.State) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO ledgers (session_id, budget_cents, initial_budget_cents, editing_id, category_filter, updated_at)
		VALUES (:session_id, :budget_cents, :initial_budget_cents, :editing_id, :category_filter, :updated_at)
		ON CONFLICT (session_id) DO UPDATE SET
			budget_cents = excluded.budget_cents,
			initial_budget_cents = excluded.initial_budget_cents,
			editing_id = excluded.editing_id,
			category_filter = excluded.category_filter,
			updated_at = excluded.updated_at`,
		ledgerRow{
			SessionID:          id,
			BudgetCents:        st.Budget.Cents,
			InitialBudgetCents: st.InitialBudget.Cents,
			EditingID:          st.EditingID,
			CategoryFilter:     st.CategoryFilter,
			UpdatedAt:          r.now().UTC().Format(timeLayout),
		})
	if err != nil {
		return fmt.Errorf("upsert ledger: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_expenses WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("clear ledger expenses: %w", err)
	}

	if len(st.Expenses) > 0 {
		rows := make([]expenseRow, len(st.Expenses))
		for i, e := range st.Expenses {
			rows[i] = expenseRow{
				SessionID:   id,
				ID:          e.ID,
				Position:    i,
				Name:        e.Name,
				Category:    e.Category,
				AmountCents: e.Amount.Cents,
				ExpenseDate: e.Date.ISO(),
			}
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO ledger_expenses (session_id, id, position, name, category, amount_cents, expense_date)
			VALUES (:session_id, :id, :position, :name, :category, :amount_cents, :expense_date)`, rows)
		if err != nil {
			return fmt.Errorf("insert ledger expenses: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	r.logger.DebugContext(ctx, "Ledger snapshot saved",
		log.FieldSessionID, id,
		log.FieldCount, len(st.Expenses))
	return nil
}

// LoadSnapshot returns the stored ledger of a session. found is false when
// the session was never saved.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context, id string) (ledger.State, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var head ledgerRow
	err := r.db.GetContext(ctx, &head, `
		SELECT session_id, budget_cents, initial_budget_cents, editing_id, category_filter, updated_at
		FROM ledgers WHERE session_id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.State{}, false, nil
	}
	if err != nil {
		return ledger.State{}, false, fmt.Errorf("get ledger: %w", err)
	}

	var rows []expenseRow
	err = r.db.SelectContext(ctx, &rows, `
		SELECT session_id, id, position, name, category, amount_cents, expense_date
		FROM ledger_expenses WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return ledger.State{}, false, fmt.Errorf("list ledger expenses: %w", err)
	}

	st := ledger.State{
		Budget:         core.Money{Cents: head.BudgetCents},
		InitialBudget:  core.Money{Cents: head.InitialBudgetCents},
		EditingID:      head.EditingID,
		CategoryFilter: head.CategoryFilter,
		Expenses:       make([]core.Expense, 0, len(rows)),
	}
	for _, row := range rows {
		date, err := core.ParseDate(row.ExpenseDate)
		if err != nil {
			return ledger.State{}, false, fmt.Errorf("expense %s: parse date %q: %w", row.ID, row.ExpenseDate, err)
		}
		st.Expenses = append(st.Expenses, core.Expense{
			ID:       row.ID,
			Name:     row.Name,
			Category: row.Category,
			Amount:   core.Money{Cents: row.AmountCents},
			Date:     date,
		})
	}
	// A dangling editing id would break the ledger invariant; drop it.
	if _, ok := st.Find(st.EditingID); st.EditingID != "" && !ok {
		st.EditingID = ""
	}
	return st, true, nil
}

// DeleteSnapshot removes the stored ledger of a session.
func (r *SQLiteRepository) DeleteSnapshot(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_expenses WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete ledger expenses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledgers WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete ledger: %w", err)
	}
	return tx.Commit()
}
