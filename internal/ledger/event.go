package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Event records one applied action. It is what gets published, journaled and
// exported; expense fields are empty for actions that do not concern one.
type Event struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	Action         Kind      `json:"action"`
	ExpenseID      string    `json:"expense_id,omitempty"`
	ExpenseName    string    `json:"expense_name,omitempty"`
	Category       string    `json:"category,omitempty"`
	AmountCents    int64     `json:"amount_cents,omitempty"`
	ExpenseDate    string    `json:"expense_date,omitempty"`
	BudgetCents    int64     `json:"budget_cents"`
	RemainingCents int64     `json:"remaining_cents"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewEvent describes the transition from before to after caused by a.
func NewEvent(sessionID string, a Action, before, after State, at time.Time) Event {
	ev := Event{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		Action:         a.Kind(),
		BudgetCents:    after.Budget.Cents,
		RemainingCents: after.Remaining().Cents,
		OccurredAt:     at.UTC(),
	}

	switch a := a.(type) {
	case AddExpense:
		// The new expense is the only one in after that before lacks.
		if n := len(after.Expenses); n > len(before.Expenses) {
			ev.ExpenseID = after.Expenses[n-1].ID
		}
		ev.ExpenseName = a.Expense.Name
		ev.Category = a.Expense.Category
		ev.AmountCents = a.Expense.Amount.Cents
		ev.ExpenseDate = a.Expense.Date.ISO()
	case UpdateExpense:
		ev.ExpenseID = a.Expense.ID
		ev.ExpenseName = a.Expense.Name
		ev.Category = a.Expense.Category
		ev.AmountCents = a.Expense.Amount.Cents
		ev.ExpenseDate = a.Expense.Date.ISO()
	case DeleteExpense:
		ev.ExpenseID = a.ID
		if e, ok := before.Find(a.ID); ok {
			ev.ExpenseName = e.Name
			ev.Category = e.Category
			ev.AmountCents = e.Amount.Cents
			ev.ExpenseDate = e.Date.ISO()
		}
	case SetEditingID:
		ev.ExpenseID = a.ID
	case FilterCategory:
		ev.Category = a.Category
	}
	return ev
}

// Journaled reports whether the action changes recorded money and so belongs
// in the exported journal. Editing cursor and filter changes do not.
func (k Kind) Journaled() bool {
	switch k {
	case KindAddExpense, KindUpdateExpense, KindDeleteExpense, KindResetApp, KindDefineBudget:
		return true
	}
	return false
}
