package ledger

import "gastos/internal/core"

// Kind names an action, e.g. in logs, metrics and published events.
type Kind string

const (
	KindAddExpense     Kind = "add-expense"
	KindUpdateExpense  Kind = "update-expense"
	KindDeleteExpense  Kind = "delete-expense"
	KindSetEditingID   Kind = "set-editing-id"
	KindResetApp       Kind = "reset-app"
	KindDefineBudget   Kind = "define-budget"
	KindCancelEdit     Kind = "cancel-edit"
	KindFilterCategory Kind = "filter-category"
)

// Action is an intent dispatched to the ledger.
type Action interface {
	Kind() Kind
}

type (
	AddExpense struct {
		Expense core.DraftExpense
	}

	UpdateExpense struct {
		Expense core.Expense
	}

	DeleteExpense struct {
		ID string
	}

	SetEditingID struct {
		ID string
	}

	ResetApp struct{}

	DefineBudget struct {
		Budget core.Money
	}

	CancelEdit struct{}

	FilterCategory struct {
		Category string
	}
)

func (AddExpense) Kind() Kind     { return KindAddExpense }
func (UpdateExpense) Kind() Kind  { return KindUpdateExpense }
func (DeleteExpense) Kind() Kind  { return KindDeleteExpense }
func (SetEditingID) Kind() Kind   { return KindSetEditingID }
func (ResetApp) Kind() Kind       { return KindResetApp }
func (DefineBudget) Kind() Kind   { return KindDefineBudget }
func (CancelEdit) Kind() Kind     { return KindCancelEdit }
func (FilterCategory) Kind() Kind { return KindFilterCategory }
