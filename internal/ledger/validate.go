package ledger

import (
	"errors"
	"fmt"
	"strings"

	"gastos/internal/core"
)

var (
	ErrMissingField    = errors.New("missing required field")
	ErrBudgetExceeded  = errors.New("amount exceeds remaining budget")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidBudget   = errors.New("invalid budget")
	ErrInvalidDate     = errors.New("invalid date")
	ErrExpenseNotFound = errors.New("expense not found")
)

// Form field names, shared with the HTML form and the CLI flags.
const (
	FieldName     = "name"
	FieldAmount   = "amount"
	FieldCategory = "category"
	FieldDate     = "date"
)

// FieldError lists the required fields left empty in a submission.
type FieldError struct {
	Fields []string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField, strings.Join(e.Fields, ", "))
}

func (e *FieldError) Unwrap() error { return ErrMissingField }

// Has reports whether field is among the missing ones.
func (e *FieldError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Submission is the raw content of the expense form. ID is set when editing.
type Submission struct {
	ID       string
	Name     string
	Amount   string
	Category string
	Date     string
}

// ValidateSubmission checks sub against the current state and returns the
// parsed draft. When editing, the amount already recorded for the expense is
// given back to the remaining budget before comparing.
func ValidateSubmission(s State, sub Submission) (core.DraftExpense, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{FieldName, sub.Name},
		{FieldAmount, sub.Amount},
		{FieldCategory, sub.Category},
		{FieldDate, sub.Date},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return core.DraftExpense{}, &FieldError{Fields: missing}
	}

	amount, err := core.ParseMoney(sub.Amount)
	if err != nil {
		return core.DraftExpense{}, err
	}
	if _, ok := core.CategoryByID(sub.Category); !ok {
		return core.DraftExpense{}, fmt.Errorf("%w: %q", ErrUnknownCategory, sub.Category)
	}
	date, err := core.ParseDate(sub.Date)
	if err != nil {
		return core.DraftExpense{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}

	draft := core.DraftExpense{
		Name:     strings.TrimSpace(sub.Name),
		Category: sub.Category,
		Amount:   amount,
		Date:     date,
	}
	if err := draft.Validate(); err != nil {
		return core.DraftExpense{}, err
	}

	var previous core.Money
	if id := target(s, sub); id != "" {
		current, ok := s.Find(id)
		if !ok {
			return core.DraftExpense{}, fmt.Errorf("%w: %s", ErrExpenseNotFound, id)
		}
		previous = current.Amount
	}
	if amount.Sub(previous).Cents > s.Remaining().Cents {
		return core.DraftExpense{}, ErrBudgetExceeded
	}
	return draft, nil
}

// target is the expense a submission overwrites: the posted id, or else the
// expense under edit. "" means a new expense.
func target(s State, sub Submission) string {
	if sub.ID != "" {
		return sub.ID
	}
	if e, ok := s.Editing(); ok {
		return e.ID
	}
	return ""
}

// SubmitAction validates sub and returns the add or update action for it.
// While an expense is being edited a submission without id updates it.
func SubmitAction(s State, sub Submission) (Action, error) {
	draft, err := ValidateSubmission(s, sub)
	if err != nil {
		return nil, err
	}
	id := target(s, sub)
	if id == "" {
		return AddExpense{Expense: draft}, nil
	}
	return UpdateExpense{Expense: draft.WithID(id)}, nil
}

// ValidateBudget parses a budget amount. It must be positive.
func ValidateBudget(raw string) (core.Money, error) {
	if strings.TrimSpace(raw) == "" {
		return core.Money{}, &FieldError{Fields: []string{"budget"}}
	}
	m, err := core.ParseMoney(raw)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %v", ErrInvalidBudget, err)
	}
	return m, nil
}
