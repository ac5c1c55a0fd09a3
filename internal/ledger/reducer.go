package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidAction = errors.New("invalid action")
	ErrDuplicateID   = errors.New("generated expense id already in use")
)

// IDGenerator returns a fresh expense id.
type IDGenerator func() string

// Reducer applies actions to a State. The zero value uses random UUIDs.
type Reducer struct {
	NewID IDGenerator
}

// NewReducer returns a reducer using ids, or random UUIDs when ids is nil.
func NewReducer(ids IDGenerator) Reducer {
	return Reducer{NewID: ids}
}

// Reduce returns the state obtained by applying a to s. The input state is
// never modified. Update and delete of an id that is not in the ledger leave
// the expenses unchanged and are not errors.
func (r Reducer) Reduce(s State, a Action) (State, error) {
	switch a := a.(type) {
	case AddExpense:
		id := r.newID()
		if s.indexOf(id) >= 0 {
			return s, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		next := s.clone()
		next.Expenses = append(next.Expenses, a.Expense.WithID(id))
		return next, nil

	case UpdateExpense:
		next := s.clone()
		if i := next.indexOf(a.Expense.ID); i >= 0 {
			next.Expenses[i] = a.Expense
		}
		next.EditingID = ""
		return next, nil

	case DeleteExpense:
		i := s.indexOf(a.ID)
		if i < 0 {
			return s, nil
		}
		next := s.clone()
		next.Expenses = append(next.Expenses[:i], next.Expenses[i+1:]...)
		if next.EditingID == a.ID {
			next.EditingID = ""
		}
		return next, nil

	case SetEditingID:
		// An editing id must always reference an expense in the ledger.
		if s.indexOf(a.ID) < 0 {
			return s, nil
		}
		next := s.clone()
		next.EditingID = a.ID
		return next, nil

	case ResetApp:
		return State{Budget: s.InitialBudget, InitialBudget: s.InitialBudget}, nil

	case DefineBudget:
		next := s.clone()
		next.Budget = a.Budget
		next.InitialBudget = a.Budget
		return next, nil

	case CancelEdit:
		next := s.clone()
		next.EditingID = ""
		return next, nil

	case FilterCategory:
		next := s.clone()
		next.CategoryFilter = a.Category
		return next, nil

	default:
		return s, fmt.Errorf("%w: %T", ErrInvalidAction, a)
	}
}

func (r Reducer) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}
