// Package ledger holds the budget state of one user and the pure transition
// function that applies actions to it.
package ledger

import (
	"slices"

	"gastos/internal/core"
)

// State is an immutable snapshot of a budget ledger. Values returned by
// Reducer.Reduce never share the Expenses backing array with their input.
type State struct {
	Budget         core.Money
	InitialBudget  core.Money
	Expenses       []core.Expense
	EditingID      string
	CategoryFilter string
}

// NewState returns an empty ledger initialized with budget.
func NewState(budget core.Money) State {
	return State{Budget: budget, InitialBudget: budget}
}

// HasBudget reports whether a budget has been defined.
func (s State) HasBudget() bool {
	return s.Budget.Cents > 0
}

// Spent is the sum of all recorded amounts.
func (s State) Spent() core.Money {
	var total int64
	for _, e := range s.Expenses {
		total += e.Amount.Cents
	}
	return core.Money{Cents: total}
}

// Remaining is budget minus spent. It can go negative only if the caller
// skipped validation.
func (s State) Remaining() core.Money {
	return s.Budget.Sub(s.Spent())
}

// Percentage of the budget already spent, clamped to [0, 100].
func (s State) Percentage() int {
	if s.Budget.Cents <= 0 {
		return 0
	}
	p := s.Spent().Cents * 100 / s.Budget.Cents
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}

// Find returns the expense with the given id.
func (s State) Find(id string) (core.Expense, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return core.Expense{}, false
	}
	return s.Expenses[i], true
}

// Editing returns the expense under edit, if any.
func (s State) Editing() (core.Expense, bool) {
	if s.EditingID == "" {
		return core.Expense{}, false
	}
	return s.Find(s.EditingID)
}

// Visible returns the expenses matching the category filter, in ledger order.
func (s State) Visible() []core.Expense {
	if s.CategoryFilter == "" {
		return slices.Clone(s.Expenses)
	}
	out := make([]core.Expense, 0, len(s.Expenses))
	for _, e := range s.Expenses {
		if e.Category == s.CategoryFilter {
			out = append(out, e)
		}
	}
	return out
}

// ByCategory aggregates amounts per category, following the order of core.Categories.
// Categories without expenses are omitted.
func (s State) ByCategory() []core.CategoryAmount {
	sums := make(map[string]int64)
	for _, e := range s.Expenses {
		sums[e.Category] += e.Amount.Cents
	}
	out := make([]core.CategoryAmount, 0, len(sums))
	for _, c := range core.Categories {
		if total, ok := sums[c.ID]; ok {
			out = append(out, core.CategoryAmount{CategoryID: c.ID, Name: c.Name, Amount: core.Money{Cents: total}})
			delete(sums, c.ID)
		}
	}
	// Ids outside the static table (e.g. from an older snapshot) go last.
	rest := make([]string, 0, len(sums))
	for id := range sums {
		rest = append(rest, id)
	}
	slices.Sort(rest)
	for _, id := range rest {
		out = append(out, core.CategoryAmount{CategoryID: id, Name: id, Amount: core.Money{Cents: sums[id]}})
	}
	return out
}

func (s State) indexOf(id string) int {
	return slices.IndexFunc(s.Expenses, func(e core.Expense) bool { return e.ID == id })
}

// clone copies the state so the result can be modified freely.
func (s State) clone() State {
	s.Expenses = slices.Clone(s.Expenses)
	return s
}
