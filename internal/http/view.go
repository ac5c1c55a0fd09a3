package http

import (
	"gastos/internal/core"
	"gastos/internal/ledger"
)

// pageData is everything the templates render. Amounts are preformatted.
type pageData struct {
	HasBudget  bool
	Budget     string
	Spent      string
	Remaining  string
	Percentage int
	Exhausted  bool

	BudgetForm budgetForm
	Form       expenseForm

	Categories []categoryOption
	Filter     string
	Totals     []categoryTotal
	Expenses   []expenseItem
	Count      int
}

type budgetForm struct {
	Value string
	Error string
}

type expenseForm struct {
	ID       string
	Name     string
	Amount   string
	Category string
	Date     string
	Error    string
	Missing  map[string]bool
}

// Editing reports whether the form updates an existing expense.
func (f expenseForm) Editing() bool { return f.ID != "" }

func (f expenseForm) Legend() string {
	if f.Editing() {
		return "Actualizar Gasto"
	}
	return "Nuevo Gasto"
}

func (f expenseForm) Submit() string {
	if f.Editing() {
		return "Guardar Cambios"
	}
	return "Registrar Gasto"
}

type categoryOption struct {
	ID   string
	Name string
	Icon string
}

type categoryTotal struct {
	Name   string
	Amount string
}

type expenseItem struct {
	ID       string
	Name     string
	Category string
	Icon     string
	Amount   string
	Date     string
	Editing  bool
}

// newPageData builds the view of st. The expense form is prefilled with the
// expense under edit, or left blank with today's date.
func (s *Server) newPageData(st ledger.State) pageData {
	d := pageData{
		HasBudget:  st.HasBudget(),
		Budget:     s.money(st.Budget),
		Spent:      s.money(st.Spent()),
		Remaining:  s.money(st.Remaining()),
		Percentage: st.Percentage(),
		Exhausted:  st.HasBudget() && st.Remaining().Cents <= 0,
		Filter:     st.CategoryFilter,
		Count:      len(st.Expenses),
		Form:       expenseForm{Date: core.Today().ISO()},
	}

	for _, c := range core.Categories {
		d.Categories = append(d.Categories, categoryOption{ID: c.ID, Name: c.Name, Icon: c.Icon})
	}
	for _, t := range st.ByCategory() {
		d.Totals = append(d.Totals, categoryTotal{Name: t.Name, Amount: s.money(t.Amount)})
	}
	for _, e := range st.Visible() {
		item := expenseItem{
			ID:       e.ID,
			Name:     e.Name,
			Category: core.CategoryName(e.Category),
			Amount:   s.money(e.Amount),
			Date:     e.Date.Long(),
			Editing:  e.ID == st.EditingID,
		}
		if c, ok := core.CategoryByID(e.Category); ok {
			item.Icon = c.Icon
		}
		d.Expenses = append(d.Expenses, item)
	}

	if e, ok := st.Editing(); ok {
		d.Form = expenseForm{
			ID:       e.ID,
			Name:     e.Name,
			Amount:   e.Amount.Decimal(),
			Category: e.Category,
			Date:     e.Date.ISO(),
		}
	}
	return d
}

// withSubmission puts back what the user typed after a rejected submission.
func (d pageData) withSubmission(sub ledger.Submission, msg string, fe *ledger.FieldError) pageData {
	d.Form = expenseForm{
		ID:       sub.ID,
		Name:     sub.Name,
		Amount:   sub.Amount,
		Category: sub.Category,
		Date:     sub.Date,
		Error:    msg,
	}
	if fe != nil {
		d.Form.Missing = make(map[string]bool, len(fe.Fields))
		for _, f := range fe.Fields {
			d.Form.Missing[f] = true
		}
	}
	return d
}

func (s *Server) money(m core.Money) string {
	return core.FormatCurrency(m.Cents, s.currency)
}

// ledgerJSON is the body of GET /api/ledger.
type ledgerJSON struct {
	BudgetCents    int64             `json:"budget_cents"`
	InitialCents   int64             `json:"initial_budget_cents"`
	SpentCents     int64             `json:"spent_cents"`
	RemainingCents int64             `json:"remaining_cents"`
	Percentage     int               `json:"percentage"`
	EditingID      string            `json:"editing_id,omitempty"`
	CategoryFilter string            `json:"category_filter,omitempty"`
	Expenses       []expenseJSON     `json:"expenses"`
	ByCategory     []categoryAmtJSON `json:"by_category"`
}

type expenseJSON struct {
	ID          string `json:"id"`
	Name        string `json:"expense_name"`
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
}

type categoryAmtJSON struct {
	Category    string `json:"category"`
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
}

func newLedgerJSON(st ledger.State) ledgerJSON {
	out := ledgerJSON{
		BudgetCents:    st.Budget.Cents,
		InitialCents:   st.InitialBudget.Cents,
		SpentCents:     st.Spent().Cents,
		RemainingCents: st.Remaining().Cents,
		Percentage:     st.Percentage(),
		EditingID:      st.EditingID,
		CategoryFilter: st.CategoryFilter,
		Expenses:       make([]expenseJSON, 0, len(st.Expenses)),
		ByCategory:     []categoryAmtJSON{},
	}
	for _, e := range st.Expenses {
		out.Expenses = append(out.Expenses, expenseJSON{
			ID:          e.ID,
			Name:        e.Name,
			Category:    e.Category,
			AmountCents: e.Amount.Cents,
			Amount:      e.Amount.Decimal(),
			Date:        e.Date.ISO(),
		})
	}
	for _, c := range st.ByCategory() {
		out.ByCategory = append(out.ByCategory, categoryAmtJSON{Category: c.CategoryID, Name: c.Name, AmountCents: c.Amount.Cents})
	}
	return out
}
