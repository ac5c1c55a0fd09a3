package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"gastos/internal/core"
	"gastos/internal/ledger"
)

var (
	errRequired = errors.New("Campo obligatorio")
	errAmount   = errors.New("La cantidad no es válida")
	errDate     = errors.New("Usa el formato AAAA-MM-DD")
)

// ExpenseForm asks for the fields of sub, prefilled with its current values.
// A submission with an id is an edit.
func ExpenseForm(sub *ledger.Submission) *huh.Form {
	legend := "Nuevo Gasto"
	if sub.ID != "" {
		legend = "Actualizar Gasto"
	}
	if sub.Date == "" {
		sub.Date = core.Today().ISO()
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Nombre Gasto:").
				Placeholder("Escribe el tipo de Gasto").
				CharLimit(200).
				Value(&sub.Name).
				Validate(validateRequired),
			huh.NewInput().
				Title("Cantidad:").
				Placeholder("Agrega la Cantidad del Gasto. Ej. 300").
				Value(&sub.Amount).
				Validate(validateAmount),
			huh.NewSelect[string]().
				Title("Categoría:").
				Options(CategoryOptions()...).
				Value(&sub.Category),
			huh.NewInput().
				Title("Fecha Gasto:").
				Placeholder("AAAA-MM-DD").
				Value(&sub.Date).
				Validate(validateDate),
		).Title(legend),
	)
}

// BudgetForm asks for the budget amount.
func BudgetForm(raw *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Definir Presupuesto").
				Placeholder("Define tu presupuesto").
				Value(raw).
				Validate(validateAmount),
		),
	)
}

// ConfirmForm asks a yes/no question.
func ConfirmForm(question string, ok *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Sí").
				Negative("No").
				Value(ok),
		),
	)
}

// CategoryOptions lists the categories in display order.
func CategoryOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(core.Categories))
	for _, c := range core.Categories {
		opts = append(opts, huh.NewOption(c.Name, c.ID))
	}
	return opts
}

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return errRequired
	}
	return nil
}

func validateAmount(s string) error {
	if err := validateRequired(s); err != nil {
		return err
	}
	if _, err := core.ParseMoney(s); err != nil {
		return errAmount
	}
	return nil
}

func validateDate(s string) error {
	if err := validateRequired(s); err != nil {
		return err
	}
	if _, err := core.ParseDate(s); err != nil {
		return errDate
	}
	return nil
}
