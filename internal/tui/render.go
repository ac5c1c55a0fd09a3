package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"gastos/internal/core"
	"gastos/internal/ledger"
)

const (
	barWidth = 30
	// ShortIDLength is how many characters of an expense id the list shows.
	ShortIDLength = 8
)

// ProgressBar draws percent (0-100) as a bar of the given width.
func ProgressBar(percent, width int) string {
	if width <= 0 {
		return ""
	}
	percent = max(0, min(100, percent))
	filled := width * percent / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// RenderSummary shows budget, remaining and spent with the spent percentage.
func RenderSummary(st ledger.State, symbol string) string {
	if !st.HasBudget() {
		return boxStyle.Render(mutedStyle.Render("Sin presupuesto. Usa `gastos-cli budget` para definirlo."))
	}

	remaining := valueStyle
	barColor := colorBlue
	if st.Remaining().Cents <= 0 {
		remaining = remaining.Foreground(colorRed)
		barColor = colorRed
	}

	rows := []string{
		titleStyle.Render("Planificador de Gastos"),
		"",
		labelStyle.Render("Presupuesto:") + valueStyle.Render(core.FormatCurrency(st.Budget.Cents, symbol)),
		labelStyle.Render("Disponible:") + remaining.Render(core.FormatCurrency(st.Remaining().Cents, symbol)),
		labelStyle.Render("Gastado:") + valueStyle.Render(core.FormatCurrency(st.Spent().Cents, symbol)),
		"",
		lipgloss.NewStyle().Foreground(barColor).Render(ProgressBar(st.Percentage(), barWidth)) +
			fmt.Sprintf(" %d%% Gastado", st.Percentage()),
	}

	if totals := st.ByCategory(); len(totals) > 0 {
		rows = append(rows, "")
		for _, t := range totals {
			rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-14s", t.Name))+core.FormatCurrency(t.Amount.Cents, symbol))
		}
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// RenderList shows the visible expenses as a table.
func RenderList(st ledger.State, symbol string) string {
	visible := st.Visible()
	if len(visible) == 0 {
		if st.CategoryFilter != "" && len(st.Expenses) > 0 {
			return mutedStyle.Render("No hay gastos en esta categoría")
		}
		return mutedStyle.Render("No Hay Gastos")
	}

	rows := make([][]string, 0, len(visible))
	for _, e := range visible {
		id := e.ID
		if len(id) > ShortIDLength {
			id = id[:ShortIDLength]
		}
		if e.ID == st.EditingID {
			id += "*"
		}
		rows = append(rows, []string{
			id,
			e.Date.ISO(),
			e.Name,
			core.CategoryName(e.Category),
			core.FormatCurrency(e.Amount.Cents, symbol),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("ID", "Fecha", "Gasto", "Categoría", "Cantidad").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(colorBlue)
			}
			if col == 4 {
				return s.Align(lipgloss.Right)
			}
			return s
		})

	out := titleStyle.Render("Listado de Gastos") + "\n" + t.Render()
	if st.CategoryFilter != "" {
		out += "\n" + mutedStyle.Render("Filtro: "+core.CategoryName(st.CategoryFilter))
	}
	return out
}

// RenderError formats a rejected action.
func RenderError(msg string) string {
	return errorStyle.Render(msg)
}

// RenderSuccess formats a confirmation line.
func RenderSuccess(msg string) string {
	return successStyle.Render(msg)
}
