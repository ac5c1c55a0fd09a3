package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
	"gastos/internal/ledger"
)

func TestFieldValidators(t *testing.T) {
	assert.ErrorIs(t, validateRequired("  "), errRequired)
	assert.NoError(t, validateRequired("Cena"))

	assert.ErrorIs(t, validateAmount(""), errRequired)
	assert.ErrorIs(t, validateAmount("abc"), errAmount)
	assert.ErrorIs(t, validateAmount("0"), errAmount)
	assert.NoError(t, validateAmount("12,50"))

	assert.ErrorIs(t, validateDate(""), errRequired)
	assert.ErrorIs(t, validateDate("15/01/2024"), errDate)
	assert.NoError(t, validateDate("2024-01-15"))
}

func TestExpenseFormDefaultsDate(t *testing.T) {
	sub := ledger.Submission{}
	form := ExpenseForm(&sub)
	require.NotNil(t, form)
	assert.Equal(t, core.Today().ISO(), sub.Date)

	sub = ledger.Submission{ID: "e1", Date: "2024-01-15"}
	ExpenseForm(&sub)
	assert.Equal(t, "2024-01-15", sub.Date, "existing date is kept")
}

func TestCategoryOptions(t *testing.T) {
	opts := CategoryOptions()
	require.Len(t, opts, len(core.Categories))
	assert.Equal(t, "Ahorro", opts[0].Key)
	assert.Equal(t, "1", opts[0].Value)
}
