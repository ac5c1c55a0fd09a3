package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
)

func TestNewEvent(t *testing.T) {
	r := NewReducer(sequentialIDs())
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s0 := NewState(core.Money{Cents: 10000})

	add := AddExpense{Expense: draft("pan", 300)}
	s1, err := r.Reduce(s0, add)
	require.NoError(t, err)

	ev := NewEvent("sess", add, s0, s1, at)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, KindAddExpense, ev.Action)
	assert.Equal(t, "e1", ev.ExpenseID)
	assert.Equal(t, int64(300), ev.AmountCents)
	assert.Equal(t, "2025-03-01", ev.ExpenseDate)
	assert.Equal(t, int64(9700), ev.RemainingCents)

	del := DeleteExpense{ID: "e1"}
	s2, err := r.Reduce(s1, del)
	require.NoError(t, err)
	ev = NewEvent("sess", del, s1, s2, at)
	assert.Equal(t, "pan", ev.ExpenseName, "delete events carry the removed expense")
	assert.Equal(t, int64(10000), ev.RemainingCents)
}

func TestKindJournaled(t *testing.T) {
	assert.True(t, KindAddExpense.Journaled())
	assert.True(t, KindResetApp.Journaled())
	assert.False(t, KindSetEditingID.Journaled())
	assert.False(t, KindFilterCategory.Journaled())
}
