package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
	"gastos/internal/ledger"
	"gastos/internal/metrics"
	"gastos/internal/session"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []ledger.Event
	err    error
}

func (p *fakePublisher) PublishEvent(_ context.Context, ev ledger.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *fakePublisher) actions() []ledger.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ledger.Kind, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Action
	}
	return out
}

func newTestService(t *testing.T, budget int64) (*LedgerService, *fakePublisher, string) {
	t.Helper()
	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("e%d", n)
	}
	manager := session.NewManager(session.Config{DefaultBudget: core.Money{Cents: budget}},
		session.NewMemoryStore(), ledger.NewReducer(ids), nil)
	pub := &fakePublisher{}
	return NewLedgerService(manager, pub, metrics.New(nil), nil), pub, session.NewID()
}

func sub(id, amount string) ledger.Submission {
	return ledger.Submission{ID: id, Name: "Mercado", Amount: amount, Category: "2", Date: "2025-03-01"}
}

func TestLedgerServiceAddEditDelete(t *testing.T) {
	ctx := context.Background()
	svc, pub, sid := newTestService(t, 100000)

	res, err := svc.Submit(ctx, sid, sub("", "200"))
	require.NoError(t, err)
	assert.Equal(t, int64(80000), res.After.Remaining().Cents)

	res, err = svc.StartEdit(ctx, sid, "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", res.After.EditingID)

	res, err = svc.Submit(ctx, sid, sub("e1", "250"))
	require.NoError(t, err)
	assert.Equal(t, int64(75000), res.After.Remaining().Cents)
	assert.Empty(t, res.After.EditingID)

	res, err = svc.Delete(ctx, sid, "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(100000), res.After.Remaining().Cents)

	assert.Equal(t, []ledger.Kind{
		ledger.KindAddExpense, ledger.KindSetEditingID, ledger.KindUpdateExpense, ledger.KindDeleteExpense,
	}, pub.actions())
	assert.Equal(t, "e1", pub.events[0].ExpenseID)
	assert.Equal(t, sid, pub.events[3].SessionID)

	st, err := svc.State(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, st.Expenses)
}

func TestLedgerServiceSubmitWithoutIDWhileEditing(t *testing.T) {
	ctx := context.Background()
	svc, pub, sid := newTestService(t, 100000)

	_, err := svc.Submit(ctx, sid, sub("", "200"))
	require.NoError(t, err)
	_, err = svc.StartEdit(ctx, sid, "e1")
	require.NoError(t, err)

	res, err := svc.Submit(ctx, sid, sub("", "300"))
	require.NoError(t, err)
	assert.Len(t, res.After.Expenses, 1)
	assert.Empty(t, res.After.EditingID)
	assert.Equal(t, int64(70000), res.After.Remaining().Cents)
	assert.Equal(t, ledger.KindUpdateExpense, pub.actions()[2])
}

func TestLedgerServiceForget(t *testing.T) {
	ctx := context.Background()
	svc, _, sid := newTestService(t, 100000)

	_, err := svc.Submit(ctx, sid, sub("", "200"))
	require.NoError(t, err)
	require.NoError(t, svc.Forget(ctx, sid))

	st, err := svc.State(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, st.Expenses)
	assert.Equal(t, int64(100000), st.Remaining().Cents)

	require.ErrorIs(t, svc.Forget(ctx, "bad"), session.ErrInvalidID)
}

func TestLedgerServiceRejections(t *testing.T) {
	ctx := context.Background()
	svc, pub, sid := newTestService(t, 1000)

	_, err := svc.Submit(ctx, sid, sub("", "10.01"))
	require.ErrorIs(t, err, ledger.ErrBudgetExceeded)
	assert.Equal(t, "budget_exceeded", ValidationReason(err))

	_, err = svc.Submit(ctx, sid, ledger.Submission{Name: "x"})
	require.ErrorIs(t, err, ledger.ErrMissingField)

	_, err = svc.Delete(ctx, sid, "nope")
	require.ErrorIs(t, err, ledger.ErrExpenseNotFound)

	_, err = svc.StartEdit(ctx, sid, "nope")
	require.ErrorIs(t, err, ledger.ErrExpenseNotFound)

	_, err = svc.Filter(ctx, sid, "99")
	require.ErrorIs(t, err, ledger.ErrUnknownCategory)

	_, err = svc.DefineBudget(ctx, sid, "abc")
	require.ErrorIs(t, err, ledger.ErrInvalidBudget)

	_, err = svc.State(ctx, "not-a-session")
	require.ErrorIs(t, err, session.ErrInvalidID)

	assert.Empty(t, pub.actions(), "rejected intents publish nothing")

	st, err := svc.State(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), st.Remaining().Cents)
}

func TestLedgerServiceBudgetFilterReset(t *testing.T) {
	ctx := context.Background()
	svc, pub, sid := newTestService(t, 0)

	st, err := svc.State(ctx, sid)
	require.NoError(t, err)
	assert.False(t, st.HasBudget())

	_, err = svc.DefineBudget(ctx, sid, "500")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, sid, sub("", "100"))
	require.NoError(t, err)

	res, err := svc.Filter(ctx, sid, "2")
	require.NoError(t, err)
	assert.Equal(t, "2", res.After.CategoryFilter)

	res, err = svc.Reset(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), res.After.Budget.Cents)
	assert.Empty(t, res.After.Expenses)
	assert.Empty(t, res.After.CategoryFilter)

	res, err = svc.CancelEdit(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, res.After.EditingID)

	assert.Equal(t, []ledger.Kind{
		ledger.KindDefineBudget, ledger.KindAddExpense, ledger.KindFilterCategory, ledger.KindResetApp, ledger.KindCancelEdit,
	}, pub.actions())
}

func TestLedgerServicePublishFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	svc, pub, sid := newTestService(t, 1000)
	pub.err = errors.New("broker down")

	res, err := svc.Submit(ctx, sid, sub("", "1"))
	require.NoError(t, err)
	assert.Len(t, res.After.Expenses, 1)
	assert.Len(t, pub.actions(), 1)
}

func TestLedgerServiceWithoutPublisher(t *testing.T) {
	manager := session.NewManager(session.Config{DefaultBudget: core.Money{Cents: 1000}}, nil, ledger.NewReducer(nil), nil)
	svc := NewLedgerService(manager, nil, nil, nil)

	res, err := svc.Submit(context.Background(), session.NewID(), sub("", "1"))
	require.NoError(t, err)
	assert.Len(t, res.After.Expenses, 1)
}

func TestValidationReason(t *testing.T) {
	cases := map[error]string{
		&ledger.FieldError{Fields: []string{"name"}}:         "missing_field",
		ledger.ErrBudgetExceeded:                            "budget_exceeded",
		fmt.Errorf("x: %w", core.ErrInvalidAmount):          "invalid_amount",
		ledger.ErrInvalidBudget:                             "invalid_budget",
		fmt.Errorf("%w: %q", ledger.ErrUnknownCategory, "9"): "unknown_category",
		ledger.ErrInvalidDate:                               "invalid_date",
		core.ErrNameTooLong:                                 "invalid_name",
		ledger.ErrExpenseNotFound:                           "not_found",
		errors.New("disk full"):                             "",
	}
	for err, want := range cases {
		assert.Equal(t, want, ValidationReason(err), err.Error())
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&ledger.FieldError{Fields: []string{"amount"}}, "Todos los campos son obligatorios"},
		{fmt.Errorf("submit: %w", ledger.ErrBudgetExceeded), "Presupuesto superado"},
		{core.ErrInvalidAmount, "La cantidad no es válida"},
		{ledger.ErrInvalidBudget, "Presupuesto no válido"},
		{core.ErrEmptyCategory, "Categoría no válida"},
		{core.ErrInvalidMonth, "Fecha no válida"},
		{core.ErrEmptyName, "El nombre del gasto no es válido"},
		{fmt.Errorf("%w: e1", ledger.ErrExpenseNotFound), "Gasto no encontrado"},
		{errors.New("disk full"), "Error interno, inténtalo de nuevo"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UserMessage(tt.err), tt.err.Error())
	}
}
