package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
	"gastos/internal/ledger"
)

func expense(cents int64) core.DraftExpense {
	return core.DraftExpense{Name: "x", Category: "2", Amount: core.Money{Cents: cents}, Date: core.NewDate(2025, 5, 1)}
}

func newManager(store Store) *Manager {
	return NewManager(Config{DefaultBudget: core.Money{Cents: 10000}, TTL: time.Hour, MaxSessions: 10}, store, ledger.Reducer{}, nil)
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID(NewID()))
	assert.False(t, ValidID(""))
	assert.False(t, ValidID("not-a-uuid"))
	assert.False(t, ValidID("{"+NewID()+"}"))
}

func TestManagerOpenCreatesWithDefaultBudget(t *testing.T) {
	m := newManager(nil)
	id := NewID()

	s, err := m.Open(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), s.State().Budget.Cents)

	again, err := m.Open(context.Background(), id)
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Equal(t, 1, m.Active())

	_, err = m.Open(context.Background(), "bad")
	require.ErrorIs(t, err, ErrInvalidID)
}

func TestManagerReloadsFromStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	id := NewID()

	m := newManager(store)
	s, err := m.Open(ctx, id)
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, ledger.AddExpense{Expense: expense(2500)})
	require.NoError(t, err)

	// A second manager shares only the store, as after a restart.
	restarted := newManager(store)
	got, err := restarted.Open(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), got.State().Remaining().Cents)

	require.NoError(t, restarted.Drop(ctx, id))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, restarted.Active())
	require.ErrorIs(t, restarted.Drop(ctx, "bad"), ErrInvalidID)
}

func submitOne(st ledger.State) (ledger.Action, error) {
	return ledger.SubmitAction(st, ledger.Submission{Name: "x", Amount: "30", Category: "2", Date: "2025-05-01"})
}

// A session held across its eviction must not fork the ledger.
func TestEvictedSessionForwardsToCurrentOwner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	m := NewManager(Config{DefaultBudget: core.Money{Cents: 10000}, TTL: time.Hour, MaxSessions: 1}, store, ledger.Reducer{}, nil)
	x, y := NewID(), NewID()

	held, err := m.Open(ctx, x)
	require.NoError(t, err)
	_, err = m.Open(ctx, y) // evicts x
	require.NoError(t, err)
	fresh, err := m.Open(ctx, x)
	require.NoError(t, err)
	require.NotSame(t, held, fresh)

	_, err = held.Apply(ctx, submitOne)
	require.NoError(t, err)
	_, err = fresh.Apply(ctx, submitOne)
	require.NoError(t, err)

	current, err := m.Open(ctx, x)
	require.NoError(t, err)
	assert.Len(t, current.State().Expenses, 2)
	saved, _, err := store.LoadSnapshot(ctx, x)
	require.NoError(t, err)
	assert.Len(t, saved.Expenses, 2)
}

// Validation on a stale holder still sees every earlier expense.
func TestEvictedSessionValidatesAgainstCurrentState(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	m := NewManager(Config{DefaultBudget: core.Money{Cents: 5000}, TTL: time.Hour, MaxSessions: 1}, store, ledger.Reducer{}, nil)
	x := NewID()

	held, err := m.Open(ctx, x)
	require.NoError(t, err)
	_, err = m.Open(ctx, NewID())
	require.NoError(t, err)
	fresh, err := m.Open(ctx, x)
	require.NoError(t, err)

	_, err = fresh.Apply(ctx, submitOne) // 30.00 of 50.00
	require.NoError(t, err)
	_, err = held.Apply(ctx, submitOne)
	require.ErrorIs(t, err, ledger.ErrBudgetExceeded)

	saved, _, err := store.LoadSnapshot(ctx, x)
	require.NoError(t, err)
	assert.Len(t, saved.Expenses, 1)
}

func TestRetiredSessionWithoutManager(t *testing.T) {
	s := New(NewID(), ledger.NewState(core.Money{Cents: 100}), ledger.Reducer{})
	s.retire()
	_, err := s.Dispatch(context.Background(), ledger.ResetApp{})
	require.ErrorIs(t, err, ErrRetired)
}

// Concurrent submissions split across a held and a reopened session never
// overspend.
func TestApplyIsAtomicAcrossEviction(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	m := NewManager(Config{DefaultBudget: core.Money{Cents: 1000}, TTL: time.Hour, MaxSessions: 1}, store, ledger.Reducer{}, nil)
	x := NewID()

	held, err := m.Open(ctx, x)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := held
			if i%2 == 1 {
				_, _ = m.Open(ctx, NewID())
				s, _ = m.Open(ctx, x)
			}
			_, _ = s.Apply(ctx, func(st ledger.State) (ledger.Action, error) {
				return ledger.SubmitAction(st, ledger.Submission{Name: "x", Amount: "1", Category: "2", Date: "2025-05-01"})
			})
		}(i)
	}
	wg.Wait()

	saved, _, err := store.LoadSnapshot(ctx, x)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(saved.Expenses), 10)
	assert.GreaterOrEqual(t, saved.Remaining().Cents, int64(0))
}

type failingStore struct{ *MemoryStore }

func (failingStore) SaveSnapshot(context.Context, string, ledger.State) error {
	return errors.New("disk full")
}

func TestApplyKeepsStateWhenPersistFails(t *testing.T) {
	m := newManager(failingStore{NewMemoryStore()})
	s, err := m.Open(context.Background(), NewID())
	require.NoError(t, err)

	_, err = s.Dispatch(context.Background(), ledger.AddExpense{Expense: expense(100)})
	require.Error(t, err)
	assert.Empty(t, s.State().Expenses)
}

func TestApplyDecideErrorLeavesState(t *testing.T) {
	s := New(NewID(), ledger.NewState(core.Money{Cents: 100}), ledger.Reducer{})
	boom := errors.New("boom")
	res, err := s.Apply(context.Background(), func(ledger.State) (ledger.Action, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, res.Before, res.After)
}

// Concurrent validated submissions against one session never overspend.
func TestApplyIsAtomicPerSession(t *testing.T) {
	s := New(NewID(), ledger.NewState(core.Money{Cents: 1000}), ledger.Reducer{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Apply(ctx, func(st ledger.State) (ledger.Action, error) {
				return ledger.SubmitAction(st, ledger.Submission{Name: "x", Amount: "1", Category: "2", Date: "2025-05-01"})
			})
		}()
	}
	wg.Wait()

	st := s.State()
	assert.Len(t, st.Expenses, 10)
	assert.Equal(t, int64(0), st.Remaining().Cents)
}
