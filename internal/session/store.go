package session

import (
	"context"
	"slices"
	"sync"

	"gastos/internal/ledger"
)

// Store persists ledger snapshots by session id.
type Store interface {
	LoadSnapshot(ctx context.Context, id string) (ledger.State, bool, error)
	SaveSnapshot(ctx context.Context, id string, st ledger.State) error
	DeleteSnapshot(ctx context.Context, id string) error
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]ledger.State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]ledger.State)}
}

func (m *MemoryStore) LoadSnapshot(_ context.Context, id string) (ledger.State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.items[id]
	if !ok {
		return ledger.State{}, false, nil
	}
	st.Expenses = slices.Clone(st.Expenses)
	return st, true, nil
}

func (m *MemoryStore) SaveSnapshot(_ context.Context, id string, st ledger.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st.Expenses = slices.Clone(st.Expenses)
	m.items[id] = st
	return nil
}

func (m *MemoryStore) DeleteSnapshot(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// Len returns the number of stored snapshots.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
