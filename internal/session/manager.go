package session

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"gastos/internal/cache"
	"gastos/internal/core"
	"gastos/internal/ledger"
	"gastos/internal/log"
)

// Config controls the live session cache.
type Config struct {
	DefaultBudget core.Money
	TTL           time.Duration
	MaxSessions   int
}

// Manager hands out sessions, loading them from the store on cache misses.
// Without a store a session lives only as long as it stays in the cache.
type Manager struct {
	cfg     Config
	store   Store
	reducer ledger.Reducer
	live    *cache.LRUCache[*Session]
	group   singleflight.Group
	logger  *log.Logger
}

// NewManager builds a manager. store may be nil.
func NewManager(cfg Config, store Store, r ledger.Reducer, logger *log.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if logger == nil {
		logger = log.Discard()
	}
	m := &Manager{
		cfg:     cfg,
		store:   store,
		reducer: r,
		live:    cache.NewLRUCache[*Session](cfg.MaxSessions, cfg.TTL),
		logger:  logger.WithComponent(log.ComponentSession),
	}
	// Eviction runs under the cache lock, so a later Open of the same id
	// loads only after the evicted session finished its last action.
	m.live.OnEvict(func(id string, s *Session) {
		s.retire()
		m.logger.Debug("Session evicted", log.FieldSessionID, id)
	})
	return m
}

// Cache exposes the live session cache, e.g. to register it for cleanup.
func (m *Manager) Cache() *cache.LRUCache[*Session] { return m.live }

// Active returns the number of sessions held in memory.
func (m *Manager) Active() int { return m.live.Size() }

// Open returns the session for id, creating it with the default budget when
// it does not exist yet.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if s, ok := m.live.Get(id); ok {
		return s, nil
	}

	v, err, _ := m.group.Do(id, func() (any, error) {
		if s, ok := m.live.Get(id); ok {
			return s, nil
		}
		st, found, err := m.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if !found {
			st = ledger.NewState(m.cfg.DefaultBudget)
			m.logger.Info("Session created", log.FieldSessionID, id, log.FieldBudgetCents, st.Budget.Cents)
		}
		s := m.wrap(id, st)
		m.live.Set(id, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *Manager) load(ctx context.Context, id string) (ledger.State, bool, error) {
	if m.store == nil {
		return ledger.State{}, false, nil
	}
	st, found, err := m.store.LoadSnapshot(ctx, id)
	if err != nil {
		return ledger.State{}, false, fmt.Errorf("load session %s: %w", id, err)
	}
	return st, found, nil
}

func (m *Manager) wrap(id string, st ledger.State) *Session {
	s := New(id, st, m.reducer)
	s.reopen = func(ctx context.Context) (*Session, error) { return m.Open(ctx, id) }
	if m.store != nil {
		s.persist = func(ctx context.Context, st ledger.State) error {
			return m.store.SaveSnapshot(ctx, id, st)
		}
	}
	return s
}

// Drop forgets the session and its snapshot. A caller still holding the
// session gets a fresh ledger on its next action.
func (m *Manager) Drop(ctx context.Context, id string) error {
	if !ValidID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	m.live.Evict(id)
	if m.store == nil {
		return nil
	}
	if err := m.store.DeleteSnapshot(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
