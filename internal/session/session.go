// Package session keeps one ledger per browser or CLI user and serializes
// the actions applied to it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"gastos/internal/ledger"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrInvalidID = errors.New("invalid session id")
	ErrRetired   = errors.New("session retired")
)

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an id produced by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// Result describes one applied action.
type Result struct {
	Action ledger.Action
	Before ledger.State
	After  ledger.State
}

type persistFunc func(ctx context.Context, st ledger.State) error

// Session owns the ledger state of one user. All methods are safe for
// concurrent use.
//
// A session the manager let go of is retired: it no longer applies actions
// itself and hands them to the session the manager holds for the same id,
// so an id never has two live owners.
type Session struct {
	id      string
	reducer ledger.Reducer
	persist persistFunc
	reopen  func(ctx context.Context) (*Session, error)

	mu      sync.Mutex
	state   ledger.State
	retired bool
}

// New returns a session holding st. It is not persisted anywhere.
func New(id string, st ledger.State, r ledger.Reducer) *Session {
	return &Session{id: id, state: st, reducer: r}
}

func (s *Session) ID() string { return s.id }

// State returns the current state. The returned value must be treated as
// read-only; it may share memory with later states. A retired session
// reports the state it had when it was let go.
func (s *Session) State() ledger.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// retire waits for the action in flight, if any, and stops s from applying
// further ones.
func (s *Session) retire() {
	s.mu.Lock()
	s.retired = true
	s.mu.Unlock()
}

// Apply builds an action from the current state with decide, then reduces
// and persists it, all under the session lock. The new state is kept only if
// persisting succeeds. When decide fails nothing changes and its error is
// returned as is.
func (s *Session) Apply(ctx context.Context, decide func(ledger.State) (ledger.Action, error)) (Result, error) {
	s.mu.Lock()
	if s.retired {
		s.mu.Unlock()
		if s.reopen == nil {
			return Result{}, fmt.Errorf("%w: %s", ErrRetired, s.id)
		}
		owner, err := s.reopen(ctx)
		if err != nil {
			return Result{}, err
		}
		return owner.Apply(ctx, decide)
	}
	defer s.mu.Unlock()

	before := s.state
	action, err := decide(before)
	if err != nil {
		return Result{Before: before, After: before}, err
	}
	after, err := s.reducer.Reduce(before, action)
	if err != nil {
		return Result{Action: action, Before: before, After: before}, err
	}
	if s.persist != nil {
		if err := s.persist(ctx, after); err != nil {
			return Result{Action: action, Before: before, After: before}, fmt.Errorf("persist session %s: %w", s.id, err)
		}
	}
	s.state = after
	return Result{Action: action, Before: before, After: after}, nil
}

// Dispatch applies a.
func (s *Session) Dispatch(ctx context.Context, a ledger.Action) (Result, error) {
	return s.Apply(ctx, func(ledger.State) (ledger.Action, error) { return a, nil })
}
