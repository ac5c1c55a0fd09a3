// Package memory is an in-process journal sink for development and tests.
package memory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"gastos/internal/ledger"
)

var ErrEmptyEventID = errors.New("event without id")

type Store struct {
	mu   sync.Mutex
	rows []ledger.Event
	fail error
}

func New() *Store {
	return &Store{}
}

// AppendEvents stores the events. Nothing is stored if any event lacks an id.
func (s *Store) AppendEvents(_ context.Context, events []ledger.Event) error {
	for _, ev := range events {
		if ev.ID == "" {
			return ErrEmptyEventID
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.rows = append(s.rows, events...)
	return nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []ledger.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rows)
}

// FailWith makes subsequent appends return err until called with nil.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}
