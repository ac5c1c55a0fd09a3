package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gastos/internal/core"
	"gastos/internal/ledger"
	"gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/session"
)

// EventPublisher receives one event per applied action.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev ledger.Event) error
}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(ctx context.Context, ev ledger.Event) error

func (f PublisherFunc) PublishEvent(ctx context.Context, ev ledger.Event) error { return f(ctx, ev) }

// LedgerService is what the UIs talk to. It validates intents against the
// session's current state, dispatches them and publishes the resulting event.
type LedgerService struct {
	sessions  *session.Manager
	publisher EventPublisher
	metrics   *metrics.Registry
	logger    *log.Logger
	audit     *log.Audit
	now       func() time.Time
}

// NewLedgerService wires the service. publisher and m may be nil.
func NewLedgerService(sessions *session.Manager, publisher EventPublisher, m *metrics.Registry, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerService{
		sessions:  sessions,
		publisher: publisher,
		metrics:   m,
		logger:    logger.WithComponent(log.ComponentLedger),
		audit:     log.NewAudit(logger),
		now:       time.Now,
	}
}

// State returns the ledger of the session, creating the session if needed.
func (s *LedgerService) State(ctx context.Context, sessionID string) (ledger.State, error) {
	sess, err := s.sessions.Open(ctx, sessionID)
	if err != nil {
		return ledger.State{}, err
	}
	return sess.State(), nil
}

// Submit validates the expense form and adds or updates the expense. A form
// without id updates the expense under edit, if any.
func (s *LedgerService) Submit(ctx context.Context, sessionID string, sub ledger.Submission) (session.Result, error) {
	kind := ledger.KindAddExpense
	if sub.ID != "" {
		kind = ledger.KindUpdateExpense
	}
	return s.apply(ctx, sessionID, kind, func(st ledger.State) (ledger.Action, error) {
		return ledger.SubmitAction(st, sub)
	})
}

// DefineBudget sets the budget from raw form input.
func (s *LedgerService) DefineBudget(ctx context.Context, sessionID, raw string) (session.Result, error) {
	return s.apply(ctx, sessionID, ledger.KindDefineBudget, func(ledger.State) (ledger.Action, error) {
		budget, err := ledger.ValidateBudget(raw)
		if err != nil {
			return nil, err
		}
		return ledger.DefineBudget{Budget: budget}, nil
	})
}

// Delete removes an expense. Unknown ids fail with ledger.ErrExpenseNotFound
// so that callers can tell the user.
func (s *LedgerService) Delete(ctx context.Context, sessionID, expenseID string) (session.Result, error) {
	return s.apply(ctx, sessionID, ledger.KindDeleteExpense, func(st ledger.State) (ledger.Action, error) {
		if _, ok := st.Find(expenseID); !ok {
			return nil, fmt.Errorf("%w: %s", ledger.ErrExpenseNotFound, expenseID)
		}
		return ledger.DeleteExpense{ID: expenseID}, nil
	})
}

// StartEdit marks an expense as being edited.
func (s *LedgerService) StartEdit(ctx context.Context, sessionID, expenseID string) (session.Result, error) {
	return s.apply(ctx, sessionID, ledger.KindSetEditingID, func(st ledger.State) (ledger.Action, error) {
		if _, ok := st.Find(expenseID); !ok {
			return nil, fmt.Errorf("%w: %s", ledger.ErrExpenseNotFound, expenseID)
		}
		return ledger.SetEditingID{ID: expenseID}, nil
	})
}

func (s *LedgerService) CancelEdit(ctx context.Context, sessionID string) (session.Result, error) {
	return s.dispatch(ctx, sessionID, ledger.CancelEdit{})
}

// Filter restricts the visible list to one category; "" shows everything.
func (s *LedgerService) Filter(ctx context.Context, sessionID, category string) (session.Result, error) {
	return s.apply(ctx, sessionID, ledger.KindFilterCategory, func(ledger.State) (ledger.Action, error) {
		if category != "" {
			if _, ok := core.CategoryByID(category); !ok {
				return nil, fmt.Errorf("%w: %q", ledger.ErrUnknownCategory, category)
			}
		}
		return ledger.FilterCategory{Category: category}, nil
	})
}

// Reset clears the expenses and restores the initial budget.
func (s *LedgerService) Reset(ctx context.Context, sessionID string) (session.Result, error) {
	return s.dispatch(ctx, sessionID, ledger.ResetApp{})
}

// Forget deletes the session and its saved ledger.
func (s *LedgerService) Forget(ctx context.Context, sessionID string) error {
	if err := s.sessions.Drop(ctx, sessionID); err != nil {
		s.audit.LogError(ctx, "Failed to forget session", err, log.ComponentLedger, log.OpDelete,
			log.NewFields().WithSession(sessionID))
		return err
	}
	s.logger.InfoContext(ctx, "Session forgotten", log.FieldSessionID, sessionID)
	return nil
}

func (s *LedgerService) dispatch(ctx context.Context, sessionID string, a ledger.Action) (session.Result, error) {
	return s.apply(ctx, sessionID, a.Kind(), func(ledger.State) (ledger.Action, error) { return a, nil })
}

func (s *LedgerService) apply(ctx context.Context, sessionID string, kind ledger.Kind, decide func(ledger.State) (ledger.Action, error)) (session.Result, error) {
	sess, err := s.sessions.Open(ctx, sessionID)
	if err != nil {
		return session.Result{}, err
	}

	res, err := sess.Apply(ctx, decide)
	if err != nil {
		if reason := ValidationReason(err); reason != "" {
			s.metrics.ObserveValidation(reason)
			s.audit.LogRejected(ctx, sessionID, string(kind), reason)
			return res, err
		}
		s.metrics.ObserveAction(string(kind), err)
		s.audit.LogError(ctx, "Ledger action failed", err, log.ComponentLedger, log.OpDispatch,
			log.NewFields().WithSession(sessionID).WithAction(string(kind)))
		return res, err
	}

	kind = res.Action.Kind()
	s.metrics.ObserveAction(string(kind), nil)
	after := res.After
	s.audit.LogDispatch(ctx, sessionID, string(kind), after.Budget.Cents, after.Remaining().Cents)

	s.publish(ctx, ledger.NewEvent(sessionID, res.Action, res.Before, res.After, s.now()))
	return res, nil
}

func (s *LedgerService) publish(ctx context.Context, ev ledger.Event) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishEvent(ctx, ev)
	s.metrics.ObservePublish(err)
	if err != nil {
		// The ledger already changed; losing the event only affects the journal.
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldError, err,
			log.FieldEventID, ev.ID,
			log.FieldSessionID, ev.SessionID,
			log.FieldAction, string(ev.Action))
	}
}

// ValidationReason classifies user input errors for metrics and messages.
// It returns "" for errors that are not the user's fault.
func ValidationReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrMissingField):
		return "missing_field"
	case errors.Is(err, ledger.ErrBudgetExceeded):
		return "budget_exceeded"
	case errors.Is(err, core.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ledger.ErrInvalidBudget):
		return "invalid_budget"
	case errors.Is(err, ledger.ErrUnknownCategory), errors.Is(err, core.ErrEmptyCategory):
		return "unknown_category"
	case errors.Is(err, ledger.ErrInvalidDate), errors.Is(err, core.ErrInvalidDay), errors.Is(err, core.ErrInvalidMonth):
		return "invalid_date"
	case errors.Is(err, core.ErrEmptyName), errors.Is(err, core.ErrNameTooLong):
		return "invalid_name"
	case errors.Is(err, ledger.ErrExpenseNotFound):
		return "not_found"
	}
	return ""
}

// UserMessage is the text the web and terminal front-ends show for err.
func UserMessage(err error) string {
	switch ValidationReason(err) {
	case "missing_field":
		return "Todos los campos son obligatorios"
	case "budget_exceeded":
		return "Presupuesto superado"
	case "invalid_amount":
		return "La cantidad no es válida"
	case "invalid_budget":
		return "Presupuesto no válido"
	case "unknown_category":
		return "Categoría no válida"
	case "invalid_date":
		return "Fecha no válida"
	case "invalid_name":
		return "El nombre del gasto no es válido"
	case "not_found":
		return "Gasto no encontrado"
	}
	return "Error interno, inténtalo de nuevo"
}
