package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gastos/internal/ledger"
	"gastos/internal/services"
	"gastos/internal/session"
)

// Mutating handlers answer htmx requests with the re-rendered "app" partial,
// which the page swaps into #app, and announce the change through HX-Trigger.

func (s *Server) handleDefineBudget(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	f, err := readForm(r)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, msgBadRequest).Write(w)
		return
	}
	raw := f.Get("budget")

	res, err := s.ledger.DefineBudget(r.Context(), sid, raw)
	if err != nil {
		if services.ValidationReason(err) == "" {
			s.fail(w, r, err)
			return
		}
		st, serr := s.ledger.State(r.Context(), sid)
		if serr != nil {
			s.fail(w, r, serr)
			return
		}
		msg, code := userMessage(err)
		data := s.newPageData(st)
		data.BudgetForm = budgetForm{Value: raw, Error: msg}
		s.respond(w, r, NewHTMXResponse().Status(code), fragment(r), data)
		return
	}
	s.changed(w, r, res, "Presupuesto definido")
}

func (s *Server) handleSubmitExpense(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	sub, err := ParseSubmission(r)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, msgBadRequest).Write(w)
		return
	}

	res, err := s.ledger.Submit(r.Context(), sid, sub)
	if err != nil {
		// An expense deleted in another tab is a 404, not a form error.
		if services.ValidationReason(err) == "" || errors.Is(err, ledger.ErrExpenseNotFound) {
			s.fail(w, r, err)
			return
		}
		st, serr := s.ledger.State(r.Context(), sid)
		if serr != nil {
			s.fail(w, r, serr)
			return
		}
		msg, code := userMessage(err)
		var fe *ledger.FieldError
		errors.As(err, &fe)
		s.respond(w, r, NewHTMXResponse().Status(code), fragment(r), s.newPageData(st).withSubmission(sub, msg, fe))
		return
	}

	msg := "Gasto registrado"
	if res.Action.Kind() == ledger.KindUpdateExpense {
		msg = "Gasto actualizado"
	}
	s.changed(w, r, res, msg)
}

func (s *Server) handleStartEdit(w http.ResponseWriter, r *http.Request) {
	res, err := s.ledger.StartEdit(r.Context(), s.sessionID(w, r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.changed(w, r, res, "")
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	res, err := s.ledger.CancelEdit(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.changed(w, r, res, "")
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	res, err := s.ledger.Delete(r.Context(), s.sessionID(w, r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.changed(w, r, res, "Gasto eliminado")
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(r)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, msgBadRequest).Write(w)
		return
	}
	res, err := s.ledger.Filter(r.Context(), s.sessionID(w, r), f.Get("category"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.changed(w, r, res, "")
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	res, err := s.ledger.Reset(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.changed(w, r, res, "Aplicación reiniciada")
}

// changed renders the new state after a successful action. notice, when not
// empty, is shown as a success notification. Plain form posts are redirected
// back to the page.
func (s *Server) changed(w http.ResponseWriter, r *http.Request, res session.Result, notice string) {
	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	b := NewHTMXResponse().
		TriggerLedgerChanged(res).
		TriggerFormReset(res.Action.Kind()).
		TriggerSuccessNotification(notice)
	s.respond(w, r, b, "app", s.newPageData(res.After))
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// fragment is the template answering r: the partial for htmx, the whole page otherwise.
func fragment(r *http.Request) string {
	if isHTMX(r) {
		return "app"
	}
	return "index.html"
}
