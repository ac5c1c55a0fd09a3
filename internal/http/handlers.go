package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"gastos/internal/core"
	"gastos/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			s.logger.WarnContext(ctx, "Readiness check failed", "check", name, log.FieldError, err)
			continue
		}
		checks[name] = "ok"
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}
	checks["security"] = map[string]interface{}{
		"suspicious_requests": s.detector.SuspiciousRequests(),
		"status":              "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.State(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, NewHTMXResponse(), "index.html", s.newPageData(st))
}

// handleLedgerPartial renders the summary and the expense list.
func (s *Server) handleLedgerPartial(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.State(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, NewHTMXResponse(), "ledger", s.newPageData(st))
}

// handleExpenseFormPartial renders the expense form, prefilled when editing.
func (s *Server) handleExpenseFormPartial(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.State(r.Context(), s.sessionID(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, NewHTMXResponse(), "expense_form", s.newPageData(st))
}

func (s *Server) handleLedgerJSON(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.State(r.Context(), s.sessionID(w, r))
	if err != nil {
		_, code := userMessage(err)
		writeJSON(w, code, map[string]string{"error": http.StatusText(code)})
		return
	}
	writeJSON(w, http.StatusOK, newLedgerJSON(st))
}

func (s *Server) handleCategoriesJSON(w http.ResponseWriter, r *http.Request) {
	type category struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Icon string `json:"icon"`
	}
	out := make([]category, 0, len(core.Categories))
	for _, c := range core.Categories {
		out = append(out, category{ID: c.ID, Name: c.Name, Icon: c.Icon})
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
