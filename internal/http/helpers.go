package http

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"gastos/internal/log"
	"gastos/internal/services"
	"gastos/internal/session"
)

// SessionCookie holds the ledger session id.
const SessionCookie = "gastos_session"

const sessionCookieMaxAge = 30 * 24 * 60 * 60

// sessionID returns the session of the request, issuing a new cookie when the
// request has none or carries a malformed one.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && session.ValidID(c.Value) {
		return c.Value
	}
	id := session.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

const (
	msgInternal   = "Error interno, inténtalo de nuevo"
	msgBadRequest = "Formato de solicitud no válido"
)

// userMessage maps a service error to the message and status of the response.
func userMessage(err error) (string, int) {
	switch services.ValidationReason(err) {
	case "":
	case "not_found":
		return services.UserMessage(err), http.StatusNotFound
	default:
		return services.UserMessage(err), http.StatusUnprocessableEntity
	}
	if errors.Is(err, session.ErrInvalidID) {
		return "Sesión no válida", http.StatusBadRequest
	}
	return msgInternal, http.StatusInternalServerError
}

// render executes a template into memory first so that a failing template
// never leaves a half-written response behind.
func (s *Server) render(name string, data any) ([]byte, error) {
	if s.templates == nil {
		return nil, errors.New("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// respond renders name into the builder and writes it.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	body, err := s.render(name, data)
	if err != nil {
		s.audit.LogError(r.Context(), "Template execution failed", err, log.ComponentTemplate, "render",
			log.NewFields().WithOperation(name))
		ErrorResponse(http.StatusInternalServerError, msgInternal).Write(w)
		return
	}
	b.HTML(body).Write(w)
}

// fail answers a request whose action was rejected or failed.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	msg, code := userMessage(err)
	if code == http.StatusInternalServerError {
		s.audit.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, r.Method+" "+r.URL.Path, log.NewFields())
	}
	ErrorResponse(code, msg).Write(w)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
