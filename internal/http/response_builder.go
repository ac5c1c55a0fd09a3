package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"gastos/internal/ledger"
	"gastos/internal/session"
)

// Events raised through HX-Trigger. web/static/app.js listens for them.
const (
	EventLedgerChanged = "ledger:changed"
	EventFormReset     = "form:reset"
	EventNotification  = "show-notification"
)

// NotificationType selects the style of a toast.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

const (
	successToastMs = 3000
	errorToastMs   = 5000
)

// HTMXResponseBuilder collects status, headers, HX-Trigger events and body of
// one response and writes them in the right order.
type HTMXResponseBuilder struct {
	status int
	events map[string]any
	header http.Header
	body   []byte
}

// NewHTMXResponse starts a 200 response.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status: http.StatusOK,
		events: map[string]any{},
		header: http.Header{},
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.header.Set(name, value)
	return b
}

// Trigger raises event on the client with data as its detail.
func (b *HTMXResponseBuilder) Trigger(event string, data any) *HTMXResponseBuilder {
	b.events[event] = data
	return b
}

// TriggerLedgerChanged announces an applied action with the totals after it.
func (b *HTMXResponseBuilder) TriggerLedgerChanged(res session.Result) *HTMXResponseBuilder {
	return b.Trigger(EventLedgerChanged, map[string]any{
		"action":          string(res.Action.Kind()),
		"remaining_cents": res.After.Remaining().Cents,
		"spent_cents":     res.After.Spent().Cents,
		"count":           len(res.After.Expenses),
	})
}

// TriggerFormReset asks the page to clear and focus the expense form. Only
// actions that leave the form empty raise it.
func (b *HTMXResponseBuilder) TriggerFormReset(kind ledger.Kind) *HTMXResponseBuilder {
	switch kind {
	case ledger.KindAddExpense, ledger.KindUpdateExpense, ledger.KindResetApp:
		return b.Trigger(EventFormReset, struct{}{})
	}
	return b
}

func (b *HTMXResponseBuilder) TriggerNotification(kind NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	if message == "" {
		return b
	}
	return b.Trigger(EventNotification, map[string]any{
		"type":     string(kind),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, successToastMs)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message, errorToastMs)
}

// HTML sets a rendered fragment as the body.
func (b *HTMXResponseBuilder) HTML(body []byte) *HTMXResponseBuilder {
	b.header.Set("Content-Type", "text/html; charset=utf-8")
	b.body = body
	return b
}

func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, values := range b.header {
		w.Header()[name] = values
	}
	if len(b.events) > 0 {
		if payload, err := json.Marshal(b.events); err == nil {
			w.Header().Set("HX-Trigger", string(payload))
		}
	}
	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse is a small escaped error fragment that also raises an error
// toast, so the message is shown whether or not the client swaps the body.
func ErrorResponse(code int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(code).
		HTML([]byte(`<div class="error" role="alert">` + template.HTMLEscapeString(message) + `</div>`)).
		TriggerErrorNotification(message)
}
