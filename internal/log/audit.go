package log

import (
	"context"
	"log/slog"
	"net/http"
)

type loggerKey struct{}

// NewContext returns ctx carrying l. The trace middleware stores a logger
// tagged with the request id this way.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger stored by NewContext, or the process
// default tagged "unknown".
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return l
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// Audit writes the records that describe what happened to a ledger: access
// logs, applied actions, rejected submissions and failures. Records are
// written through the request logger when ctx has one, so they share its
// request_id.
type Audit struct {
	logger *Logger
}

func NewAudit(logger *Logger) *Audit {
	if logger == nil {
		logger = Discard()
	}
	return &Audit{logger: logger}
}

func (a *Audit) from(ctx context.Context, component string) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return l.WithComponent(component)
	}
	return a.logger.WithComponent(component)
}

// LogHTTPEnd logs a finished request at a level following its status.
func (a *Audit) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)
	a.from(ctx, ComponentHTTP).LogLevel(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogDispatch records an applied action with the budget after it.
func (a *Audit) LogDispatch(ctx context.Context, sessionID, action string, budgetCents, remainingCents int64) {
	fields := NewFields().
		WithSession(sessionID).
		WithAction(action).
		WithBudget(budgetCents, remainingCents).
		WithOperation(OpDispatch)
	a.from(ctx, ComponentLedger).InfoContext(ctx, "Ledger action applied", fields.ToSlice()...)
}

// LogRejected records a submission refused by validation. These are user
// mistakes, not failures.
func (a *Audit) LogRejected(ctx context.Context, sessionID, action, reason string) {
	fields := NewFields().
		WithSession(sessionID).
		WithAction(action).
		WithOperation(OpValidate)
	fields[FieldReason] = reason
	a.from(ctx, ComponentLedger).InfoContext(ctx, "Submission rejected", fields.ToSlice()...)
}

func (a *Audit) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields = fields.WithError(err).WithOperation(operation)
	a.from(ctx, component).ErrorContext(ctx, msg, fields.ToSlice()...)
}
