package log

// Common field names for structured logging
const (
	FieldComponent      = "component"
	FieldRequestID      = "request_id"
	FieldClientIP       = "client_ip"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldQuery          = "query"
	FieldStatusCode     = "status_code"
	FieldDuration       = "duration_ms"
	FieldUserAgent      = "user_agent"
	FieldReferer        = "referer"
	FieldSuccess        = "success"
	FieldError          = "error"
	FieldOperation      = "operation"
	FieldSessionID      = "session_id"
	FieldExpenseID      = "expense_id"
	FieldExpenseName    = "expense_name"
	FieldCategory       = "category"
	FieldAction         = "action"
	FieldAmountCents    = "amount_cents"
	FieldBudgetCents    = "budget_cents"
	FieldRemainingCents = "remaining_cents"
	FieldEventID        = "event_id"
	FieldCount          = "count"
	FieldReason         = "reason"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentSession   = "session"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentTemplate  = "template"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpDispatch = "dispatch"
	OpLoad     = "load"
	OpSave     = "save"
	OpDelete   = "delete"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpExport   = "export"
	OpValidate = "validate"
	OpRender   = "render"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSession adds the session id.
func (f LogFields) WithSession(id string) LogFields {
	f[FieldSessionID] = id
	return f
}

// WithAction adds the ledger action kind.
func (f LogFields) WithAction(kind string) LogFields {
	f[FieldAction] = kind
	return f
}

// WithExpense adds expense-related fields
func (f LogFields) WithExpense(id, name string, amountCents int64, category string) LogFields {
	if id != "" {
		f[FieldExpenseID] = id
	}
	f[FieldExpenseName] = name
	f[FieldAmountCents] = amountCents
	f[FieldCategory] = category
	return f
}

// WithBudget adds budget and remaining amounts.
func (f LogFields) WithBudget(budgetCents, remainingCents int64) LogFields {
	f[FieldBudgetCents] = budgetCents
	f[FieldRemainingCents] = remainingCents
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		// component is added by Logger itself
		if k == FieldComponent {
			continue
		}
		slice = append(slice, k, v)
	}
	return slice
}
