package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/metrics"
	"gastos/internal/middleware/ratelimit"
	"gastos/internal/middleware/security"
	"gastos/internal/middleware/trace"
	"gastos/internal/services"
	appweb "gastos/web"
)

// Check is a named readiness probe, e.g. the database ping.
type Check func(ctx context.Context) error

// Options configures NewServer. Ledger is required; everything else has a
// usable zero value.
type Options struct {
	Ledger             *services.LedgerService
	Metrics            *metrics.Registry
	Checks             map[string]Check
	Logger             *log.Logger
	CurrencySymbol     string
	CookieSecure       bool
	RateLimitPerMinute int
}

// Server is the web front-end of the budget ledger.
type Server struct {
	http.Server

	templates *template.Template
	ledger    *services.LedgerService
	metrics   *metrics.Registry
	checks    map[string]Check
	logger    *log.Logger
	audit     *log.Audit

	detector *security.Detector
	limiter  *ratelimit.Limiter

	currency     string
	cookieSecure bool
	startedAt    time.Time
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	currency := opts.CurrencySymbol
	if currency == "" {
		currency = core.DefaultCurrencySymbol
	}

	s := &Server{
		ledger:       opts.Ledger,
		metrics:      opts.Metrics,
		checks:       opts.Checks,
		logger:       logger.WithComponent(log.ComponentHTTP),
		audit:        log.NewAudit(logger),
		detector:     security.NewDetector(logger),
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		currency:     currency,
		cookieSecure: opts.CookieSecure,
		startedAt:    time.Now(),
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	s.Addr = addr
	s.Handler = s.routes()
	s.ReadHeaderTimeout = 5 * time.Second
	s.ReadTimeout = 15 * time.Second
	s.WriteTimeout = 15 * time.Second
	s.IdleTimeout = 60 * time.Second
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP, s.logger, s.metrics)

	r.Use(tracer.Middleware)
	r.Use(s.detector.Middleware)
	r.Use(headers.Middleware)

	// Probes and metrics are not rate limited.
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	if static, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		r.With(security.StaticAssetMiddleware(3600)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	} else {
		s.logger.Warn("Static assets unavailable", log.FieldError, err)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited))

		r.Get("/", s.handleIndex)
		r.Get("/ui/ledger", s.handleLedgerPartial)
		r.Get("/ui/expense-form", s.handleExpenseFormPartial)
		r.Get("/api/ledger", s.handleLedgerJSON)
		r.Get("/api/categories", s.handleCategoriesJSON)

		r.Post("/budget", s.handleDefineBudget)
		r.Post("/expenses", s.handleSubmitExpense)
		r.Post("/expenses/cancel", s.handleCancelEdit)
		r.Post("/expenses/{id}/edit", s.handleStartEdit)
		r.Post("/expenses/{id}/delete", s.handleDeleteExpense)
		r.Delete("/expenses/{id}", s.handleDeleteExpense)
		r.Post("/filter", s.handleFilter)
		r.Post("/reset", s.handleReset)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "Página no encontrada").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "Método no permitido").Write(w)
	})
	return r
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.ObserveRateLimited()
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Demasiadas solicitudes, inténtalo más tarde").Write(w)
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
