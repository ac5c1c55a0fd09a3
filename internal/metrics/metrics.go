// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gastos"

// Registry holds all collectors on a private prometheus.Registry so tests can
// build as many as they like.
type Registry struct {
	reg *prometheus.Registry

	LedgerActions      *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	RateLimited        prometheus.Counter
	EventsPublished    *prometheus.CounterVec
	EventsJournaled    *prometheus.CounterVec
	EventsExported     *prometheus.CounterVec
}

// New creates the registry. activeSessions, when not nil, is sampled on
// every scrape.
func New(activeSessions func() int) *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		LedgerActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_actions_total",
				Help:      "Ledger actions dispatched, by kind and result",
			},
			[]string{"action", "result"},
		),

		ValidationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Rejected form submissions, by reason",
			},
			[]string{"reason"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests, by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"method", "route"},
		),

		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),

		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Ledger events handed to the broker, by result",
			},
			[]string{"result"},
		),

		EventsJournaled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_journaled_total",
				Help:      "Ledger events consumed by the worker, by result",
			},
			[]string{"result"},
		),

		EventsExported: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_exported_total",
				Help:      "Journal rows written to the spreadsheet, by result",
			},
			[]string{"result"},
		),
	}

	r.reg.MustRegister(
		r.LedgerActions,
		r.ValidationFailures,
		r.HTTPRequests,
		r.HTTPDuration,
		r.RateLimited,
		r.EventsPublished,
		r.EventsJournaled,
		r.EventsExported,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if activeSessions != nil {
		r.reg.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Ledger sessions held in memory",
			},
			func() float64 { return float64(activeSessions()) },
		))
	}
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the registry, e.g. for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// ObserveAction counts a dispatched action. A nil registry is a no-op.
func (r *Registry) ObserveAction(action string, err error) {
	if r == nil {
		return
	}
	r.LedgerActions.WithLabelValues(action, result(err)).Inc()
}

// ObserveValidation counts a rejected submission.
func (r *Registry) ObserveValidation(reason string) {
	if r == nil {
		return
	}
	r.ValidationFailures.WithLabelValues(reason).Inc()
}

// ObserveHTTP records one served request.
func (r *Registry) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	r.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveRateLimited counts a rejected request.
func (r *Registry) ObserveRateLimited() {
	if r == nil {
		return
	}
	r.RateLimited.Inc()
}

// ObservePublish counts a broker publish attempt.
func (r *Registry) ObservePublish(err error) {
	if r == nil {
		return
	}
	r.EventsPublished.WithLabelValues(result(err)).Inc()
}

// ObserveJournal counts a consumed event: "ok", "duplicate" or "error".
func (r *Registry) ObserveJournal(outcome string) {
	if r == nil {
		return
	}
	r.EventsJournaled.WithLabelValues(outcome).Inc()
}

// ObserveExport counts exported rows.
func (r *Registry) ObserveExport(n int, err error) {
	if r == nil {
		return
	}
	r.EventsExported.WithLabelValues(result(err)).Add(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
