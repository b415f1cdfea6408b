package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors for scrape runs and the dashboard.
// Every method is safe to call on a nil *Metrics.
type Metrics struct {
	Registry *prometheus.Registry

	PagesScraped      *prometheus.CounterVec
	RecordsStored     prometheus.Counter
	RecordsIncomplete prometheus.Counter
	RecordsDropped    prometheus.Counter
	Sessions          *prometheus.CounterVec
	StoreErrors       prometheus.Counter
	SessionDuration   prometheus.Histogram
	ActiveSessions    prometheus.Gauge
	DashboardRequests *prometheus.CounterVec

	logger *slog.Logger
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		PagesScraped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bestsellers_pages_scraped_total",
			Help: "Listing pages extracted, by category.",
		}, []string{"category"}),
		RecordsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bestsellers_records_stored_total",
			Help: "Listings written to the store.",
		}),
		RecordsIncomplete: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bestsellers_records_incomplete_total",
			Help: "Stored listings with at least one missing or failed field.",
		}),
		RecordsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bestsellers_records_dropped_total",
			Help: "Listings dropped by the pipeline before storage.",
		}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bestsellers_sessions_total",
			Help: "Finished category sessions, by outcome.",
		}, []string{"outcome"}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bestsellers_store_errors_total",
			Help: "Store writes that failed.",
		}),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bestsellers_session_duration_seconds",
			Help:    "Wall time of one category session.",
			Buckets: []float64{5, 10, 20, 30, 60, 120, 300, 600},
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bestsellers_active_sessions",
			Help: "Category sessions currently running.",
		}),
		DashboardRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bestsellers_dashboard_requests_total",
			Help: "Dashboard HTTP requests, by endpoint and status.",
		}, []string{"endpoint", "status"}),
		logger: logger.With("component", "metrics"),
	}

	registry.MustRegister(
		m.PagesScraped, m.RecordsStored, m.RecordsIncomplete, m.RecordsDropped,
		m.Sessions, m.StoreErrors, m.SessionDuration, m.ActiveSessions,
		m.DashboardRequests,
	)
	return m
}

// IncPages records one scraped page for category.
func (m *Metrics) IncPages(category string) {
	if m == nil {
		return
	}
	m.PagesScraped.WithLabelValues(category).Inc()
}

// AddRecords records stored, incomplete and dropped listings.
func (m *Metrics) AddRecords(stored, incomplete, dropped int) {
	if m == nil {
		return
	}
	m.RecordsStored.Add(float64(stored))
	m.RecordsIncomplete.Add(float64(incomplete))
	m.RecordsDropped.Add(float64(dropped))
}

// IncStoreError counts a failed store write.
func (m *Metrics) IncStoreError() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}

// SessionStarted marks a session as running.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// SessionFinished records the outcome and duration of a session.
func (m *Metrics) SessionFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
	m.Sessions.WithLabelValues(outcome).Inc()
	m.SessionDuration.Observe(d.Seconds())
}

// IncDashboardRequest counts a dashboard request.
func (m *Metrics) IncDashboardRequest(endpoint string, status int) {
	if m == nil {
		return
	}
	m.DashboardRequests.WithLabelValues(endpoint, fmt.Sprint(status)).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server. The returned server is shut
// down by the caller.
func (m *Metrics) StartServer(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return srv
}

// Shutdown stops a server started by StartServer.
func Shutdown(srv *http.Server, logger *slog.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("metrics server shutdown failed", "error", err)
	}
}
