package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/IshaanNene/bestsellers/internal/analytics"
	"github.com/IshaanNene/bestsellers/internal/config"
	"github.com/IshaanNene/bestsellers/internal/observability"
	"github.com/IshaanNene/bestsellers/internal/storage"
	"github.com/IshaanNene/bestsellers/internal/types"
)

// Dashboard serves the analytics web dashboard. Every request reloads the
// collection and recomputes from scratch.
type Dashboard struct {
	cfg     config.DashboardConfig
	source  storage.Reader
	metrics *observability.Metrics
	now     func() time.Time
	logger  *slog.Logger
}

// NewDashboard creates a new dashboard server.
func NewDashboard(cfg config.DashboardConfig, source storage.Reader, metrics *observability.Metrics, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		cfg:     cfg,
		source:  source,
		metrics: metrics,
		now:     time.Now,
		logger:  logger.With("component", "dashboard"),
	}
}

// Router builds the HTTP routes.
func (d *Dashboard) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(d.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := d.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", d.handleIndex)
	r.Get("/health", d.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/options", d.handleOptions)
		r.Get("/report", d.handleReport)
	})
	r.Method(http.MethodGet, "/metrics", d.metrics.Handler())

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (d *Dashboard) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", d.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           d.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	d.logger.Info("dashboard starting", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	d.logger.Info("dashboard shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (d *Dashboard) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d.metrics.IncDashboardRequest(endpoint, status)
		d.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

func (d *Dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	d.respondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": d.now().Format(time.RFC3339),
	})
}

type optionsResponse struct {
	Domains  analytics.Domains  `json:"domains"`
	Overview analytics.Overview `json:"overview"`
}

func (d *Dashboard) handleOptions(w http.ResponseWriter, r *http.Request) {
	all, err := d.source.LoadAll(r.Context())
	if err != nil {
		d.logger.Error("load collection failed", "error", err)
		d.respondError(w, http.StatusInternalServerError, "failed to load listings")
		return
	}
	categories, err := d.source.Categories(r.Context())
	if err != nil {
		d.logger.Warn("distinct categories failed, deriving from listings", "error", err)
		categories = nil
	}

	d.respondJSON(w, http.StatusOK, optionsResponse{
		Domains:  analytics.ComputeDomains(all, categories),
		Overview: analytics.ComputeOverview(all),
	})
}

func (d *Dashboard) handleReport(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		d.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	all, err := d.source.LoadAll(r.Context())
	if err != nil {
		d.logger.Error("load collection failed", "error", err)
		d.respondError(w, http.StatusInternalServerError, "failed to load listings")
		return
	}

	report, err := analytics.BuildReport(all, sel, d.now())
	switch {
	case types.IsNoData(err):
		d.respondJSON(w, http.StatusUnprocessableEntity, map[string]string{"warning": err.Error()})
		return
	case errors.Is(err, analytics.ErrInvalidSelection):
		d.respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		d.logger.Error("build report failed", "error", err)
		d.respondError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	if err := analytics.WriteTimeline(d.cfg.ArtifactPath, report); err != nil {
		d.logger.Warn("write timeline artifact failed", "path", d.cfg.ArtifactPath, "error", err)
	}
	d.respondJSON(w, http.StatusOK, report)
}

// parseSelection reads the filter state from query parameters.
func parseSelection(r *http.Request) (analytics.Selection, error) {
	q := r.URL.Query()
	sel := analytics.Selection{
		Category: q.Get("category"),
		Day:      q.Get("day"),
		From:     q.Get("from"),
		To:       q.Get("to"),
	}
	if sel.Day == "All" {
		sel.Day = ""
	}
	for _, d := range []string{sel.Day, sel.From, sel.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(analytics.DayLayout, d); err != nil {
			return sel, fmt.Errorf("invalid date %q, want YYYY-MM-DD", d)
		}
	}

	var err error
	if sel.PriceMin, err = parsePrice(q.Get("price_min")); err != nil {
		return sel, err
	}
	if sel.PriceMax, err = parsePrice(q.Get("price_max")); err != nil {
		return sel, err
	}
	return sel, nil
}

func parsePrice(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("invalid price %q", raw)
	}
	return &v, nil
}

func (d *Dashboard) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		d.logger.Error("failed to encode response", "error", err)
	}
}

func (d *Dashboard) respondError(w http.ResponseWriter, status int, message string) {
	d.respondJSON(w, status, map[string]string{"error": message})
}
