// Package http serves health probes, Prometheus metrics, and a read-only JSON
// API over the latest timeline snapshot.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/grid-timeline/internal/domain"
	"github.com/couchcryptid/grid-timeline/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const monthLayout = "2006-01"

// SnapshotProvider returns the latest generated timeline, or nil if none exists yet.
type SnapshotProvider interface {
	Snapshot() *pipeline.Snapshot
}

// Server exposes health, readiness, metrics, and timeline HTTP endpoints.
type Server struct {
	httpServer *http.Server
	snapshots  SnapshotProvider
	logger     *slog.Logger
}

type statusResponse struct {
	domain.Status
	Duration    string    `json:"duration"`
	GeneratedAt time.Time `json:"generated_at"`
}

type analyticsResponse struct {
	domain.Summary
	Month       string               `json:"month"`
	Extremes    domain.MonthExtremes `json:"extremes"`
	GeneratedAt time.Time            `json:"generated_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates an HTTP server with probe, metrics, and /api routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, snapshots SnapshotProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		snapshots: snapshots,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/days", s.withSnapshot(s.handleDays))
	mux.HandleFunc("GET /api/days/{date}", s.withSnapshot(s.handleDay))
	mux.HandleFunc("GET /api/analytics", s.withSnapshot(s.handleAnalytics))
	mux.HandleFunc("GET /api/status", s.withSnapshot(s.handleStatus))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type snapshotHandler func(w http.ResponseWriter, r *http.Request, snap *pipeline.Snapshot)

// withSnapshot answers 503 until the first timeline has been generated.
func (s *Server) withSnapshot(h snapshotHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.snapshots.Snapshot()
		if snap == nil {
			sharedobs.WriteJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "timeline not generated yet"})
			return
		}
		h(w, r, snap)
	}
}

func (s *Server) handleDays(w http.ResponseWriter, r *http.Request, snap *pipeline.Snapshot) {
	days := snap.Days
	if m := r.URL.Query().Get("month"); m != "" {
		month, err := time.Parse(monthLayout, m)
		if err != nil {
			sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "month must be YYYY-MM"})
			return
		}
		days = domain.DaysInMonth(days, month.Year(), month.Month())
	}
	if days == nil {
		days = []domain.Day{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, days)
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request, snap *pipeline.Snapshot) {
	key := r.PathValue("date")
	day, ok := snap.Day(key)
	if !ok {
		sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{Error: "no day " + key})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, day)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request, snap *pipeline.Snapshot) {
	month := snap.GeneratedAt
	if m := r.URL.Query().Get("month"); m != "" {
		parsed, err := time.Parse(monthLayout, m)
		if err != nil {
			sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "month must be YYYY-MM"})
			return
		}
		month = parsed
	}
	sharedobs.WriteJSON(w, http.StatusOK, analyticsResponse{
		Summary:     snap.Summary,
		Month:       month.Format(monthLayout),
		Extremes:    domain.FindMonthExtremes(snap.Days, month.Year(), month.Month()),
		GeneratedAt: snap.GeneratedAt,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request, snap *pipeline.Snapshot) {
	sharedobs.WriteJSON(w, http.StatusOK, statusResponse{
		Status:      snap.Status,
		Duration:    domain.FormatDuration(snap.Status.Minutes),
		GeneratedAt: snap.GeneratedAt,
	})
}
