// Package http serves the operational endpoints of the scheduled notifier.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/incident-aoi-notifier/internal/pipeline"
)

// StatusSource exposes the pipeline's readiness and most recent run.
type StatusSource interface {
	sharedobs.ReadinessChecker
	LastReport() (pipeline.Report, bool)
}

// Server exposes health, readiness, status, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /status, and /metrics routes.
func NewServer(addr string, src StatusSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(src))
	mux.HandleFunc("GET /status", handleStatus(src))
	mux.Handle("GET /metrics", promhttp.Handler())

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

type outcomeView struct {
	AOI     string `json:"aoi"`
	Matches int    `json:"matches"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

type statusView struct {
	Ingest          pipeline.IngestResult `json:"ingest"`
	BatchAccessedAt string                `json:"batch_accessed_at,omitempty"`
	BatchSize       int                   `json:"batch_size"`
	LocationErrors  int                   `json:"location_errors"`
	DurationSeconds float64               `json:"duration_seconds"`
	Outcomes        []outcomeView         `json:"outcomes"`
}

func handleStatus(src StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		report, ok := src.LastReport()
		if !ok {
			sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"status": "no completed run"})
			return
		}

		view := statusView{
			Ingest:          report.Ingest,
			BatchAccessedAt: report.BatchAccessedAt,
			BatchSize:       report.BatchSize,
			LocationErrors:  report.LocationErrors,
			DurationSeconds: report.Duration.Seconds(),
			Outcomes:        make([]outcomeView, 0, len(report.Outcomes)),
		}
		for _, o := range report.Outcomes {
			ov := outcomeView{AOI: o.AOI, Matches: o.Matches, Status: string(o.Status)}
			if o.Err != nil {
				ov.Error = o.Err.Error()
			}
			view.Outcomes = append(view.Outcomes, ov)
		}
		sharedobs.WriteJSON(w, http.StatusOK, view)
	}
}
