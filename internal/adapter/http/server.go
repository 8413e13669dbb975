package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumenmap/lightwatch/internal/domain"
	"github.com/lumenmap/lightwatch/internal/submit"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// StatusSource derives the current per-light status map.
type StatusSource interface {
	DeriveStatus() domain.StatusMap
}

// Submitter accepts single and bulk report submissions.
type Submitter interface {
	Submit(ctx context.Context, d submit.Draft) (domain.Report, error)
	SubmitBulk(ctx context.Context, base submit.Draft, lightIDs []string) submit.BulkResult
}

// Server exposes health, readiness, metrics, light status, and report
// submission endpoints.
type Server struct {
	httpServer *http.Server
	statuses   StatusSource
	submitter  Submitter
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /v1/lights, and /v1/reports routes.
func NewServer(addr string, ready ReadinessChecker, statuses StatusSource, submitter Submitter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		statuses:  statuses,
		submitter: submitter,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/lights", s.handleLights)
	mux.HandleFunc("POST /v1/reports", s.handleSubmit)
	mux.HandleFunc("POST /v1/reports/bulk", s.handleSubmitBulk)

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleLights returns the derived status map. The optional `viewer` query
// parameter (an identity key) applies viewer-relative display; `admin=true`
// disables it.
func (s *Server) handleLights(w http.ResponseWriter, r *http.Request) {
	viewer := domain.IdentityKey(r.URL.Query().Get("viewer"))
	admin := r.URL.Query().Get("admin") == "true"

	statuses := s.statuses.DeriveStatus()
	out := make([]domain.LightStatus, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, domain.ForViewer(st, viewer, admin))
	}
	writeJSON(w, http.StatusOK, map[string]any{"lights": out})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var d submit.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	report, err := s.submitter.Submit(r.Context(), d)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

type bulkRequest struct {
	submit.Draft
	LightIDs []string `json:"light_ids"`
}

func (s *Server) handleSubmitBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.LightIDs) == 0 {
		writeError(w, http.StatusBadRequest, "light_ids must not be empty")
		return
	}

	res := s.submitter.SubmitBulk(r.Context(), req.Draft, req.LightIDs)
	writeJSON(w, http.StatusOK, res)
}

// writeSubmitError maps the submission error taxonomy onto HTTP statuses.
func (s *Server) writeSubmitError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	var ce *domain.ConstraintError
	var ue *domain.UnavailableError

	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusUnprocessableEntity, ve.Error())
	case errors.Is(err, domain.ErrIdentityMissing), errors.Is(err, submit.ErrContactCancelled):
		writeError(w, http.StatusPreconditionRequired, "contact information required")
	case errors.Is(err, domain.ErrCooldownDenied):
		writeError(w, http.StatusConflict, domain.ErrCooldownDenied.Error())
	case errors.As(err, &ce):
		writeError(w, http.StatusUnprocessableEntity, ce.Error())
	case errors.As(err, &ue):
		writeError(w, http.StatusBadGateway, "store unavailable")
	default:
		s.logger.Error("submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
