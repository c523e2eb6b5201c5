// Package api exposes the progress service over HTTP.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/p-n-ai/pai-progress/internal/learning"
	"github.com/p-n-ai/pai-progress/internal/notify"
	"github.com/p-n-ai/pai-progress/internal/progress"
)

const (
	maxBodyBytes = 1 << 20
	checkTimeout = 2 * time.Second
)

// HealthChecker is a dependency probed by /readyz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds the handler dependencies. Notifications is optional; without
// it the WebSocket route is not registered.
type Config struct {
	Service       *learning.Service
	Notifications *notify.Gateway
	Checks        map[string]HealthChecker
}

// Server serves the HTTP API.
type Server struct {
	svc    *learning.Service
	gw     *notify.Gateway
	checks map[string]HealthChecker
	mux    *http.ServeMux
}

// NewServer creates the HTTP handler with all routes registered.
func NewServer(cfg Config) *Server {
	svc := cfg.Service
	if svc == nil {
		svc = learning.NewService(learning.ServiceConfig{})
	}
	s := &Server{
		svc:    svc,
		gw:     cfg.Notifications,
		checks: cfg.Checks,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)

	s.mux.HandleFunc("POST /v1/progress", s.handleRecordProgress)
	s.mux.HandleFunc("POST /v1/quiz-attempts", s.handleSubmitQuiz)
	s.mux.HandleFunc("GET /v1/lessons/{lessonID}/requirements", s.handleGetRequirements)
	s.mux.HandleFunc("POST /v1/lessons/{lessonID}/requirements/check", s.handleCheckRequirements)
	s.mux.HandleFunc("GET /v1/users/{userID}", s.handleGetUser)
	s.mux.HandleFunc("PUT /v1/users/{userID}", s.handlePutUser)
	s.mux.HandleFunc("GET /v1/users/{userID}/courses/{courseID}", s.handleCourseProgress)
	s.mux.HandleFunc("GET /v1/users/{userID}/courses/{courseID}/report.xlsx", s.handleReport)
	if s.gw != nil {
		s.mux.HandleFunc("GET /v1/users/{userID}/notifications", s.handleNotifications)
	}
}

// ServeHTTP logs every request after it is served.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)

	slog.Info("http request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := map[string]string{}
	for _, name := range names {
		if err := s.checks[name].HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "failed": failed})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return progress.Invalid("api.decode", fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

// writeError maps domain errors to status codes. Internal errors are logged
// and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case progress.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case progress.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, context.Canceled):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "request canceled"})
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrade take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
