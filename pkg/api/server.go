package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/fasttq/fasttq/pkg/log"
	"github.com/fasttq/fasttq/pkg/manager"
	"github.com/fasttq/fasttq/pkg/metrics"
	"github.com/fasttq/fasttq/pkg/storage"
)

// Server exposes the manager over HTTP
type Server struct {
	manager *manager.Manager
	mux     *http.ServeMux
	server  *http.Server
	logger  zerolog.Logger
}

// NewServer creates a new API server
func NewServer(mgr *manager.Manager) *Server {
	s := &Server{
		manager: mgr,
		mux:     http.NewServeMux(),
		logger:  log.WithComponent("api"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /tasks", s.submitTask)
	s.mux.HandleFunc("GET /tasks/{id}", s.getTask)
	s.mux.HandleFunc("PUT /tasks/{id}/status", s.updateTaskStatus)
	s.mux.HandleFunc("PUT /tasks/{id}/result", s.uploadTaskResult)

	s.mux.HandleFunc("POST /workers", s.registerWorker)
	s.mux.HandleFunc("GET /workers", s.listWorkers)
	s.mux.HandleFunc("GET /workers/{id}", s.getWorker)
	s.mux.HandleFunc("DELETE /workers/{id}", s.unregisterWorker)
	s.mux.HandleFunc("PUT /workers/{id}/heartbeat", s.workerHeartbeat)

	s.mux.HandleFunc("GET /task-kinds", s.listTaskKinds)

	s.mux.HandleFunc("GET /health", metrics.LivenessHandler())
	s.mux.HandleFunc("GET /ready", metrics.ReadyHandler())
	s.mux.HandleFunc("GET /healthz", metrics.HealthHandler())
	s.mux.Handle("GET /metrics", metrics.Handler())
}

// Start starts the HTTP server and blocks until it exits
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.GetHandler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("HTTP API listening")
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server, waiting for in-flight requests
// until the context expires.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// GetHandler returns the instrumented HTTP handler for embedding in other
// servers and tests.
func (s *Server) GetHandler() http.Handler {
	return s.instrument(s.mux)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps a handler with request metrics and logging. Labels carry
// only method and status so cardinality stays bounded.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		metrics.APIRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, r.Method)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", timer.Duration()).
			Msg("Request handled")
	})
}

// respondJSON writes a JSON success body.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError maps storage misses to 404 with the given message and every
// other failure to 500 with the error text. Error bodies are plain text.
func respondError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, notFound, http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
