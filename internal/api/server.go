package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reweave/reweave/internal/processor"
	"github.com/reweave/reweave/internal/store"
)

// RunReader exposes the stored-run queries the API serves.
type RunReader interface {
	RecentRuns(ctx context.Context, limit int) ([]store.RunRecord, error)
	CountChunks(ctx context.Context) (int64, error)
}

type Server struct {
	router *chi.Mux
	port   int
	proc   *processor.Processor
	runs   RunReader // nil when the service runs without a database
}

func NewServer(port int, proc *processor.Processor, runs RunReader) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		proc:   proc,
		runs:   runs,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/reweave/status", s.status)
	router.Get("/api/v1/reweave/runs", s.recentRuns)
	router.Post("/api/v1/reweave/process", s.process)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// Handler returns the underlying router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"agent":  "reweave",
		"status": "ready",
	}
	if s.runs != nil {
		if n, err := s.runs.CountChunks(r.Context()); err == nil {
			resp["chunks_stored"] = n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) recentRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	runs, err := s.runs.RecentRuns(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// process runs the reconstruction pipeline synchronously over an inline
// batch and returns the full result record.
func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	var evt processor.BatchEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch payload")
		return
	}

	result, err := s.proc.ProcessBatch(r.Context(), evt)
	if err != nil {
		slog.Error("process request failed", "group_id", evt.Group.GroupID, "error", err)
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
