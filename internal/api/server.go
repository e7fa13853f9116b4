// Package api exposes the orchestrator over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/keyword-orchestrator/internal/models"
	"github.com/example/keyword-orchestrator/internal/orchestrator"
	"github.com/example/keyword-orchestrator/internal/pipeline"
)

const defaultListLimit = 50

type Server struct {
	orch *orchestrator.Orchestrator
	log  *slog.Logger
}

func NewServer(orch *orchestrator.Orchestrator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{orch: orch, log: logger}
}

// RegisterRoutes wires all endpoints onto the mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/requests/create", s.handleCreate)
	mux.HandleFunc("GET /api/requests", s.handleList)
	mux.HandleFunc("GET /api/requests/{id}", s.handleGet)
	mux.HandleFunc("DELETE /api/requests/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/requests/{id}/tasks/{stage}/execute", s.handleExecute)
	mux.HandleFunc("GET /api/requests/{id}/tasks/{stage}/status", s.handleTaskStatus)
	mux.HandleFunc("GET /api/status/{id}", s.handleAggregateStatus)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var cfg models.RequestConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(cfg.Prompt) == "" {
		respondError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	req, runID, err := s.orch.CreateAndStart(cfg)
	if err != nil {
		s.log.Error("create request", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create request")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"requestId": req.RequestID,
		"runId":     runID,
		"message":   "Request created, data collection started",
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	offset := queryInt(r, "offset", 0)
	requests, total := s.orch.ListRequests(limit, offset)
	respondJSON(w, http.StatusOK, map[string]any{
		"requests": requests,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	req, err := s.orch.GetRequest(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "request not found")
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.DeleteRequest(r.PathValue("id")); err != nil {
		respondError(w, http.StatusNotFound, "request not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Request deleted"})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	stage := r.PathValue("stage")
	runID, err := s.orch.ExecuteStage(id, stage)
	switch {
	case errors.Is(err, pipeline.ErrInvalidStage):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, orchestrator.ErrNotFound):
		respondError(w, http.StatusNotFound, "request not found")
		return
	case errors.Is(err, orchestrator.ErrStageRunning):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.log.Error("execute stage", "requestId", id, "stage", stage, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to execute stage")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "started",
		"runId":   runID,
		"message": stage + " execution started",
	})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.orch.GetTask(r.PathValue("id"), r.PathValue("stage"))
	switch {
	case errors.Is(err, pipeline.ErrInvalidStage):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusNotFound, "request not found")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// handleAggregateStatus is the legacy single-call view: one status and
// progress figure across all three stages, with the final prompts as the
// result once refinement succeeds.
func (s *Server) handleAggregateStatus(w http.ResponseWriter, r *http.Request) {
	req, err := s.orch.GetRequest(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "request not found")
		return
	}

	tasks := []*models.Task{&req.Tasks.Collection, &req.Tasks.Synthesis, &req.Tasks.Refinement}
	progress := 0
	logs := []string{}
	status := "completed"
	for _, t := range tasks {
		progress += t.Progress
		logs = append(logs, t.Logs...)
		switch t.Status {
		case models.StatusError:
			status = "error"
		case models.StatusRunning:
			if status != "error" {
				status = "processing"
			}
		case models.StatusPending:
			if status == "completed" {
				status = "pending"
			}
		}
	}

	body := map[string]any{
		"requestId": req.RequestID,
		"status":    status,
		"progress":  progress / len(tasks),
		"logs":      logs,
	}
	if req.Tasks.Refinement.Status == models.StatusSuccess {
		body["result"] = req.Tasks.Refinement.Data["prompts"]
	}
	respondJSON(w, http.StatusOK, body)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// CORS wraps a handler with permissive cross-origin headers and answers
// preflight requests directly.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
