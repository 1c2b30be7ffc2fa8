package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/fasttq/fasttq/pkg/types"
)

type submitTaskRequest struct {
	TaskKindName string          `json:"task_kind_name"`
	InputData    json.RawMessage `json:"input_data"`
}

type uploadResultRequest struct {
	Data    json.RawMessage `json:"data"`
	IsError bool            `json:"is_error"`
}

// submitTask handles POST /tasks
func (s *Server) submitTask(w http.ResponseWriter, r *http.Request) {
	var req submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	task, err := s.manager.SubmitTask(r.Context(), req.TaskKindName, req.InputData)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// getTask handles GET /tasks/{id}
func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}

	task, err := s.manager.GetTask(r.Context(), id)
	if err != nil {
		respondError(w, err, "task not found")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// updateTaskStatus handles PUT /tasks/{id}/status. The body is a bare JSON
// string naming the new status; an unrecognized name is rejected before the
// task is looked up, so a bad status on a missing task is still a 400.
func (s *Server) updateTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}

	var name string
	if err := json.NewDecoder(r.Body).Decode(&name); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	status, err := types.ParseTaskStatus(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.manager.UpdateTaskStatus(r.Context(), id, status); err != nil {
		respondError(w, err, "task not found")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// uploadTaskResult handles PUT /tasks/{id}/result
func (s *Server) uploadTaskResult(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}

	var req uploadResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := s.manager.SubmitTaskResult(r.Context(), id, req.Data, req.IsError); err != nil {
		respondError(w, err, "task not found")
		return
	}

	w.WriteHeader(http.StatusOK)
}
