package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

type registerWorkerRequest struct {
	Name      string   `json:"name"`
	TaskKinds []string `json:"task_kinds"`
}

// registerWorker handles POST /workers
func (s *Server) registerWorker(w http.ResponseWriter, r *http.Request) {
	var req registerWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	worker, err := s.manager.RegisterWorker(r.Context(), req.Name, req.TaskKinds)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, worker)
}

// unregisterWorker handles DELETE /workers/{id}
func (s *Server) unregisterWorker(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid worker id", http.StatusBadRequest)
		return
	}

	if err := s.manager.UnregisterWorker(r.Context(), id); err != nil {
		respondError(w, err, "worker not found")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// workerHeartbeat handles PUT /workers/{id}/heartbeat
func (s *Server) workerHeartbeat(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid worker id", http.StatusBadRequest)
		return
	}

	if err := s.manager.RecordHeartbeat(r.Context(), id); err != nil {
		respondError(w, err, "worker not found")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// getWorker handles GET /workers/{id}
func (s *Server) getWorker(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid worker id", http.StatusBadRequest)
		return
	}

	worker, err := s.manager.GetWorker(r.Context(), id)
	if err != nil {
		respondError(w, err, "worker not found")
		return
	}

	respondJSON(w, http.StatusOK, worker)
}

// listWorkers handles GET /workers
func (s *Server) listWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := s.manager.ListWorkers(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, workers)
}

// listTaskKinds handles GET /task-kinds
func (s *Server) listTaskKinds(w http.ResponseWriter, r *http.Request) {
	kinds, err := s.manager.ListTaskKinds(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, kinds)
}
