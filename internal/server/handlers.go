package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codehedgehog/virtlab/internal/controller"
	"github.com/codehedgehog/virtlab/internal/pool"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps controller error kinds onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, controller.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, controller.ErrAlreadyExists),
		errors.Is(err, controller.ErrConflict),
		errors.Is(err, controller.ErrResourceConflict):
		status = http.StatusConflict
	case errors.Is(err, controller.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, pool.ErrExhausted):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req controller.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	vm, err := s.vms.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vm)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.vms.Start(r.Context(), name); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "status": "started"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.vms.Stop(r.Context(), name); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "status": "stopped"})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.vms.Delete(r.Context(), name); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "status": "deleted"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.vms.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	status, err := s.vms.GetState(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	snaps, err := s.vms.Snapshots(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if snaps == nil {
		snaps = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"name": name, "snapshots": snaps})
}

func (s *Server) handlePoolStatus(w http.ResponseWriter, r *http.Request) {
	if s.pool == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "pool disabled"})
		return
	}
	writeJSON(w, http.StatusOK, s.pool.Status(r.Context()))
}

func (s *Server) handlePoolAcquire(w http.ResponseWriter, r *http.Request) {
	if s.pool == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "pool disabled"})
		return
	}
	name, err := s.pool.Acquire(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

type credentialRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleSetCredential(w http.ResponseWriter, r *http.Request) {
	if s.creds == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "credential store disabled"})
		return
	}
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "password required"})
		return
	}
	s.creds.Set(req.Password)
	// The password itself never appears in the response or the logs.
	s.log.Info("ansible credential set")
	writeJSON(w, http.StatusOK, map[string]string{"status": "set"})
}

func (s *Server) handleClearCredential(w http.ResponseWriter, r *http.Request) {
	if s.creds == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "credential store disabled"})
		return
	}
	s.creds.Clear()
	s.log.Info("ansible credential cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
