package http

import (
	"net/http"
	"strings"

	"famfin/internal/core"
	"famfin/internal/services"
)

type transitionRequest struct {
	Status core.ProjectedExpenseStatus `json:"status"`
	services.TransitionPayload
}

func (s *Server) handleListProjected(w http.ResponseWriter, r *http.Request) {
	userID, err := s.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := core.ProjectedExpenseStatus(strings.TrimSpace(r.URL.Query().Get("status")))

	list, err := s.svc.Projected.List(r.Context(), userID, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateProjected(w http.ResponseWriter, r *http.Request) {
	userID, err := s.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.CreateProjectedExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	e, err := s.svc.Projected.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetProjected(w http.ResponseWriter, r *http.Request) {
	userID, id, err := s.targetAndID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.Projected.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateProjected(w http.ResponseWriter, r *http.Request) {
	userID, id, err := s.targetAndID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch services.ProjectedExpensePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	e, err := s.svc.Projected.Update(r.Context(), userID, id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteProjected(w http.ResponseWriter, r *http.Request) {
	userID, id, err := s.targetAndID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Projected.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransitionProjected(w http.ResponseWriter, r *http.Request) {
	userID, id, err := s.targetAndID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Status == "" {
		writeError(w, r, core.InvalidInput("status", "is required"))
		return
	}

	e, err := s.svc.Projected.Transition(r.Context(), userID, id, req.Status, req.TransitionPayload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// targetAndID resolves the target user and the {id} path variable.
func (s *Server) targetAndID(r *http.Request) (int64, int64, error) {
	userID, err := s.target(r)
	if err != nil {
		return 0, 0, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return 0, 0, err
	}
	return userID, id, nil
}
