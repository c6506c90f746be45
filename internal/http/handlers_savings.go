package http

import (
	"net/http"
	"strings"

	"famfin/internal/core"
	"famfin/internal/services"
)

type abandonRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	userID, err := s.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := core.SavingsGoalStatus(strings.TrimSpace(r.URL.Query().Get("status")))

	goals, err := s.svc.Savings.List(r.Context(), userID, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if goals == nil {
		goals = []core.GoalProgress{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := s.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.CreateSavingsGoalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	g, err := s.svc.Savings.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleOutstandingCommitments(w http.ResponseWriter, r *http.Request) {
	userID, err := s.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := s.svc.Savings.OutstandingCommitments(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":           userID,
		"outstandingCents": total,
		"outstanding":      core.FormatCents(total),
	})
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	userID, id, err := s.targetAndID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.svc.Savings.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	userID, id, err := s.targetAndID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch services.SavingsGoalPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	g, err := s.svc.Savings.Update(r.Context(), userID, id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleCompleteGoal(w http.ResponseWriter, r *http.Request) {
	userID, id, err := s.targetAndID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.svc.Savings.Complete(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleAbandonGoal(w http.ResponseWriter, r *http.Request) {
	userID, id, err := s.targetAndID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req abandonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	g, err := s.svc.Savings.Abandon(r.Context(), userID, id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	userID, id, err := s.targetAndID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.svc.Savings.ListContributions(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []core.SavingsContribution{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAddContribution(w http.ResponseWriter, r *http.Request) {
	userID, id, err := s.targetAndID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.ContributionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.svc.Savings.AddContribution(r.Context(), userID, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleDeleteContribution(w http.ResponseWriter, r *http.Request) {
	userID, goalID, err := s.targetAndID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	contributionID, err := pathID(r, "contributionId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	g, err := s.svc.Savings.DeleteContribution(r.Context(), userID, goalID, contributionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
