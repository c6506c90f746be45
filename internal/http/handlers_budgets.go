package http

import (
	"net/http"

	"famfin/internal/core"
	"famfin/internal/services"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	userID, err := s.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	activeOnly, err := queryBool(r, "active")
	if err != nil {
		writeError(w, r, err)
		return
	}

	budgets, err := s.svc.Budgets.List(r.Context(), userID, activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if budgets == nil {
		budgets = []core.CategoryBudget{}
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	userID, err := s.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.CreateCategoryBudgetInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := s.svc.Budgets.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	userID, id, err := s.targetAndID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch services.CategoryBudgetPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := s.svc.Budgets.Update(r.Context(), userID, id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleEvaluateBudget(w http.ResponseWriter, r *http.Request) {
	userID, id, err := s.targetAndID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	asOf, err := queryDate(r, "asOf")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ev, err := s.svc.Budgets.Evaluate(r.Context(), userID, id, asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleEvaluateAllBudgets(w http.ResponseWriter, r *http.Request) {
	userID, err := s.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	asOf, err := queryDate(r, "asOf")
	if err != nil {
		writeError(w, r, err)
		return
	}

	evs, err := s.svc.Budgets.EvaluateAll(r.Context(), userID, asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if evs == nil {
		evs = []core.BudgetEvaluation{}
	}
	writeJSON(w, http.StatusOK, evs)
}
