package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"famfin/internal/core"
	"famfin/internal/services"
)

type calculateSnapshotRequest struct {
	UserID int64 `json:"userId"`
	services.CalculateInput
}

func (s *Server) handleCalculateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req calculateSnapshotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	requested := req.UserID
	if requested == 0 {
		var err error
		if requested, err = queryUserID(r); err != nil {
			writeError(w, r, err)
			return
		}
	}
	userID, err := s.resolve(r, requested)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.svc.Agency.Calculate(r.Context(), userID, req.CalculateInput)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	userID, err := s.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	from, err := queryDate(r, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}

	snaps, err := s.svc.Agency.List(r.Context(), userID, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if snaps == nil {
		snaps = []core.AgencySnapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, err := s.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.svc.Agency.Latest(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, err := s.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := core.ParseDate("date", mux.Vars(r)["date"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.svc.Agency.Get(r.Context(), userID, date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
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
	d, err := s.svc.Dashboard.Build(r.Context(), userID, asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
