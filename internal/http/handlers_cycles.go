package http

import (
	"net/http"

	"famfin/internal/core"
	"famfin/internal/services"
)

func (s *Server) handleIncomeProjection(w http.ResponseWriter, r *http.Request) {
	userID, err := s.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	streamID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, err := requiredQueryDate(r, "start")
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := requiredQueryDate(r, "end")
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.svc.Income.ProjectStream(r.Context(), userID, streamID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpcomingCycle(w http.ResponseWriter, r *http.Request) {
	userID, err := s.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cardID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	asOf, err := queryDate(r, "asOf")
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := s.svc.Cycles.UpcomingCycle(r.Context(), userID, cardID, asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handlePaymentCycles(w http.ResponseWriter, r *http.Request) {
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

	summaries, err := s.svc.Cycles.Summarize(r.Context(), userID, asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []core.CycleSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	userID, err := s.target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cycleID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.RecordPaymentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := s.svc.Cycles.RecordPayment(r.Context(), userID, cycleID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
