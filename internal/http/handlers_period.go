package http

import (
	"net/http"
	"time"
)

func (s *Server) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := s.periods.ListPeriods(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodResponses(periods))
}

func (s *Server) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	period, err := s.periods.GetPeriod(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodResponse(period))
}

func (s *Server) handleFindPeriodForDate(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := date.Format(time.DateOnly)
	if cached, found := s.periodCache.Get(key); found {
		writeJSON(w, http.StatusOK, toPeriodResponse(cached))
		return
	}

	period, err := s.periods.FindPeriodForDate(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.periodCache.Set(key, period)
	writeJSON(w, http.StatusOK, toPeriodResponse(period))
}

type createPeriodRequest struct {
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (s *Server) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req createPeriodRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	period, err := s.periods.CreatePeriod(r.Context(), req.Name, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodResponse(period))
}

type periodForMonthRequest struct {
	Month string `json:"month"`
}

func (s *Server) handlePeriodForMonth(w http.ResponseWriter, r *http.Request) {
	var req periodForMonthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	year, month, err := parseMonth(req.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	period, err := s.periods.GetOrCreatePeriodForMonth(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodResponse(period))
}

type periodForDateRequest struct {
	Date string `json:"date"`
}

func (s *Server) handlePeriodForDate(w http.ResponseWriter, r *http.Request) {
	var req periodForDateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	period, err := s.periods.GetOrCreatePeriodForDate(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodResponse(period))
}
