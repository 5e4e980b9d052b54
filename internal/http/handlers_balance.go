package http

import (
	"net/http"

	"coinpurse/internal/core"
	"coinpurse/internal/services"
)

type upsertBalancesRequest struct {
	PeriodID int64                 `json:"periodId"`
	Balances []balanceEntryRequest `json:"balances"`
}

func (s *Server) handleUpsertBalances(w http.ResponseWriter, r *http.Request) {
	var req upsertBalancesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	balances, err := s.balances.UpsertBalances(r.Context(), req.PeriodID, toEntries(req.Balances))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceResponses(balances))
}

type balancesForMonthRequest struct {
	Month    string                `json:"month"`
	Balances []balanceEntryRequest `json:"balances"`
}

func (s *Server) handleBalancesForMonth(w http.ResponseWriter, r *http.Request) {
	var req balancesForMonthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	year, month, err := parseMonth(req.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	balances, err := s.balances.CreateBalancesForMonth(r.Context(), year, month, toEntries(req.Balances))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBalanceResponses(balances))
}

type balancesForDateRequest struct {
	Date     string                `json:"date"`
	Balances []balanceEntryRequest `json:"balances"`
}

func (s *Server) handleBalancesForDate(w http.ResponseWriter, r *http.Request) {
	var req balancesForDateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	balances, err := s.balances.CreateBalancesForDate(r.Context(), date, toEntries(req.Balances))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBalanceResponses(balances))
}

type bulkItemRequest struct {
	Date        string `json:"date"`
	AccountID   int64  `json:"accountId"`
	AmountCents int64  `json:"amountCents"`
}

type bulkUpsertRequest struct {
	Items []bulkItemRequest `json:"items"`
}

func (s *Server) handleBulkUpsert(w http.ResponseWriter, r *http.Request) {
	var req bulkUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]services.BulkItem, 0, len(req.Items))
	for _, item := range req.Items {
		date, err := parseDate(item.Date)
		if err != nil {
			writeError(w, r, err)
			return
		}
		items = append(items, services.BulkItem{
			Date:      date,
			AccountID: item.AccountID,
			Amount:    core.Money{Cents: item.AmountCents},
		})
	}

	balances, err := s.balances.BulkUpsert(r.Context(), items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceResponses(balances))
}

func (s *Server) handleBalancesForPeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	balances, err := s.balances.ListBalancesForPeriod(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceResponses(balances))
}

func (s *Server) handleBalancesForAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	balances, err := s.balances.ListBalancesForAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceResponses(balances))
}
