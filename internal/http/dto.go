package http

import (
	"time"

	"coinpurse/internal/core"
	"coinpurse/internal/services"
)

type periodResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func toPeriodResponse(p core.Period) periodResponse {
	return periodResponse{
		ID:        p.ID,
		Name:      p.Name,
		StartDate: p.StartDate.UTC().Format(time.RFC3339),
		EndDate:   p.EndDate.UTC().Format(time.RFC3339),
	}
}

func toPeriodResponses(periods []core.Period) []periodResponse {
	out := make([]periodResponse, 0, len(periods))
	for _, p := range periods {
		out = append(out, toPeriodResponse(p))
	}
	return out
}

type balanceResponse struct {
	PeriodID    int64  `json:"periodId"`
	AccountID   int64  `json:"accountId"`
	AmountCents int64  `json:"amountCents"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func toBalanceResponses(balances []core.Balance) []balanceResponse {
	out := make([]balanceResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, balanceResponse{
			PeriodID:    b.PeriodID,
			AccountID:   b.AccountID,
			AmountCents: b.Amount.Cents,
			CreatedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:   b.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

type institutionResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

func toInstitutionResponse(i core.Institution) institutionResponse {
	return institutionResponse{ID: i.ID, Name: i.Name, IsActive: i.IsActive}
}

type accountResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	InstitutionID int64  `json:"institutionId"`
	TaxTreatment  string `json:"taxTreatment"`
	IsActive      bool   `json:"isActive"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:            a.ID,
		Name:          a.Name,
		InstitutionID: a.InstitutionID,
		TaxTreatment:  string(a.TaxTreatment),
		IsActive:      a.IsActive,
	}
}

func toAccountResponses(accounts []core.Account) []accountResponse {
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return out
}

type checkupResponse struct {
	CurrentPeriod           periodResponse    `json:"currentPeriod"`
	PeriodSaved             bool              `json:"periodSaved"`
	HasBalances             bool              `json:"hasBalances"`
	AccountsNeedingBalances []accountResponse `json:"accountsNeedingBalances"`
	LastEntry               string            `json:"lastEntry,omitempty"`
}

func toCheckupResponse(p services.CheckupPrompt) checkupResponse {
	resp := checkupResponse{
		CurrentPeriod:           toPeriodResponse(p.CurrentPeriod),
		PeriodSaved:             p.PeriodSaved,
		HasBalances:             p.HasBalances,
		AccountsNeedingBalances: toAccountResponses(p.AccountsNeedingBalances),
	}
	if !p.LastEntry.IsZero() {
		resp.LastEntry = p.LastEntry.UTC().Format(time.RFC3339)
	}
	return resp
}

type balanceEntryRequest struct {
	AccountID   int64 `json:"accountId"`
	AmountCents int64 `json:"amountCents"`
}

func toEntries(reqs []balanceEntryRequest) []core.BalanceEntry {
	entries := make([]core.BalanceEntry, 0, len(reqs))
	for _, r := range reqs {
		entries = append(entries, core.BalanceEntry{
			AccountID: r.AccountID,
			Amount:    core.Money{Cents: r.AmountCents},
		})
	}
	return entries
}
