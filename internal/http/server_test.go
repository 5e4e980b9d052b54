package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"coinpurse/internal/core"
	"coinpurse/internal/services"
	"coinpurse/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	periods := services.NewPeriodService(repo, core.MonthBucketer{})
	balances := services.NewBalanceService(repo, repo, periods, nil)
	institutions := services.NewInstitutionService(repo)
	accounts := services.NewAccountService(repo)
	checkup := services.NewCheckupService(repo, periods, core.MonthBucketer{})

	s := NewServer(":0", periods, balances, institutions, accounts, checkup)
	ts := httptest.NewServer(s.Server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response for %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func seedAccount(t *testing.T, ts *httptest.Server) (instID, accountID int64) {
	t.Helper()

	var inst institutionResponse
	if status := doJSON(t, ts, http.MethodPost, "/api/institution",
		map[string]any{"name": "Harborline Bank"}, &inst); status != http.StatusCreated {
		t.Fatalf("create institution: status %d", status)
	}

	var account accountResponse
	if status := doJSON(t, ts, http.MethodPost, "/api/account",
		map[string]any{"name": "Checking", "institutionId": inst.ID}, &account); status != http.StatusCreated {
		t.Fatalf("create account: status %d", status)
	}
	return inst.ID, account.ID
}

func TestBalanceFlow(t *testing.T) {
	ts := newTestServer(t)
	_, accountID := seedAccount(t, ts)

	var period periodResponse
	if status := doJSON(t, ts, http.MethodPost, "/api/period/for-month",
		map[string]any{"month": "2024-03"}, &period); status != http.StatusOK {
		t.Fatalf("create period: status %d", status)
	}
	if period.Name != "2024-03" {
		t.Errorf("expected period 2024-03, got %q", period.Name)
	}

	var balances []balanceResponse
	status := doJSON(t, ts, http.MethodPost, "/api/balance", map[string]any{
		"periodId": period.ID,
		"balances": []map[string]any{{"accountId": accountID, "amountCents": 150000}},
	}, &balances)
	if status != http.StatusOK {
		t.Fatalf("upsert balances: status %d", status)
	}
	if len(balances) != 1 || balances[0].AmountCents != 150000 {
		t.Fatalf("unexpected balances: %+v", balances)
	}

	// Overwrite and confirm a single row remains
	status = doJSON(t, ts, http.MethodPost, "/api/balance", map[string]any{
		"periodId": period.ID,
		"balances": []map[string]any{{"accountId": accountID, "amountCents": 175000}},
	}, &balances)
	if status != http.StatusOK {
		t.Fatalf("overwrite balances: status %d", status)
	}

	var stored []balanceResponse
	if status := doJSON(t, ts, http.MethodGet,
		fmt.Sprintf("/api/balance/period/%d", period.ID), nil, &stored); status != http.StatusOK {
		t.Fatalf("list balances: status %d", status)
	}
	if len(stored) != 1 || stored[0].AmountCents != 175000 {
		t.Fatalf("expected single overwritten balance, got %+v", stored)
	}
}

func TestCreatePeriod_DuplicateRangeConflicts(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]any{"name": "2024-06", "startDate": "2024-06-01", "endDate": "2024-06-30"}
	var period periodResponse
	if status := doJSON(t, ts, http.MethodPost, "/api/period", body, &period); status != http.StatusCreated {
		t.Fatalf("create period: status %d", status)
	}
	if period.Name != "2024-06" {
		t.Errorf("expected name 2024-06, got %q", period.Name)
	}

	// Same range under a different name still collides.
	body["name"] = "June again"
	if status := doJSON(t, ts, http.MethodPost, "/api/period", body, nil); status != http.StatusConflict {
		t.Errorf("duplicate range: expected 409, got %d", status)
	}
}

func TestPeriodForMonth_SecondCallReturnsSamePeriod(t *testing.T) {
	ts := newTestServer(t)

	var first, second periodResponse
	doJSON(t, ts, http.MethodPost, "/api/period/for-month", map[string]any{"month": "2024-05"}, &first)
	doJSON(t, ts, http.MethodPost, "/api/period/for-month", map[string]any{"month": "2024-05"}, &second)

	if first.ID != second.ID {
		t.Errorf("expected same period, got ids %d and %d", first.ID, second.ID)
	}
}

func TestFindPeriodForDate_InclusiveEnds(t *testing.T) {
	ts := newTestServer(t)

	var period periodResponse
	doJSON(t, ts, http.MethodPost, "/api/period/for-month", map[string]any{"month": "2024-01"}, &period)

	for _, date := range []string{"2024-01-01", "2024-01-31"} {
		var got periodResponse
		if status := doJSON(t, ts, http.MethodGet, "/api/period/for-date?date="+date, nil, &got); status != http.StatusOK {
			t.Errorf("date %s: status %d", date, status)
			continue
		}
		if got.ID != period.ID {
			t.Errorf("date %s: expected period %d, got %d", date, period.ID, got.ID)
		}
	}

	if status := doJSON(t, ts, http.MethodGet, "/api/period/for-date?date=2024-02-01", nil, nil); status != http.StatusNotFound {
		t.Errorf("2024-02-01: expected 404, got %d", status)
	}
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t)
	_, accountID := seedAccount(t, ts)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown period", http.MethodPost, "/api/balance",
			map[string]any{"periodId": 999, "balances": []map[string]any{{"accountId": accountID, "amountCents": 100}}},
			http.StatusNotFound},
		{"invalid amount", http.MethodPost, "/api/balance/for-month",
			map[string]any{"month": "2024-03", "balances": []map[string]any{{"accountId": accountID, "amountCents": 0}}},
			http.StatusBadRequest},
		{"bad month format", http.MethodPost, "/api/period/for-month",
			map[string]any{"month": "March 2024"}, http.StatusBadRequest},
		{"empty batch", http.MethodPost, "/api/balance/for-month",
			map[string]any{"month": "2024-03", "balances": []map[string]any{}}, http.StatusBadRequest},
		{"unknown account", http.MethodGet, "/api/balance/account/999", nil, http.StatusNotFound},
		{"bad path id", http.MethodGet, "/api/period/abc", nil, http.StatusBadRequest},
		{"empty institution name", http.MethodPost, "/api/institution",
			map[string]any{"name": "  "}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := doJSON(t, ts, tc.method, tc.path, tc.body, nil); got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestBulkBalances(t *testing.T) {
	ts := newTestServer(t)
	_, accountID := seedAccount(t, ts)

	var balances []balanceResponse
	status := doJSON(t, ts, http.MethodPost, "/api/balance/bulk", map[string]any{
		"items": []map[string]any{
			{"date": "2024-03-05", "accountId": accountID, "amountCents": 100},
			{"date": "2024-04-05", "accountId": accountID, "amountCents": 200},
		},
	}, &balances)
	if status != http.StatusOK {
		t.Fatalf("bulk upsert: status %d", status)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(balances))
	}
	if balances[0].PeriodID == balances[1].PeriodID {
		t.Error("expected balances in different periods")
	}
}

func TestCheckupEndpoint(t *testing.T) {
	ts := newTestServer(t)
	seedAccount(t, ts)

	var checkup checkupResponse
	if status := doJSON(t, ts, http.MethodGet, "/api/checkup", nil, &checkup); status != http.StatusOK {
		t.Fatalf("checkup: status %d", status)
	}
	if checkup.PeriodSaved {
		t.Error("expected unsaved current period")
	}
	if len(checkup.AccountsNeedingBalances) != 1 {
		t.Errorf("expected 1 account needing balance, got %d", len(checkup.AccountsNeedingBalances))
	}
}

func TestDeactivateAccountExcludedFromCheckup(t *testing.T) {
	ts := newTestServer(t)
	_, accountID := seedAccount(t, ts)

	if status := doJSON(t, ts, http.MethodDelete,
		fmt.Sprintf("/api/account/%d", accountID), nil, nil); status != http.StatusOK {
		t.Fatalf("deactivate: status %d", status)
	}

	var checkup checkupResponse
	doJSON(t, ts, http.MethodGet, "/api/checkup", nil, &checkup)
	if len(checkup.AccountsNeedingBalances) != 0 {
		t.Errorf("expected no accounts after deactivation, got %d", len(checkup.AccountsNeedingBalances))
	}
}
