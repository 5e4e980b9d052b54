package services

import (
	"context"
	"testing"
	"time"

	"coinpurse/internal/core"
)

func setupCheckup(t *testing.T) (*CheckupService, *BalanceService, *fakeStore, *PeriodService) {
	t.Helper()
	store := newFakeStore()
	ctx := context.Background()

	inst, err := store.CreateInstitution(ctx, core.Institution{Name: "Harborline Bank", IsActive: true})
	if err != nil {
		t.Fatalf("seed institution: %v", err)
	}
	for _, seed := range []struct {
		name   string
		active bool
	}{
		{"Checking", true},
		{"Savings", true},
		{"Old 401k", false},
	} {
		if _, err := store.CreateAccount(ctx, core.Account{
			Name:          seed.name,
			InstitutionID: inst.ID,
			TaxTreatment:  core.TaxStandard,
			IsActive:      seed.active,
		}); err != nil {
			t.Fatalf("seed account %s: %v", seed.name, err)
		}
	}

	periods := NewPeriodService(store, core.MonthBucketer{})
	balances := NewBalanceService(store, store, periods, nil)
	checkup := NewCheckupService(store, periods, core.MonthBucketer{})
	return checkup, balances, store, periods
}

func TestCheckupPrompt_NoPeriodYet(t *testing.T) {
	checkup, _, _, _ := setupCheckup(t)
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	prompt, err := checkup.Prompt(context.Background(), now)
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}

	if prompt.PeriodSaved {
		t.Error("expected unsaved period")
	}
	if prompt.CurrentPeriod.Name != "2024-03" {
		t.Errorf("expected synthesized 2024-03 period, got %q", prompt.CurrentPeriod.Name)
	}
	if prompt.HasBalances {
		t.Error("expected no balances")
	}
	if len(prompt.AccountsNeedingBalances) != 2 {
		t.Errorf("expected 2 active accounts needing balances, got %d", len(prompt.AccountsNeedingBalances))
	}
	if !prompt.LastEntry.IsZero() {
		t.Errorf("expected zero last entry, got %v", prompt.LastEntry)
	}
}

func TestCheckupPrompt_PartialBalances(t *testing.T) {
	checkup, balances, _, periods := setupCheckup(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	period, err := periods.GetOrCreatePeriodForMonth(ctx, 2024, time.March)
	if err != nil {
		t.Fatalf("create period: %v", err)
	}
	if _, err := balances.UpsertBalances(ctx, period.ID, []core.BalanceEntry{
		{AccountID: 2, Amount: core.Money{Cents: 120000}},
	}); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	prompt, err := checkup.Prompt(ctx, now)
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}

	if !prompt.PeriodSaved {
		t.Error("expected saved period")
	}
	if !prompt.HasBalances {
		t.Error("expected HasBalances true")
	}
	if len(prompt.AccountsNeedingBalances) != 1 {
		t.Fatalf("expected 1 account needing balance, got %d", len(prompt.AccountsNeedingBalances))
	}
	if prompt.AccountsNeedingBalances[0].Name != "Savings" {
		t.Errorf("expected Savings to need a balance, got %q", prompt.AccountsNeedingBalances[0].Name)
	}
	if prompt.LastEntry.IsZero() {
		t.Error("expected non-zero last entry")
	}
}

func TestCheckupPrompt_InactiveAccountsExcluded(t *testing.T) {
	checkup, _, _, _ := setupCheckup(t)

	prompt, err := checkup.Prompt(context.Background(), time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	for _, a := range prompt.AccountsNeedingBalances {
		if a.Name == "Old 401k" {
			t.Error("inactive account must not appear in checkup prompt")
		}
	}
}

func TestCheckupPrompt_AllAccountsRecorded(t *testing.T) {
	checkup, balances, _, periods := setupCheckup(t)
	ctx := context.Background()

	period, err := periods.GetOrCreatePeriodForMonth(ctx, 2024, time.March)
	if err != nil {
		t.Fatalf("create period: %v", err)
	}
	if _, err := balances.UpsertBalances(ctx, period.ID, []core.BalanceEntry{
		{AccountID: 2, Amount: core.Money{Cents: 100}},
		{AccountID: 3, Amount: core.Money{Cents: 200}},
	}); err != nil {
		t.Fatalf("seed balances: %v", err)
	}

	prompt, err := checkup.Prompt(ctx, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if len(prompt.AccountsNeedingBalances) != 0 {
		t.Errorf("expected no accounts needing balances, got %d", len(prompt.AccountsNeedingBalances))
	}
}
