package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coinpurse/internal/core"
)

// CheckupStore is the storage surface the checkup service needs.
type CheckupStore interface {
	ListAccounts(ctx context.Context, activeOnly bool) ([]core.Account, error)
	ListBalancesForPeriod(ctx context.Context, periodID int64) ([]core.Balance, error)
	LastBalanceEntry(ctx context.Context) (time.Time, error)
}

// PeriodFinder locates the period containing a date without creating one.
type PeriodFinder interface {
	FindPeriodForDate(ctx context.Context, date time.Time) (core.Period, error)
}

// CheckupPrompt summarizes what still needs a balance entry for the current
// period.
type CheckupPrompt struct {
	CurrentPeriod core.Period
	// PeriodSaved is false when no period covering now exists yet; in that
	// case CurrentPeriod is the range the bucketer would create.
	PeriodSaved             bool
	HasBalances             bool
	AccountsNeedingBalances []core.Account
	LastEntry               time.Time
}

// CheckupService reports which active accounts are missing a balance in the
// current period.
type CheckupService struct {
	store    CheckupStore
	periods  PeriodFinder
	bucketer core.Bucketer
}

func NewCheckupService(store CheckupStore, periods PeriodFinder, bucketer core.Bucketer) *CheckupService {
	return &CheckupService{
		store:    store,
		periods:  periods,
		bucketer: bucketer,
	}
}

// Prompt builds the checkup summary for the given instant.
func (s *CheckupService) Prompt(ctx context.Context, now time.Time) (CheckupPrompt, error) {
	prompt := CheckupPrompt{}

	period, err := s.periods.FindPeriodForDate(ctx, now)
	switch {
	case err == nil:
		prompt.CurrentPeriod = period
		prompt.PeriodSaved = true
	case errors.Is(err, core.ErrNotFound):
		prompt.CurrentPeriod = s.bucketer.Bucket(now)
	default:
		return CheckupPrompt{}, fmt.Errorf("find current period: %w", err)
	}

	accounts, err := s.store.ListAccounts(ctx, true)
	if err != nil {
		return CheckupPrompt{}, fmt.Errorf("list active accounts: %w", err)
	}

	recorded := make(map[int64]bool)
	if prompt.PeriodSaved {
		balances, err := s.store.ListBalancesForPeriod(ctx, prompt.CurrentPeriod.ID)
		if err != nil {
			return CheckupPrompt{}, fmt.Errorf("list period balances: %w", err)
		}
		prompt.HasBalances = len(balances) > 0
		for _, b := range balances {
			recorded[b.AccountID] = true
		}
	}

	for _, a := range accounts {
		if !recorded[a.ID] {
			prompt.AccountsNeedingBalances = append(prompt.AccountsNeedingBalances, a)
		}
	}

	last, err := s.store.LastBalanceEntry(ctx)
	if err != nil {
		return CheckupPrompt{}, fmt.Errorf("last balance entry: %w", err)
	}
	prompt.LastEntry = last

	return prompt, nil
}
