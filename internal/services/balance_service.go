package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"coinpurse/internal/core"
)

// BalanceStore is the storage surface the balance service needs.
type BalanceStore interface {
	UpsertBalances(ctx context.Context, periodID int64, entries []core.BalanceEntry) ([]core.Balance, error)
	ListBalancesForPeriod(ctx context.Context, periodID int64) ([]core.Balance, error)
	ListBalancesForAccount(ctx context.Context, accountID int64) ([]core.Balance, error)
}

// AccountReader is the account lookup surface the balance service needs.
type AccountReader interface {
	GetAccount(ctx context.Context, id int64) (core.Account, error)
}

// EventPublisher publishes domain events after storage commits.
type EventPublisher interface {
	PublishBalancesRecorded(ctx context.Context, period core.Period, balances []core.Balance) error
}

// PeriodResolver get-or-creates the period a batch of balances lands in.
type PeriodResolver interface {
	GetPeriod(ctx context.Context, id int64) (core.Period, error)
	GetOrCreatePeriodForMonth(ctx context.Context, year int, month time.Month) (core.Period, error)
	GetOrCreatePeriodForDate(ctx context.Context, date time.Time) (core.Period, error)
}

// BalanceService records account balance snapshots into periods.
type BalanceService struct {
	store    BalanceStore
	accounts AccountReader
	periods  PeriodResolver
	events   EventPublisher
}

func NewBalanceService(store BalanceStore, accounts AccountReader, periods PeriodResolver, events EventPublisher) *BalanceService {
	return &BalanceService{
		store:    store,
		accounts: accounts,
		periods:  periods,
		events:   events,
	}
}

// UpsertBalances writes a batch of balances into the given period. The whole
// batch is validated before any write, then lands atomically: an entry for an
// account that already has a balance in the period overwrites it, the rest
// are inserted. Entry order is preserved in the result.
func (s *BalanceService) UpsertBalances(ctx context.Context, periodID int64, entries []core.BalanceEntry) ([]core.Balance, error) {
	if periodID <= 0 {
		return nil, core.ErrInvalidPeriodID
	}
	if err := core.ValidateBatch(entries); err != nil {
		return nil, err
	}

	period, err := s.periods.GetPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("resolve period %d: %w", periodID, err)
	}

	for _, e := range entries {
		if _, err := s.accounts.GetAccount(ctx, e.AccountID); err != nil {
			return nil, fmt.Errorf("resolve account %d: %w", e.AccountID, err)
		}
	}

	balances, err := s.store.UpsertBalances(ctx, period.ID, entries)
	if err != nil {
		return nil, fmt.Errorf("upsert balances: %w", err)
	}

	s.publishRecorded(ctx, period, balances)

	return balances, nil
}

// CreateBalancesForMonth records balances into the calendar-month period for
// the given year and month, creating the period when absent.
func (s *BalanceService) CreateBalancesForMonth(ctx context.Context, year int, month time.Month, entries []core.BalanceEntry) ([]core.Balance, error) {
	if err := core.ValidateBatch(entries); err != nil {
		return nil, err
	}

	period, err := s.periods.GetOrCreatePeriodForMonth(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("resolve month period: %w", err)
	}

	return s.UpsertBalances(ctx, period.ID, entries)
}

// CreateBalancesForDate records balances into the period containing the given
// date, creating it via the configured granularity when absent.
func (s *BalanceService) CreateBalancesForDate(ctx context.Context, date time.Time, entries []core.BalanceEntry) ([]core.Balance, error) {
	if err := core.ValidateBatch(entries); err != nil {
		return nil, err
	}

	period, err := s.periods.GetOrCreatePeriodForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("resolve date period: %w", err)
	}

	return s.UpsertBalances(ctx, period.ID, entries)
}

// BulkItem is one dated balance entry of a bulk update.
type BulkItem struct {
	Date      time.Time
	AccountID int64
	Amount    core.Money
}

// BulkUpsert records balances across multiple dates. Items are grouped by the
// period their date resolves to and each group lands atomically; groups are
// written in order of first appearance.
func (s *BalanceService) BulkUpsert(ctx context.Context, items []BulkItem) ([]core.Balance, error) {
	if len(items) == 0 {
		return nil, core.ErrEmptyBatch
	}

	groups := make(map[int64][]core.BalanceEntry)
	var order []int64
	periodsByID := make(map[int64]core.Period)

	for _, item := range items {
		entry := core.BalanceEntry{AccountID: item.AccountID, Amount: item.Amount}
		if err := entry.Validate(); err != nil {
			return nil, err
		}

		period, err := s.periods.GetOrCreatePeriodForDate(ctx, item.Date)
		if err != nil {
			return nil, fmt.Errorf("resolve period for %s: %w", item.Date.Format(time.DateOnly), err)
		}

		if _, seen := groups[period.ID]; !seen {
			order = append(order, period.ID)
			periodsByID[period.ID] = period
		}
		groups[period.ID] = append(groups[period.ID], entry)
	}

	var all []core.Balance
	for _, periodID := range order {
		balances, err := s.UpsertBalances(ctx, periodID, groups[periodID])
		if err != nil {
			return nil, fmt.Errorf("bulk upsert into period %d: %w", periodID, err)
		}
		all = append(all, balances...)
	}

	slog.InfoContext(ctx, "Bulk balance update completed",
		"periods", len(order),
		"count", len(all))

	return all, nil
}

// ListBalancesForPeriod returns all balances recorded in a period.
func (s *BalanceService) ListBalancesForPeriod(ctx context.Context, periodID int64) ([]core.Balance, error) {
	if periodID <= 0 {
		return nil, core.ErrInvalidPeriodID
	}
	if _, err := s.periods.GetPeriod(ctx, periodID); err != nil {
		return nil, fmt.Errorf("resolve period %d: %w", periodID, err)
	}
	return s.store.ListBalancesForPeriod(ctx, periodID)
}

// ListBalancesForAccount returns an account's balance history, newest period
// first.
func (s *BalanceService) ListBalancesForAccount(ctx context.Context, accountID int64) ([]core.Balance, error) {
	if accountID <= 0 {
		return nil, core.ErrInvalidAccountID
	}
	if _, err := s.accounts.GetAccount(ctx, accountID); err != nil {
		return nil, fmt.Errorf("resolve account %d: %w", accountID, err)
	}
	return s.store.ListBalancesForAccount(ctx, accountID)
}

func (s *BalanceService) publishRecorded(ctx context.Context, period core.Period, balances []core.Balance) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishBalancesRecorded(ctx, period, balances); err != nil {
		slog.ErrorContext(ctx, "Failed to publish balances recorded event",
			"period_id", period.ID,
			"count", len(balances),
			"error", err)
		// Don't fail the request - balances are saved locally
	}
}
