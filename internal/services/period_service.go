package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coinpurse/internal/core"
)

// PeriodStore is the storage surface the period service needs.
type PeriodStore interface {
	CreatePeriod(ctx context.Context, p core.Period) (core.Period, error)
	GetPeriod(ctx context.Context, id int64) (core.Period, error)
	GetPeriodByRange(ctx context.Context, start, end time.Time) (core.Period, error)
	FindPeriodsForDate(ctx context.Context, date time.Time) ([]core.Period, error)
	ListPeriods(ctx context.Context) ([]core.Period, error)
}

// PeriodService resolves dates to periods and creates periods on demand.
// The bucketer decides what date range a new period spans.
type PeriodService struct {
	store    PeriodStore
	bucketer core.Bucketer
}

func NewPeriodService(store PeriodStore, bucketer core.Bucketer) *PeriodService {
	return &PeriodService{
		store:    store,
		bucketer: bucketer,
	}
}

// FindPeriodForDate returns the period containing the given date, or
// core.ErrNotFound when no period covers it. Nothing is created.
func (s *PeriodService) FindPeriodForDate(ctx context.Context, date time.Time) (core.Period, error) {
	periods, err := s.store.FindPeriodsForDate(ctx, date)
	if err != nil {
		return core.Period{}, fmt.Errorf("find period for date: %w", err)
	}
	if len(periods) == 0 {
		return core.Period{}, core.ErrNotFound
	}
	if len(periods) > 1 {
		slog.WarnContext(ctx, "Multiple periods contain date, using oldest",
			"date", date.Format(time.RFC3339),
			"count", len(periods),
			"period_id", periods[0].ID)
	}
	return periods[0], nil
}

// GetPeriod fetches a period by ID.
func (s *PeriodService) GetPeriod(ctx context.Context, id int64) (core.Period, error) {
	if id <= 0 {
		return core.Period{}, core.ErrInvalidPeriodID
	}
	return s.store.GetPeriod(ctx, id)
}

// GetOrCreatePeriodForMonth returns the period covering the given year and
// month, creating a calendar-month period when absent. A period already
// containing the month's first day is reused even when its range is not a
// calendar month.
func (s *PeriodService) GetOrCreatePeriodForMonth(ctx context.Context, year int, month time.Month) (core.Period, error) {
	if month < time.January || month > time.December {
		return core.Period{}, fmt.Errorf("month %d: %w", month, core.ErrInvalidDateRange)
	}
	date := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	existing, err := s.FindPeriodForDate(ctx, date)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Period{}, err
	}
	return s.getOrCreate(ctx, core.MonthBucketer{}.Bucket(date))
}

// GetOrCreatePeriodForDate returns the period containing the given date,
// creating one via the configured bucketer when absent.
func (s *PeriodService) GetOrCreatePeriodForDate(ctx context.Context, date time.Time) (core.Period, error) {
	existing, err := s.FindPeriodForDate(ctx, date)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Period{}, err
	}
	return s.getOrCreate(ctx, s.bucketer.Bucket(date))
}

// CreatePeriod creates a period with an explicit range. The range must be
// unused; callers wanting get-or-create semantics use the ForMonth/ForDate
// variants.
func (s *PeriodService) CreatePeriod(ctx context.Context, name string, start, end time.Time) (core.Period, error) {
	p := core.Period{Name: name, StartDate: start.UTC(), EndDate: end.UTC()}
	if err := p.Validate(); err != nil {
		return core.Period{}, err
	}
	created, err := s.store.CreatePeriod(ctx, p)
	if err != nil {
		return core.Period{}, fmt.Errorf("create period: %w", err)
	}
	return created, nil
}

// ListPeriods returns all periods, newest first.
func (s *PeriodService) ListPeriods(ctx context.Context) ([]core.Period, error) {
	return s.store.ListPeriods(ctx)
}

// getOrCreate inserts the candidate period, falling back to the existing row
// when a concurrent request created the same range first.
func (s *PeriodService) getOrCreate(ctx context.Context, candidate core.Period) (core.Period, error) {
	existing, err := s.store.GetPeriodByRange(ctx, candidate.StartDate, candidate.EndDate)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Period{}, fmt.Errorf("lookup period by range: %w", err)
	}

	if err := candidate.Validate(); err != nil {
		return core.Period{}, err
	}

	created, err := s.store.CreatePeriod(ctx, candidate)
	if errors.Is(err, core.ErrDuplicatePeriod) {
		// Lost the race; the winner's row is what we want.
		return s.store.GetPeriodByRange(ctx, candidate.StartDate, candidate.EndDate)
	}
	if err != nil {
		return core.Period{}, fmt.Errorf("create period: %w", err)
	}
	return created, nil
}
