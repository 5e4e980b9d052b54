package core

import (
	"errors"
	"strings"
	"time"
)

const (
	TaxStandard    TaxTreatment = "standard"
	TaxRoth        TaxTreatment = "roth"
	TaxTraditional TaxTreatment = "traditional"
	TaxFree        TaxTreatment = "tax_free"
)

type (
	// TaxTreatment classifies how an account is taxed.
	TaxTreatment string

	Money struct {
		Cents int64
	}

	// Institution holds zero or more accounts. Institutions are deactivated,
	// never hard-deleted, so historical balances stay interpretable.
	Institution struct {
		ID       int64
		Name     string
		IsActive bool
	}

	// Account always belongs to exactly one institution.
	Account struct {
		ID            int64
		Name          string
		InstitutionID int64
		TaxTreatment  TaxTreatment
		IsActive      bool
	}

	// Period is a named date range that buckets balance snapshots.
	// Both bounds are UTC instants and the range is inclusive on both ends.
	// A period is immutable once created.
	Period struct {
		ID        int64
		Name      string
		StartDate time.Time
		EndDate   time.Time
	}

	// Balance is the amount recorded for one account within one period.
	// Its identity is the composite (PeriodID, AccountID) pair; at most one
	// balance exists per pair.
	Balance struct {
		PeriodID  int64
		AccountID int64
		Amount    Money
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// BalanceEntry is one (account, amount) item of an upsert batch.
	BalanceEntry struct {
		AccountID int64
		Amount    Money
	}
)

var (
	ErrNotFound = errors.New("not found")

	// ErrDuplicatePeriod is returned when a period with the same date range
	// already exists. Callers resolve the race by re-fetching the winner.
	ErrDuplicatePeriod = errors.New("period with this date range already exists")

	ErrEmptyName           = errors.New("empty name")
	ErrNameTooLong         = errors.New("name too long (max 100 characters)")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidAccountID    = errors.New("invalid account id")
	ErrInvalidPeriodID     = errors.New("invalid period id")
	ErrInvalidInstitution  = errors.New("invalid institution id")
	ErrInvalidTaxTreatment = errors.New("invalid tax treatment")
	ErrInvalidDateRange    = errors.New("end date must not precede start date")
	ErrEmptyBatch          = errors.New("empty balance batch")
)

// validationErrs lists every structural-validation sentinel. The HTTP layer
// maps these to 400 responses.
var validationErrs = []error{
	ErrEmptyName,
	ErrNameTooLong,
	ErrInvalidAmount,
	ErrInvalidAccountID,
	ErrInvalidPeriodID,
	ErrInvalidInstitution,
	ErrInvalidTaxTreatment,
	ErrInvalidDateRange,
	ErrEmptyBatch,
}

// IsValidation reports whether err is (or wraps) a validation sentinel.
func IsValidation(err error) bool {
	for _, v := range validationErrs {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (i Institution) Validate() error {
	return validateName(i.Name)
}

func (a Account) Validate() error {
	if err := validateName(a.Name); err != nil {
		return err
	}
	if a.InstitutionID <= 0 {
		return ErrInvalidInstitution
	}
	switch a.TaxTreatment {
	case TaxStandard, TaxRoth, TaxTraditional, TaxFree:
	default:
		return ErrInvalidTaxTreatment
	}
	return nil
}

func (p Period) Validate() error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() || p.EndDate.Before(p.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

// Contains reports whether date falls within the period's range, comparing at
// day granularity: intra-day time-of-day is ignored, both ends inclusive.
func (p Period) Contains(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(DateOnly(p.StartDate)) && !d.After(DateOnly(p.EndDate))
}

func (e BalanceEntry) Validate() error {
	if e.AccountID <= 0 {
		return ErrInvalidAccountID
	}
	return e.Amount.Validate()
}

// ValidateBatch checks a whole upsert batch before any storage mutation.
func ValidateBatch(entries []BalanceEntry) error {
	if len(entries) == 0 {
		return ErrEmptyBatch
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func validateName(name string) error {
	if len(strings.TrimSpace(name)) == 0 {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return ErrNameTooLong
	}
	return nil
}
