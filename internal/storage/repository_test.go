package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"coinpurse/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedAccount(t *testing.T, repo *SQLiteRepository) core.Account {
	t.Helper()
	ctx := context.Background()
	inst, err := repo.CreateInstitution(ctx, core.Institution{Name: "Harborline Bank", IsActive: true})
	if err != nil {
		t.Fatalf("seed institution: %v", err)
	}
	account, err := repo.CreateAccount(ctx, core.Account{
		Name:          "Checking",
		InstitutionID: inst.ID,
		TaxTreatment:  core.TaxStandard,
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func marchPeriod() core.Period {
	return core.Period{
		Name:      "2024-03",
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
	}
}

func TestRunMigrations_Rerunnable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	if err := RunMigrations(dbPath); err != nil {
		t.Fatalf("first run: %v", err)
	}
	// A schema already at the latest version is not an error.
	if err := RunMigrations(dbPath); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestCreatePeriod_DuplicateRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.CreatePeriod(ctx, marchPeriod()); err != nil {
		t.Fatalf("first create: %v", err)
	}

	dup := marchPeriod()
	dup.Name = "March again"
	if _, err := repo.CreatePeriod(ctx, dup); !errors.Is(err, core.ErrDuplicatePeriod) {
		t.Errorf("expected ErrDuplicatePeriod, got %v", err)
	}
}

func TestFindPeriodsForDate_DayGranularity(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	period, err := repo.CreatePeriod(ctx, marchPeriod())
	if err != nil {
		t.Fatalf("create period: %v", err)
	}

	cases := []struct {
		name string
		date time.Time
		want bool
	}{
		{"first day", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"last day late evening", time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC), true},
		{"last day after stored end time", time.Date(2024, 3, 31, 23, 59, 59, 999000000, time.UTC), true},
		{"day before", time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), false},
		{"day after", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			matches, err := repo.FindPeriodsForDate(ctx, tc.date)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			found := len(matches) > 0 && matches[0].ID == period.ID
			if found != tc.want {
				t.Errorf("date %v: found=%v, want %v", tc.date, found, tc.want)
			}
		})
	}
}

func TestGetPeriodByRange_RoundTripsDates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreatePeriod(ctx, marchPeriod())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetPeriodByRange(ctx, created.StartDate, created.EndDate)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != created.ID || !got.StartDate.Equal(created.StartDate) || !got.EndDate.Equal(created.EndDate) {
		t.Errorf("round trip mismatch: created %+v, got %+v", created, got)
	}
}

func TestUpsertBalances_OverwriteKeepsCreatedAt(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	account := seedAccount(t, repo)

	period, err := repo.CreatePeriod(ctx, marchPeriod())
	if err != nil {
		t.Fatalf("create period: %v", err)
	}

	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }

	first, err := repo.UpsertBalances(ctx, period.ID, []core.BalanceEntry{
		{AccountID: account.ID, Amount: core.Money{Cents: 100000}},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	repo.now = func() time.Time { return base.Add(48 * time.Hour) }
	second, err := repo.UpsertBalances(ctx, period.ID, []core.BalanceEntry{
		{AccountID: account.ID, Amount: core.Money{Cents: 200000}},
	})
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	if second[0].Amount.Cents != 200000 {
		t.Errorf("expected overwritten amount, got %d", second[0].Amount.Cents)
	}
	if !second[0].CreatedAt.Equal(first[0].CreatedAt) {
		t.Errorf("created_at changed on overwrite: %v vs %v", second[0].CreatedAt, first[0].CreatedAt)
	}
	if !second[0].UpdatedAt.After(first[0].UpdatedAt) {
		t.Errorf("updated_at not advanced: %v vs %v", second[0].UpdatedAt, first[0].UpdatedAt)
	}

	stored, err := repo.ListBalancesForPeriod(ctx, period.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("expected single row, got %d", len(stored))
	}
}

func TestUpsertBalances_RollsBackOnBadAccount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	account := seedAccount(t, repo)

	period, err := repo.CreatePeriod(ctx, marchPeriod())
	if err != nil {
		t.Fatalf("create period: %v", err)
	}

	_, err = repo.UpsertBalances(ctx, period.ID, []core.BalanceEntry{
		{AccountID: account.ID, Amount: core.Money{Cents: 100}},
		{AccountID: 9999, Amount: core.Money{Cents: 200}},
	})
	if !errors.Is(err, core.ErrInvalidAccountID) {
		t.Fatalf("expected ErrInvalidAccountID, got %v", err)
	}

	stored, err := repo.ListBalancesForPeriod(ctx, period.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("expected rollback to leave no rows, got %d", len(stored))
	}
}

func TestLastBalanceEntry(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	account := seedAccount(t, repo)

	last, err := repo.LastBalanceEntry(ctx)
	if err != nil {
		t.Fatalf("empty query: %v", err)
	}
	if !last.IsZero() {
		t.Errorf("expected zero time with no balances, got %v", last)
	}

	period, err := repo.CreatePeriod(ctx, marchPeriod())
	if err != nil {
		t.Fatalf("create period: %v", err)
	}
	written := time.Date(2024, 3, 12, 9, 30, 0, 0, time.UTC)
	repo.now = func() time.Time { return written }
	if _, err := repo.UpsertBalances(ctx, period.ID, []core.BalanceEntry{
		{AccountID: account.ID, Amount: core.Money{Cents: 100}},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	last, err = repo.LastBalanceEntry(ctx)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !last.Equal(written) {
		t.Errorf("expected %v, got %v", written, last)
	}
}

func TestAccountCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	account := seedAccount(t, repo)

	got, err := repo.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Checking" || got.TaxTreatment != core.TaxStandard {
		t.Errorf("unexpected account: %+v", got)
	}

	got.IsActive = false
	if err := repo.UpdateAccount(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	active, err := repo.ListAccounts(ctx, true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active accounts, got %d", len(active))
	}

	if _, err := repo.GetAccount(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateAccount_UnknownInstitution(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.CreateAccount(context.Background(), core.Account{
		Name:          "Orphan",
		InstitutionID: 42,
		TaxTreatment:  core.TaxStandard,
		IsActive:      true,
	})
	if !errors.Is(err, core.ErrInvalidInstitution) {
		t.Errorf("expected ErrInvalidInstitution, got %v", err)
	}
}
