package services

import (
	"context"
	"sort"
	"time"

	"coinpurse/internal/core"
)

// fakeStore is an in-memory stand-in for the SQLite repository.
type fakeStore struct {
	periods      map[int64]core.Period
	institutions map[int64]core.Institution
	accounts     map[int64]core.Account
	balances     map[[2]int64]core.Balance // keyed on (periodID, accountID)
	nextID       int64
	now          time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		periods:      make(map[int64]core.Period),
		institutions: make(map[int64]core.Institution),
		accounts:     make(map[int64]core.Account),
		balances:     make(map[[2]int64]core.Balance),
		nextID:       1,
		now:          time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) id() int64 {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeStore) CreatePeriod(_ context.Context, p core.Period) (core.Period, error) {
	for _, existing := range f.periods {
		if existing.StartDate.Equal(p.StartDate) && existing.EndDate.Equal(p.EndDate) {
			return core.Period{}, core.ErrDuplicatePeriod
		}
	}
	p.ID = f.id()
	f.periods[p.ID] = p
	return p, nil
}

func (f *fakeStore) GetPeriod(_ context.Context, id int64) (core.Period, error) {
	p, ok := f.periods[id]
	if !ok {
		return core.Period{}, core.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetPeriodByRange(_ context.Context, start, end time.Time) (core.Period, error) {
	for _, p := range f.periods {
		if p.StartDate.Equal(start) && p.EndDate.Equal(end) {
			return p, nil
		}
	}
	return core.Period{}, core.ErrNotFound
}

func (f *fakeStore) FindPeriodsForDate(_ context.Context, date time.Time) ([]core.Period, error) {
	var matches []core.Period
	for _, p := range f.periods {
		if p.Contains(date) {
			matches = append(matches, p)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (f *fakeStore) ListPeriods(_ context.Context) ([]core.Period, error) {
	var all []core.Period
	for _, p := range f.periods {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartDate.After(all[j].StartDate) })
	return all, nil
}

func (f *fakeStore) CreateInstitution(_ context.Context, inst core.Institution) (core.Institution, error) {
	inst.ID = f.id()
	f.institutions[inst.ID] = inst
	return inst, nil
}

func (f *fakeStore) GetInstitution(_ context.Context, id int64) (core.Institution, error) {
	inst, ok := f.institutions[id]
	if !ok {
		return core.Institution{}, core.ErrNotFound
	}
	return inst, nil
}

func (f *fakeStore) ListInstitutions(_ context.Context) ([]core.Institution, error) {
	var all []core.Institution
	for _, inst := range f.institutions {
		all = append(all, inst)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (f *fakeStore) UpdateInstitution(_ context.Context, inst core.Institution) error {
	if _, ok := f.institutions[inst.ID]; !ok {
		return core.ErrNotFound
	}
	f.institutions[inst.ID] = inst
	return nil
}

func (f *fakeStore) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	a.ID = f.id()
	f.accounts[a.ID] = a
	return a, nil
}

func (f *fakeStore) GetAccount(_ context.Context, id int64) (core.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return core.Account{}, core.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) ListAccounts(_ context.Context, activeOnly bool) ([]core.Account, error) {
	var all []core.Account
	for _, a := range f.accounts {
		if activeOnly && !a.IsActive {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (f *fakeStore) ListAccountsByInstitution(_ context.Context, institutionID int64) ([]core.Account, error) {
	var all []core.Account
	for _, a := range f.accounts {
		if a.InstitutionID == institutionID {
			all = append(all, a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (f *fakeStore) UpdateAccount(_ context.Context, a core.Account) error {
	if _, ok := f.accounts[a.ID]; !ok {
		return core.ErrNotFound
	}
	f.accounts[a.ID] = a
	return nil
}

func (f *fakeStore) UpsertBalances(_ context.Context, periodID int64, entries []core.BalanceEntry) ([]core.Balance, error) {
	result := make([]core.Balance, 0, len(entries))
	for _, e := range entries {
		key := [2]int64{periodID, e.AccountID}
		b, exists := f.balances[key]
		if !exists {
			b = core.Balance{PeriodID: periodID, AccountID: e.AccountID, CreatedAt: f.now}
		}
		b.Amount = e.Amount
		b.UpdatedAt = f.now
		f.balances[key] = b
		result = append(result, b)
	}
	return result, nil
}

func (f *fakeStore) ListBalancesForPeriod(_ context.Context, periodID int64) ([]core.Balance, error) {
	var all []core.Balance
	for key, b := range f.balances {
		if key[0] == periodID {
			all = append(all, b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AccountID < all[j].AccountID })
	return all, nil
}

func (f *fakeStore) ListBalancesForAccount(_ context.Context, accountID int64) ([]core.Balance, error) {
	var all []core.Balance
	for key, b := range f.balances {
		if key[1] == accountID {
			all = append(all, b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PeriodID > all[j].PeriodID })
	return all, nil
}

func (f *fakeStore) LastBalanceEntry(_ context.Context) (time.Time, error) {
	var last time.Time
	for _, b := range f.balances {
		if b.UpdatedAt.After(last) {
			last = b.UpdatedAt
		}
	}
	return last, nil
}
