package services

import (
	"context"
	"fmt"

	"coinpurse/internal/core"
)

// AccountStore is the storage surface the account service needs.
type AccountStore interface {
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	ListAccounts(ctx context.Context, activeOnly bool) ([]core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) error
	GetInstitution(ctx context.Context, id int64) (core.Institution, error)
}

// AccountService manages accounts within institutions.
type AccountService struct {
	store AccountStore
}

func NewAccountService(store AccountStore) *AccountService {
	return &AccountService{store: store}
}

func (s *AccountService) Create(ctx context.Context, a core.Account) (core.Account, error) {
	a.IsActive = true
	if a.TaxTreatment == "" {
		a.TaxTreatment = core.TaxStandard
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if _, err := s.store.GetInstitution(ctx, a.InstitutionID); err != nil {
		return core.Account{}, fmt.Errorf("resolve institution %d: %w", a.InstitutionID, err)
	}
	return s.store.CreateAccount(ctx, a)
}

func (s *AccountService) Get(ctx context.Context, id int64) (core.Account, error) {
	if id <= 0 {
		return core.Account{}, core.ErrInvalidAccountID
	}
	return s.store.GetAccount(ctx, id)
}

func (s *AccountService) List(ctx context.Context, activeOnly bool) ([]core.Account, error) {
	return s.store.ListAccounts(ctx, activeOnly)
}

func (s *AccountService) Update(ctx context.Context, a core.Account) (core.Account, error) {
	existing, err := s.Get(ctx, a.ID)
	if err != nil {
		return core.Account{}, err
	}
	existing.Name = a.Name
	existing.TaxTreatment = a.TaxTreatment
	if a.InstitutionID != 0 {
		existing.InstitutionID = a.InstitutionID
	}
	if err := existing.Validate(); err != nil {
		return core.Account{}, err
	}
	if err := s.store.UpdateAccount(ctx, existing); err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	return existing, nil
}

// Deactivate excludes an account from checkup prompts without touching its
// recorded balances.
func (s *AccountService) Deactivate(ctx context.Context, id int64) (core.Account, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return core.Account{}, err
	}
	a.IsActive = false
	if err := s.store.UpdateAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("deactivate account: %w", err)
	}
	return a, nil
}
