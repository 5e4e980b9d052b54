package services

import (
	"context"
	"fmt"

	"coinpurse/internal/core"
)

// InstitutionStore is the storage surface the institution service needs.
type InstitutionStore interface {
	CreateInstitution(ctx context.Context, inst core.Institution) (core.Institution, error)
	GetInstitution(ctx context.Context, id int64) (core.Institution, error)
	ListInstitutions(ctx context.Context) ([]core.Institution, error)
	UpdateInstitution(ctx context.Context, inst core.Institution) error
	ListAccountsByInstitution(ctx context.Context, institutionID int64) ([]core.Account, error)
}

// InstitutionService manages the institutions accounts hang off of.
type InstitutionService struct {
	store InstitutionStore
}

func NewInstitutionService(store InstitutionStore) *InstitutionService {
	return &InstitutionService{store: store}
}

func (s *InstitutionService) Create(ctx context.Context, name string) (core.Institution, error) {
	inst := core.Institution{Name: name, IsActive: true}
	if err := inst.Validate(); err != nil {
		return core.Institution{}, err
	}
	return s.store.CreateInstitution(ctx, inst)
}

func (s *InstitutionService) Get(ctx context.Context, id int64) (core.Institution, error) {
	if id <= 0 {
		return core.Institution{}, core.ErrInvalidInstitution
	}
	return s.store.GetInstitution(ctx, id)
}

func (s *InstitutionService) List(ctx context.Context) ([]core.Institution, error) {
	return s.store.ListInstitutions(ctx)
}

func (s *InstitutionService) Rename(ctx context.Context, id int64, name string) (core.Institution, error) {
	inst, err := s.Get(ctx, id)
	if err != nil {
		return core.Institution{}, err
	}
	inst.Name = name
	if err := inst.Validate(); err != nil {
		return core.Institution{}, err
	}
	if err := s.store.UpdateInstitution(ctx, inst); err != nil {
		return core.Institution{}, fmt.Errorf("rename institution: %w", err)
	}
	return inst, nil
}

// Deactivate marks an institution inactive. Its accounts and their balances
// stay in place so history remains readable.
func (s *InstitutionService) Deactivate(ctx context.Context, id int64) (core.Institution, error) {
	inst, err := s.Get(ctx, id)
	if err != nil {
		return core.Institution{}, err
	}
	inst.IsActive = false
	if err := s.store.UpdateInstitution(ctx, inst); err != nil {
		return core.Institution{}, fmt.Errorf("deactivate institution: %w", err)
	}
	return inst, nil
}

// Accounts lists the accounts belonging to an institution.
func (s *InstitutionService) Accounts(ctx context.Context, id int64) ([]core.Account, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListAccountsByInstitution(ctx, id)
}
