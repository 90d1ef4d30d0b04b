// File: internal/usecase/action_uc.go
package usecase

import (
	"context"

	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ ActionUseCase = (*actionUC)(nil)

// ActionUseCase manages the billable-action catalog.
type ActionUseCase interface {
	Define(ctx context.Context, name string, area model.AppArea, creditRequired int64, intervalDays int) (*model.CreditAction, error)
	Get(ctx context.Context, name string) (*model.CreditAction, error)
	List(ctx context.Context) ([]*model.CreditAction, error)
}

type actionUC struct {
	actions repository.CreditActionRepository
}

func NewActionUseCase(actions repository.CreditActionRepository) *actionUC {
	return &actionUC{actions: actions}
}

// Define upserts a catalog row. Redefining an action changes future charges
// only; ledger entries already written keep the amounts they were written with.
func (u *actionUC) Define(ctx context.Context, name string, area model.AppArea, creditRequired int64, intervalDays int) (*model.CreditAction, error) {
	a, err := model.NewCreditAction(name, area, creditRequired, intervalDays)
	if err != nil {
		return nil, err
	}
	if err := u.actions.Save(ctx, repository.NoTX, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (u *actionUC) Get(ctx context.Context, name string) (*model.CreditAction, error) {
	return u.actions.FindByName(ctx, repository.NoTX, name)
}

func (u *actionUC) List(ctx context.Context) ([]*model.CreditAction, error) {
	return u.actions.ListAll(ctx, repository.NoTX)
}
