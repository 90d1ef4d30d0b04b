// File: internal/usecase/plan_uc.go
package usecase

import (
	"context"

	"github.com/google/uuid"

	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

type PlanUseCase interface {
	Create(ctx context.Context, name string, durationDays int, priceCents int64, currency string) (*model.SubscriptionPlan, error)
	List(ctx context.Context) ([]*model.SubscriptionPlan, error)
	Get(ctx context.Context, id string) (*model.SubscriptionPlan, error)
	Delete(ctx context.Context, id string) error
}

type planUC struct {
	plans repository.PlanRepository
}

func NewPlanUseCase(plans repository.PlanRepository) *planUC {
	return &planUC{plans: plans}
}

func (u *planUC) Create(ctx context.Context, name string, durationDays int, priceCents int64, currency string) (*model.SubscriptionPlan, error) {
	p, err := model.NewSubscriptionPlan(uuid.NewString(), name, durationDays, priceCents, currency)
	if err != nil {
		return nil, err
	}
	if err := u.plans.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (u *planUC) List(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	return u.plans.ListAll(ctx, repository.NoTX)
}

func (u *planUC) Get(ctx context.Context, id string) (*model.SubscriptionPlan, error) {
	return u.plans.FindByID(ctx, repository.NoTX, id)
}

func (u *planUC) Delete(ctx context.Context, id string) error {
	return u.plans.Delete(ctx, repository.NoTX, id)
}
