package repository

import (
	"context"
	"time"

	"marketplace-billing/internal/domain/model"
)

// PlanRepository is the port for subscription plans.
type PlanRepository interface {
	Save(ctx context.Context, tx Tx, p *model.SubscriptionPlan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SubscriptionPlan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.SubscriptionPlan, error)
	Delete(ctx context.Context, tx Tx, id string) error
}

// SubscriptionRepository is the port for entity subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.EntitySubscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.EntitySubscription, error)
	// FindActiveByEntity returns the subscription whose window contains onDate
	// and whose active flag is set, or ErrNotFound.
	FindActiveByEntity(ctx context.Context, tx Tx, entityID string, onDate time.Time) (*model.EntitySubscription, error)
	ListByEntity(ctx context.Context, tx Tx, entityID string) ([]*model.EntitySubscription, error)
	// FindExpired returns active subscriptions whose end date passed before asOf.
	FindExpired(ctx context.Context, tx Tx, asOf time.Time) ([]*model.EntitySubscription, error)
	CountActiveByPlan(ctx context.Context, tx Tx) (map[string]int, error)
}

// SubscriptionActionRepository tracks per-(subscription, action) usage counters.
type SubscriptionActionRepository interface {
	Save(ctx context.Context, tx Tx, sa *model.SubscriptionAction) error
	Find(ctx context.Context, tx Tx, subscriptionID, actionName string) (*model.SubscriptionAction, error)
	// IncrementUsage bumps the counter by one; it never pushes the counter past
	// the cap and reports ErrOperationFailed if it would.
	IncrementUsage(ctx context.Context, tx Tx, subscriptionID, actionName string) error
}
