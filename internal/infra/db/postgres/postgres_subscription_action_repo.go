package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// Ensure subscriptionActionRepo implements repository.SubscriptionActionRepository
var _ repository.SubscriptionActionRepository = (*subscriptionActionRepo)(nil)

type subscriptionActionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionActionRepo(pool *pgxpool.Pool) *subscriptionActionRepo {
	return &subscriptionActionRepo{pool: pool}
}

func (r *subscriptionActionRepo) Save(ctx context.Context, tx repository.Tx, sa *model.SubscriptionAction) error {
	const q = `
INSERT INTO subscription_actions (subscription_id, action_name, usage_count, max_count)
VALUES ($1,$2,$3,$4)
ON CONFLICT (subscription_id, action_name) DO UPDATE SET
  usage_count=$3, max_count=$4;`

	_, err := execSQL(ctx, r.pool, tx, q, sa.SubscriptionID, sa.ActionName, sa.UsageCount, sa.MaxCount)
	return mapError(err)
}

func (r *subscriptionActionRepo) Find(ctx context.Context, tx repository.Tx, subscriptionID, actionName string) (*model.SubscriptionAction, error) {
	const q = `
SELECT subscription_id, action_name, usage_count, max_count
  FROM subscription_actions
 WHERE subscription_id=$1 AND action_name=$2;`

	row, err := pickRow(ctx, r.pool, tx, q, subscriptionID, actionName)
	if err != nil {
		return nil, err
	}
	sa := &model.SubscriptionAction{}
	if err := row.Scan(&sa.SubscriptionID, &sa.ActionName, &sa.UsageCount, &sa.MaxCount); err != nil {
		return nil, mapError(err)
	}
	return sa, nil
}

// IncrementUsage bumps the counter guarded against the cap in the same
// statement, so the counter can never pass max_count.
func (r *subscriptionActionRepo) IncrementUsage(ctx context.Context, tx repository.Tx, subscriptionID, actionName string) error {
	const q = `
UPDATE subscription_actions
   SET usage_count = usage_count + 1
 WHERE subscription_id=$1 AND action_name=$2 AND usage_count < max_count;`

	tag, err := execSQL(ctx, r.pool, tx, q, subscriptionID, actionName)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOperationFailed
	}
	return nil
}
