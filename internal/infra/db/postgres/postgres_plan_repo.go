package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// Ensure planRepo implements repository.PlanRepository
var _ repository.PlanRepository = (*planRepo)(nil)

type planRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error {
	const q = `
INSERT INTO subscription_plans (id, name, duration_days, price_cents, currency, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  name=$2, duration_days=$3, price_cents=$4, currency=$5;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.DurationDays, p.PriceCents, p.Currency, p.CreatedAt)
	return mapError(err)
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	const q = `
SELECT id, name, duration_days, price_cents, currency, created_at
  FROM subscription_plans
 WHERE id=$1;`

	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p := &model.SubscriptionPlan{}
	if err := row.Scan(&p.ID, &p.Name, &p.DurationDays, &p.PriceCents, &p.Currency, &p.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

func (r *planRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	const q = `
SELECT id, name, duration_days, price_cents, currency, created_at
  FROM subscription_plans
 ORDER BY created_at;`

	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*model.SubscriptionPlan
	for rows.Next() {
		p := &model.SubscriptionPlan{}
		if err := rows.Scan(&p.ID, &p.Name, &p.DurationDays, &p.PriceCents, &p.Currency, &p.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *planRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `DELETE FROM subscription_plans WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id)
	return mapError(err)
}
