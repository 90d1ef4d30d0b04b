package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.EntitySubscription) error {
	const q = `
INSERT INTO entity_subscriptions (id, entity_id, user_id, plan_id, start_date, end_date, active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  entity_id=$2, user_id=$3, plan_id=$4, start_date=$5, end_date=$6, active=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.EntityID, s.UserID, s.PlanID, s.StartDate, s.EndDate, s.Active, s.CreatedAt)
	return mapError(err)
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.EntitySubscription, error) {
	const q = `
SELECT id, entity_id, user_id, plan_id, start_date, end_date, active, created_at
  FROM entity_subscriptions
 WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *subscriptionRepo) FindActiveByEntity(ctx context.Context, tx repository.Tx, entityID string, onDate time.Time) (*model.EntitySubscription, error) {
	const q = `
SELECT id, entity_id, user_id, plan_id, start_date, end_date, active, created_at
  FROM entity_subscriptions
 WHERE entity_id=$1 AND active AND start_date <= $2 AND end_date >= $2
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, entityID, model.DateOf(onDate))
}

func (r *subscriptionRepo) ListByEntity(ctx context.Context, tx repository.Tx, entityID string) ([]*model.EntitySubscription, error) {
	const q = `
SELECT id, entity_id, user_id, plan_id, start_date, end_date, active, created_at
  FROM entity_subscriptions
 WHERE entity_id=$1
 ORDER BY created_at DESC;`
	return r.queryMany(ctx, tx, q, entityID)
}

func (r *subscriptionRepo) FindExpired(ctx context.Context, tx repository.Tx, asOf time.Time) ([]*model.EntitySubscription, error) {
	const q = `
SELECT id, entity_id, user_id, plan_id, start_date, end_date, active, created_at
  FROM entity_subscriptions
 WHERE active AND end_date < $1
 ORDER BY end_date ASC;`
	return r.queryMany(ctx, tx, q, model.DateOf(asOf))
}

func (r *subscriptionRepo) CountActiveByPlan(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	const q = `
SELECT plan_id, COUNT(*)
  FROM entity_subscriptions
 WHERE active
 GROUP BY plan_id;`

	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	m := make(map[string]int)
	for rows.Next() {
		var planID string
		var c int
		if err := rows.Scan(&planID, &c); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		m[planID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return m, nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.EntitySubscription, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	s := &model.EntitySubscription{}
	if err := row.Scan(&s.ID, &s.EntityID, &s.UserID, &s.PlanID, &s.StartDate, &s.EndDate, &s.Active, &s.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return s, nil
}

func (r *subscriptionRepo) queryMany(ctx context.Context, tx repository.Tx, sql string, args ...any) ([]*model.EntitySubscription, error) {
	rows, err := queryRows(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*model.EntitySubscription
	for rows.Next() {
		s := &model.EntitySubscription{}
		if err := rows.Scan(&s.ID, &s.EntityID, &s.UserID, &s.PlanID, &s.StartDate, &s.EndDate, &s.Active, &s.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
