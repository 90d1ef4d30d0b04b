package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// Ensure actionRepo implements repository.CreditActionRepository
var _ repository.CreditActionRepository = (*actionRepo)(nil)

type actionRepo struct {
	pool *pgxpool.Pool
}

func NewActionRepo(pool *pgxpool.Pool) *actionRepo {
	return &actionRepo{pool: pool}
}

func (r *actionRepo) Save(ctx context.Context, tx repository.Tx, a *model.CreditAction) error {
	const q = `
INSERT INTO credit_actions (name, app_area, credit_required, interval_days, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (name) DO UPDATE SET
  app_area=$2, credit_required=$3, interval_days=$4;`

	_, err := execSQL(ctx, r.pool, tx, q, a.Name, a.AppArea, a.CreditRequired, a.IntervalDays, a.CreatedAt)
	return mapError(err)
}

func (r *actionRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.CreditAction, error) {
	const q = `
SELECT name, app_area, credit_required, interval_days, created_at
  FROM credit_actions
 WHERE name=$1;`

	row, err := pickRow(ctx, r.pool, tx, q, name)
	if err != nil {
		return nil, err
	}
	a := &model.CreditAction{}
	var area string
	if err := row.Scan(&a.Name, &area, &a.CreditRequired, &a.IntervalDays, &a.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	a.AppArea = model.AppArea(area)
	return a, nil
}

func (r *actionRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CreditAction, error) {
	const q = `
SELECT name, app_area, credit_required, interval_days, created_at
  FROM credit_actions
 ORDER BY name;`

	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*model.CreditAction
	for rows.Next() {
		a := &model.CreditAction{}
		var area string
		if err := rows.Scan(&a.Name, &area, &a.CreditRequired, &a.IntervalDays, &a.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		a.AppArea = model.AppArea(area)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
