package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// Ensure distributionRepo implements repository.DistributionRepository
var _ repository.DistributionRepository = (*distributionRepo)(nil)

type distributionRepo struct {
	pool *pgxpool.Pool
}

func NewDistributionRepo(pool *pgxpool.Pool) *distributionRepo {
	return &distributionRepo{pool: pool}
}

func (r *distributionRepo) Save(ctx context.Context, tx repository.Tx, d *model.CreditDistribution) error {
	const q = `
INSERT INTO credit_distributions (entity_id, app_area, pool)
VALUES ($1,$2,$3)
ON CONFLICT (entity_id, app_area) DO UPDATE SET pool=$3;`

	_, err := execSQL(ctx, r.pool, tx, q, d.EntityID, d.AppArea, d.Pool)
	return mapError(err)
}

func (r *distributionRepo) Find(ctx context.Context, tx repository.Tx, entityID string, area model.AppArea) (*model.CreditDistribution, error) {
	const q = `
SELECT entity_id, app_area, pool
  FROM credit_distributions
 WHERE entity_id=$1 AND app_area=$2;`
	return r.queryOne(ctx, tx, q, entityID, string(area))
}

// FindForUpdate locks the pool row until the enclosing transaction ends, so
// two concurrent charges cannot both read a stale pool value.
func (r *distributionRepo) FindForUpdate(ctx context.Context, tx repository.Tx, entityID string, area model.AppArea) (*model.CreditDistribution, error) {
	const q = `
SELECT entity_id, app_area, pool
  FROM credit_distributions
 WHERE entity_id=$1 AND app_area=$2
 FOR UPDATE;`
	return r.queryOne(ctx, tx, q, entityID, string(area))
}

func (r *distributionRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.CreditDistribution, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	d := &model.CreditDistribution{}
	var area string
	if err := row.Scan(&d.EntityID, &area, &d.Pool); err != nil {
		return nil, mapError(err)
	}
	d.AppArea = model.AppArea(area)
	return d, nil
}
