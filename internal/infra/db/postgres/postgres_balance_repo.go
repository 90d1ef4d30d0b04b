package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// Ensure balanceRepo implements repository.BalanceRepository
var _ repository.BalanceRepository = (*balanceRepo)(nil)

type balanceRepo struct {
	pool *pgxpool.Pool
}

func NewBalanceRepo(pool *pgxpool.Pool) *balanceRepo {
	return &balanceRepo{pool: pool}
}

// Save upserts: the row is created on first top-up, updated in place after.
func (r *balanceRepo) Save(ctx context.Context, tx repository.Tx, b *model.AvailableBalance) error {
	const q = `
INSERT INTO available_balances (entity_id, available, updated_at)
VALUES ($1,$2,$3)
ON CONFLICT (entity_id) DO UPDATE SET available=$2, updated_at=$3;`

	_, err := execSQL(ctx, r.pool, tx, q, b.EntityID, b.Available, time.Now())
	return mapError(err)
}

func (r *balanceRepo) Find(ctx context.Context, tx repository.Tx, entityID string) (*model.AvailableBalance, error) {
	const q = `
SELECT entity_id, available, updated_at
  FROM available_balances
 WHERE entity_id=$1;`
	return r.queryOne(ctx, tx, q, entityID)
}

func (r *balanceRepo) FindForUpdate(ctx context.Context, tx repository.Tx, entityID string) (*model.AvailableBalance, error) {
	const q = `
SELECT entity_id, available, updated_at
  FROM available_balances
 WHERE entity_id=$1
 FOR UPDATE;`
	return r.queryOne(ctx, tx, q, entityID)
}

func (r *balanceRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.AvailableBalance, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	b := &model.AvailableBalance{}
	if err := row.Scan(&b.EntityID, &b.Available, &b.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return b, nil
}
