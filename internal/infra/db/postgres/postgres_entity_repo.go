package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// Ensure entityRepo implements repository.EntityRepository
var _ repository.EntityRepository = (*entityRepo)(nil)

type entityRepo struct {
	pool *pgxpool.Pool
}

func NewEntityRepo(pool *pgxpool.Pool) *entityRepo {
	return &entityRepo{pool: pool}
}

func (r *entityRepo) Save(ctx context.Context, tx repository.Tx, e *model.Entity) error {
	const q = `
INSERT INTO entities (id, name, slug, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET name=$2, slug=$3;`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.Name, e.Slug, e.CreatedAt)
	return mapError(err)
}

func (r *entityRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Entity, error) {
	const q = `SELECT id, name, slug, created_at FROM entities WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *entityRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Entity, error) {
	const q = `SELECT id, name, slug, created_at FROM entities WHERE slug=$1;`
	return r.queryOne(ctx, tx, q, slug)
}

func (r *entityRepo) CountAll(ctx context.Context, tx repository.Tx) (int, error) {
	const q = `SELECT COUNT(*) FROM entities;`

	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func (r *entityRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Entity, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanEntity(row)
}

func scanEntity(row pgx.Row) (*model.Entity, error) {
	e := &model.Entity{}
	if err := row.Scan(&e.ID, &e.Name, &e.Slug, &e.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return e, nil
}
