package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// Ensure permissionRepo implements repository.PermissionRepository
var _ repository.PermissionRepository = (*permissionRepo)(nil)

type permissionRepo struct {
	pool *pgxpool.Pool
}

func NewPermissionRepo(pool *pgxpool.Pool) *permissionRepo {
	return &permissionRepo{pool: pool}
}

func (r *permissionRepo) Grant(ctx context.Context, tx repository.Tx, entityID, userID string, cap model.Capability) error {
	const q = `
INSERT INTO entity_permissions (entity_id, user_id, capability)
VALUES ($1,$2,$3)
ON CONFLICT (entity_id, user_id, capability) DO NOTHING;`

	_, err := execSQL(ctx, r.pool, tx, q, entityID, userID, string(cap))
	return mapError(err)
}

func (r *permissionRepo) Revoke(ctx context.Context, tx repository.Tx, entityID, userID string, cap model.Capability) error {
	const q = `
DELETE FROM entity_permissions
 WHERE entity_id=$1 AND user_id=$2 AND capability=$3;`

	_, err := execSQL(ctx, r.pool, tx, q, entityID, userID, string(cap))
	return mapError(err)
}

func (r *permissionRepo) Has(ctx context.Context, tx repository.Tx, entityID, userID string, cap model.Capability) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM entity_permissions
   WHERE entity_id=$1 AND user_id=$2 AND capability=$3
);`

	row, err := pickRow(ctx, r.pool, tx, q, entityID, userID, string(cap))
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, mapError(err)
	}
	return ok, nil
}

func (r *permissionRepo) ListByUser(ctx context.Context, tx repository.Tx, entityID, userID string) ([]model.Capability, error) {
	const q = `
SELECT capability FROM entity_permissions
 WHERE entity_id=$1 AND user_id=$2
 ORDER BY capability;`

	rows, err := queryRows(ctx, r.pool, tx, q, entityID, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.Capability
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, mapError(err)
		}
		out = append(out, model.Capability(c))
	}
	return out, mapError(rows.Err())
}
