package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// Ensure historyRepo implements repository.HistoryRepository
var _ repository.HistoryRepository = (*historyRepo)(nil)

// historyRepo is append-only: there is deliberately no update statement here.
type historyRepo struct {
	pool *pgxpool.Pool
}

func NewHistoryRepo(pool *pgxpool.Pool) *historyRepo {
	return &historyRepo{pool: pool}
}

func (r *historyRepo) Append(ctx context.Context, tx repository.Tx, h *model.CreditHistory) error {
	const q = `
INSERT INTO credit_history (id, entity_id, user_id, action_name, entry_type, amount, available_after, created_at, active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	_, err := execSQL(ctx, r.pool, tx, q,
		h.ID, h.EntityID, h.UserID, h.ActionName, h.EntryType, h.Amount, h.AvailableAfter, h.CreatedAt, h.Active)
	return mapError(err)
}

func (r *historyRepo) ListByEntity(ctx context.Context, tx repository.Tx, entityID string, limit int) ([]*model.CreditHistory, error) {
	const q = `
SELECT id, entity_id, user_id, action_name, entry_type, amount, available_after, created_at, active
  FROM credit_history
 WHERE entity_id=$1
 ORDER BY created_at DESC, id DESC
 LIMIT $2;`

	rows, err := queryRows(ctx, r.pool, tx, q, entityID, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*model.CreditHistory
	for rows.Next() {
		h := &model.CreditHistory{}
		var entryType string
		if err := rows.Scan(&h.ID, &h.EntityID, &h.UserID, &h.ActionName, &entryType, &h.Amount, &h.AvailableAfter, &h.CreatedAt, &h.Active); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		h.EntryType = model.EntryType(entryType)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *historyRepo) SumByType(ctx context.Context, tx repository.Tx, entityID string) (int64, int64, error) {
	const q = `
SELECT
  COALESCE(SUM(amount) FILTER (WHERE entry_type='credit'), 0),
  COALESCE(SUM(amount) FILTER (WHERE entry_type='debit'), 0)
  FROM credit_history
 WHERE entity_id=$1 AND active;`

	row, err := pickRow(ctx, r.pool, tx, q, entityID)
	if err != nil {
		return 0, 0, err
	}
	var credited, debited int64
	if err := row.Scan(&credited, &debited); err != nil {
		return 0, 0, domain.ErrReadDatabaseRow
	}
	return credited, debited, nil
}

func (r *historyRepo) CountByEntity(ctx context.Context, tx repository.Tx, entityID string) (int, error) {
	const q = `SELECT COUNT(*) FROM credit_history WHERE entity_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, entityID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
