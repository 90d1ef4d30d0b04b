package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// Ensure paymentRepo implements repository.PaymentRepository
var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, entity_id, user_id, provider, credits, amount_cents, currency,
tax_percent, authority, status, ref_id, created_at, updated_at, paid_at, callback, description`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (id, entity_id, user_id, provider, credits, amount_cents, currency,
                      tax_percent, authority, status, ref_id, created_at, updated_at,
                      paid_at, callback, description)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (id) DO UPDATE SET
  status=$10, ref_id=$11, updated_at=$13, paid_at=$14;`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.EntityID, p.UserID, p.Provider, p.Credits, p.AmountCents, p.Currency,
		p.TaxPercent, p.Authority, string(p.Status), p.RefID, p.CreatedAt, p.UpdatedAt,
		p.PaidAt, p.Callback, p.Description)
	return mapError(err)
}

func (r *paymentRepo) FindByAuthority(ctx context.Context, tx repository.Tx, authority string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE authority=$1;`

	row, err := pickRow(ctx, r.pool, tx, q, authority)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, refID *string, paidAt *time.Time) error {
	const q = `
UPDATE payments
   SET status=$2, ref_id=COALESCE($3, ref_id), paid_at=COALESCE($4, paid_at), updated_at=NOW()
 WHERE id=$1;`

	_, err := execSQL(ctx, r.pool, tx, q, id, string(status), refID, paidAt)
	return mapError(err)
}

func (r *paymentRepo) FindStalePending(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	q := `
SELECT ` + paymentColumns + `
  FROM payments
 WHERE status='pending' AND created_at < $1
 ORDER BY created_at
 LIMIT $2;`

	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapError(rows.Err())
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	var status string
	if err := row.Scan(&p.ID, &p.EntityID, &p.UserID, &p.Provider, &p.Credits, &p.AmountCents,
		&p.Currency, &p.TaxPercent, &p.Authority, &status, &p.RefID, &p.CreatedAt,
		&p.UpdatedAt, &p.PaidAt, &p.Callback, &p.Description); err != nil {
		return nil, mapError(err)
	}
	p.Status = model.PaymentStatus(status)
	return p, nil
}
