package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// Ensure taxRepo implements repository.TaxRepository
var _ repository.TaxRepository = (*taxRepo)(nil)

type taxRepo struct {
	pool *pgxpool.Pool
}

func NewTaxRepo(pool *pgxpool.Pool) *taxRepo {
	return &taxRepo{pool: pool}
}

func (r *taxRepo) Save(ctx context.Context, tx repository.Tx, t *model.CountryTax) error {
	const q = `
INSERT INTO country_taxes (country, percent)
VALUES ($1,$2)
ON CONFLICT (country) DO UPDATE SET percent=$2;`

	_, err := execSQL(ctx, r.pool, tx, q, t.Country, t.Percent)
	return mapError(err)
}

func (r *taxRepo) FindByCountry(ctx context.Context, tx repository.Tx, country string) (*model.CountryTax, error) {
	const q = `SELECT country, percent FROM country_taxes WHERE country=$1;`

	row, err := pickRow(ctx, r.pool, tx, q, country)
	if err != nil {
		return nil, err
	}
	t := &model.CountryTax{}
	if err := row.Scan(&t.Country, &t.Percent); err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

func (r *taxRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CountryTax, error) {
	const q = `SELECT country, percent FROM country_taxes ORDER BY country;`

	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []*model.CountryTax
	for rows.Next() {
		t := &model.CountryTax{}
		if err := rows.Scan(&t.Country, &t.Percent); err != nil {
			return nil, mapError(err)
		}
		out = append(out, t)
	}
	return out, mapError(rows.Err())
}
