package repository

import (
	"context"
	"time"

	"marketplace-billing/internal/domain/model"
)

// CreditActionRepository is the port for the billable-action catalog.
type CreditActionRepository interface {
	Save(ctx context.Context, tx Tx, a *model.CreditAction) error
	FindByName(ctx context.Context, tx Tx, name string) (*model.CreditAction, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.CreditAction, error)
}

// DistributionRepository manages per-(entity, area) credit pools.
type DistributionRepository interface {
	Save(ctx context.Context, tx Tx, d *model.CreditDistribution) error
	Find(ctx context.Context, tx Tx, entityID string, area model.AppArea) (*model.CreditDistribution, error)
	// FindForUpdate locks the pool row for the duration of the enclosing
	// transaction. Callers must pass a live tx handle.
	FindForUpdate(ctx context.Context, tx Tx, entityID string, area model.AppArea) (*model.CreditDistribution, error)
}

// BalanceRepository manages the single per-entity available-balance row.
type BalanceRepository interface {
	// Save upserts the balance row.
	Save(ctx context.Context, tx Tx, b *model.AvailableBalance) error
	Find(ctx context.Context, tx Tx, entityID string) (*model.AvailableBalance, error)
	FindForUpdate(ctx context.Context, tx Tx, entityID string) (*model.AvailableBalance, error)
}

// HistoryRepository is the append-only credit ledger.
type HistoryRepository interface {
	Append(ctx context.Context, tx Tx, h *model.CreditHistory) error
	ListByEntity(ctx context.Context, tx Tx, entityID string, limit int) ([]*model.CreditHistory, error)
	// SumByType returns the total credited and debited amounts for an entity,
	// used by the conservation check and admin stats.
	SumByType(ctx context.Context, tx Tx, entityID string) (credited int64, debited int64, err error)
	CountByEntity(ctx context.Context, tx Tx, entityID string) (int, error)
}

// TaxRepository maps countries to gateway tax percentages.
type TaxRepository interface {
	Save(ctx context.Context, tx Tx, t *model.CountryTax) error
	FindByCountry(ctx context.Context, tx Tx, country string) (*model.CountryTax, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.CountryTax, error)
}

// PaymentRepository stores gateway top-up bookkeeping rows.
type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByAuthority(ctx context.Context, tx Tx, authority string) (*model.Payment, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.PaymentStatus, refID *string, paidAt *time.Time) error
	// FindStalePending returns pending payments older than the cutoff, for the
	// reconciler worker.
	FindStalePending(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
}
