// File: internal/usecase/stats_uc.go
package usecase

import (
	"context"
	"errors"

	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
)

// Overview aggregates service-wide figures for the admin panel.
type Overview struct {
	Entities         int            `json:"entities"`
	ActiveSubsByPlan map[string]int `json:"active_subscriptions_by_plan"`
}

// EntityBilling summarizes one entity's ledger. Credited always equals
// Debited plus Available.
type EntityBilling struct {
	EntityID    string `json:"entity_id"`
	Available   int64  `json:"available_credits"`
	Credited    int64  `json:"total_credited"`
	Debited     int64  `json:"total_debited"`
	LedgerCount int    `json:"ledger_entries"`
}

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	Overview(ctx context.Context) (*Overview, error)
	EntityBilling(ctx context.Context, entityID string) (*EntityBilling, error)
	Ledger(ctx context.Context, entityID string, limit int) ([]*model.CreditHistory, error)
}

type statsUC struct {
	entities repository.EntityRepository
	subs     repository.SubscriptionRepository
	balances repository.BalanceRepository
	history  repository.HistoryRepository
}

func NewStatsUseCase(
	entities repository.EntityRepository,
	subs repository.SubscriptionRepository,
	balances repository.BalanceRepository,
	history repository.HistoryRepository,
) *statsUC {
	return &statsUC{entities: entities, subs: subs, balances: balances, history: history}
}

func (u *statsUC) Overview(ctx context.Context) (*Overview, error) {
	n, err := u.entities.CountAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	byPlan, err := u.subs.CountActiveByPlan(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &Overview{Entities: n, ActiveSubsByPlan: byPlan}, nil
}

func (u *statsUC) EntityBilling(ctx context.Context, entityID string) (*EntityBilling, error) {
	out := &EntityBilling{EntityID: entityID}

	bal, err := u.balances.Find(ctx, repository.NoTX, entityID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if bal != nil && err == nil {
		out.Available = bal.Available
	}

	credited, debited, err := u.history.SumByType(ctx, repository.NoTX, entityID)
	if err != nil {
		return nil, err
	}
	out.Credited = credited
	out.Debited = debited

	count, err := u.history.CountByEntity(ctx, repository.NoTX, entityID)
	if err != nil {
		return nil, err
	}
	out.LedgerCount = count
	return out, nil
}

func (u *statsUC) Ledger(ctx context.Context, entityID string, limit int) ([]*model.CreditHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	return u.history.ListByEntity(ctx, repository.NoTX, entityID, limit)
}
