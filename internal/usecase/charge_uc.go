// File: internal/usecase/charge_uc.go
package usecase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"marketplace-billing/internal/config"
	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
	"marketplace-billing/internal/infra/metrics"
)

// Compile-time check
var _ ChargeUseCase = (*chargeUC)(nil)

// ChargeUseCase is the single unit of work that moves credits. Charge debits
// an entity's area pool and balance; TopUp is the landing point for
// payment-gateway callbacks and admin grants, crediting the balance and the
// default-area pool.
//
// The Tx variants run inside a caller-provided transaction so the
// reconciliation path can commit its usage-counter update and the charge
// atomically. The plain variants open their own transaction.
type ChargeUseCase interface {
	Charge(ctx context.Context, userID, entityID, actionName string, intervals int) (*model.CreditHistory, error)
	ChargeTx(ctx context.Context, tx repository.Tx, userID, entityID, actionName string, intervals int) (*model.CreditHistory, error)
	TopUp(ctx context.Context, userID, entityID string, credits int64) (*model.CreditHistory, error)
	TopUpTx(ctx context.Context, tx repository.Tx, userID, entityID string, credits int64) (*model.CreditHistory, error)
}

type chargeUC struct {
	actions     repository.CreditActionRepository
	dists       repository.DistributionRepository
	balances    repository.BalanceRepository
	history     repository.HistoryRepository
	tm          repository.TransactionManager
	defaultArea model.AppArea
	log         *zerolog.Logger
}

func NewChargeUseCase(
	actions repository.CreditActionRepository,
	dists repository.DistributionRepository,
	balances repository.BalanceRepository,
	history repository.HistoryRepository,
	tm repository.TransactionManager,
	billing config.BillingConfig,
	logger *zerolog.Logger,
) *chargeUC {
	l := logger.With().Str("component", "ChargeUC").Logger()
	return &chargeUC{
		actions:     actions,
		dists:       dists,
		balances:    balances,
		history:     history,
		tm:          tm,
		defaultArea: model.AppArea(billing.DefaultAppArea),
		log:         &l,
	}
}

func (u *chargeUC) Charge(ctx context.Context, userID, entityID, actionName string, intervals int) (*model.CreditHistory, error) {
	var out *model.CreditHistory
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = u.ChargeTx(ctx, tx, userID, entityID, actionName, intervals)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *chargeUC) ChargeTx(ctx context.Context, tx repository.Tx, userID, entityID, actionName string, intervals int) (*model.CreditHistory, error) {
	if entityID == "" || actionName == "" || intervals <= 0 {
		return nil, domain.ErrInvalidArgument
	}

	action, err := u.actions.FindByName(ctx, tx, actionName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.log.Error().Str("action", actionName).Msg("charge for unconfigured action")
			return nil, domain.ErrActionNotFound
		}
		return nil, err
	}
	required := action.CreditRequired * int64(intervals)

	// Lock order is fixed (distribution, then balance) so concurrent charges
	// against the same entity serialize instead of deadlocking.
	dist, err := u.dists.FindForUpdate(ctx, tx, entityID, action.AppArea)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoCreditPool
		}
		return nil, err
	}
	bal, err := u.balances.FindForUpdate(ctx, tx, entityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoBalance
		}
		return nil, err
	}

	if dist.Pool < required || bal.Available < required {
		metrics.IncCharge(string(action.AppArea), "insufficient")
		u.log.Warn().
			Str("entity_id", entityID).
			Str("action", actionName).
			Int64("required", required).
			Int64("pool", dist.Pool).
			Int64("available", bal.Available).
			Msg("charge rejected")
		return nil, domain.ErrInsufficientCredits
	}

	name := action.Name
	entry, err := model.NewCreditHistory(
		ulid.Make().String(), entityID, userID, &name,
		model.EntryDebit, required, bal.Available-required,
	)
	if err != nil {
		return nil, err
	}
	if err := u.history.Append(ctx, tx, entry); err != nil {
		return nil, err
	}

	dist.Pool -= required
	bal.Available -= required
	if err := u.dists.Save(ctx, tx, dist); err != nil {
		return nil, err
	}
	if err := u.balances.Save(ctx, tx, bal); err != nil {
		return nil, err
	}

	metrics.IncCharge(string(action.AppArea), "ok")
	metrics.AddCreditsDebited(string(action.AppArea), required)
	u.log.Info().
		Str("entity_id", entityID).
		Str("action", actionName).
		Int("intervals", intervals).
		Int64("debited", required).
		Int64("available_after", entry.AvailableAfter).
		Msg("charge applied")
	return entry, nil
}

func (u *chargeUC) TopUp(ctx context.Context, userID, entityID string, credits int64) (*model.CreditHistory, error) {
	var out *model.CreditHistory
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = u.TopUpTx(ctx, tx, userID, entityID, credits)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *chargeUC) TopUpTx(ctx context.Context, tx repository.Tx, userID, entityID string, credits int64) (*model.CreditHistory, error) {
	if entityID == "" || credits <= 0 {
		return nil, domain.ErrInvalidArgument
	}

	// Same lock order as ChargeTx (distribution, then balance). The first
	// top-up creates both rows.
	dist, err := u.dists.FindForUpdate(ctx, tx, entityID, u.defaultArea)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		dist = &model.CreditDistribution{EntityID: entityID, AppArea: u.defaultArea}
	}

	bal, err := u.balances.FindForUpdate(ctx, tx, entityID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		bal = &model.AvailableBalance{EntityID: entityID}
	}

	entry, err := model.NewCreditHistory(
		ulid.Make().String(), entityID, userID, nil,
		model.EntryCredit, credits, bal.Available+credits,
	)
	if err != nil {
		return nil, err
	}
	if err := u.history.Append(ctx, tx, entry); err != nil {
		return nil, err
	}

	bal.Available += credits
	dist.Pool += credits
	if err := u.dists.Save(ctx, tx, dist); err != nil {
		return nil, err
	}
	if err := u.balances.Save(ctx, tx, bal); err != nil {
		return nil, err
	}

	metrics.AddCreditsGranted(string(u.defaultArea), credits)
	u.log.Info().
		Str("entity_id", entityID).
		Int64("credited", credits).
		Int64("available_after", entry.AvailableAfter).
		Msg("top-up applied")
	return entry, nil
}
