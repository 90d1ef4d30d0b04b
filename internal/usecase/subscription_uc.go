// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
	"marketplace-billing/internal/infra/metrics"
)

// Coverage names the reconciliation outcome for a committed date range.
type Coverage string

const (
	CoverageNone     Coverage = "none"     // no active subscription, full charge
	CoverageFull     Coverage = "full"     // window covers the range, usage counted
	CoverageOverflow Coverage = "overflow" // overflow portion charged, usage counted
	CoverageFallback Coverage = "fallback" // cap reached or start uncovered, full charge
)

// ChargeOutcome reports what reconciliation decided and charged.
type ChargeOutcome struct {
	Coverage  Coverage
	Intervals int
	Charged   int64
	Entry     *model.CreditHistory // nil when no credits moved
}

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase reconciles billable date ranges against an entity's
// active subscription and delegates any resulting charge to the executor.
// Deciding and charging share one transaction: a failed charge aborts the
// usage-counter update along with the caller's item save.
type SubscriptionUseCase interface {
	ChargeForRange(ctx context.Context, userID, entityID, actionName string, start, end time.Time) (*ChargeOutcome, error)
	ChargeForRangeChange(ctx context.Context, userID, entityID, actionName string, oldStart, oldEnd, newStart, newEnd time.Time) (*ChargeOutcome, error)
	Assign(ctx context.Context, entityID, userID, planID string, start time.Time, actionCaps map[string]int) (*model.EntitySubscription, error)
	FinishExpired(ctx context.Context) (int, error)
	ListByEntity(ctx context.Context, entityID string) ([]*model.EntitySubscription, error)
}

type subscriptionUC struct {
	subs       repository.SubscriptionRepository
	subActions repository.SubscriptionActionRepository
	plans      repository.PlanRepository
	actions    repository.CreditActionRepository
	calc       *IntervalCalculator
	charger    ChargeUseCase
	tm         repository.TransactionManager
	log        *zerolog.Logger
	now        func() time.Time
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	subActions repository.SubscriptionActionRepository,
	plans repository.PlanRepository,
	actions repository.CreditActionRepository,
	calc *IntervalCalculator,
	charger ChargeUseCase,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{
		subs:       subs,
		subActions: subActions,
		plans:      plans,
		actions:    actions,
		calc:       calc,
		charger:    charger,
		tm:         tm,
		log:        &l,
		now:        time.Now,
	}
}

// ChargeForRange evaluates the coverage state once, at commit time, and
// applies exactly one of: no charge (covered), an overflow charge, or a full
// interval charge.
func (uc *subscriptionUC) ChargeForRange(ctx context.Context, userID, entityID, actionName string, start, end time.Time) (*ChargeOutcome, error) {
	if err := uc.calc.ValidateRange(start, end); err != nil {
		return nil, err
	}

	var out *ChargeOutcome
	err := uc.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = uc.reconcile(ctx, tx, userID, entityID, actionName, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.IncReconciliation(string(out.Coverage))
	return out, nil
}

func (uc *subscriptionUC) reconcile(ctx context.Context, tx repository.Tx, userID, entityID, actionName string, start, end time.Time) (*ChargeOutcome, error) {
	start, end = model.DateOf(start), model.DateOf(end)

	sub, err := uc.subs.FindActiveByEntity(ctx, tx, entityID, uc.now())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if sub == nil || errors.Is(err, domain.ErrNotFound) {
		// NoActiveSubscription: full interval charge.
		return uc.fullCharge(ctx, tx, userID, entityID, actionName, start, end, CoverageNone)
	}

	usage, err := uc.subActions.Find(ctx, tx, sub.ID, actionName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Action not part of the subscription: treat as uncovered.
			return uc.fullCharge(ctx, tx, userID, entityID, actionName, start, end, CoverageFallback)
		}
		return nil, err
	}

	if usage.CapReached() || !sub.CoversDate(start) {
		// CapExceededOrUncovered: full charge, usage untouched.
		return uc.fullCharge(ctx, tx, userID, entityID, actionName, start, end, CoverageFallback)
	}

	if !end.After(model.DateOf(sub.EndDate)) {
		// CoveredFully: count usage, move no credits.
		if err := uc.subActions.IncrementUsage(ctx, tx, sub.ID, actionName); err != nil {
			return nil, err
		}
		uc.log.Info().
			Str("entity_id", entityID).
			Str("action", actionName).
			Str("subscription_id", sub.ID).
			Msg("range covered by subscription")
		return &ChargeOutcome{Coverage: CoverageFull}, nil
	}

	// CoveredWithOverflow: credits pay for the days past the window only.
	// end > sub.EndDate at day granularity guarantees overflowStart <= end.
	overflowStart := model.DateOf(sub.EndDate).AddDate(0, 0, 1)
	action, err := uc.findAction(ctx, tx, actionName)
	if err != nil {
		return nil, err
	}
	n, err := uc.calc.IntervalsFor(overflowStart, end, action)
	if err != nil {
		return nil, err
	}
	entry, err := uc.charger.ChargeTx(ctx, tx, userID, entityID, actionName, n)
	if err != nil {
		return nil, err
	}
	if err := uc.subActions.IncrementUsage(ctx, tx, sub.ID, actionName); err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("entity_id", entityID).
		Str("action", actionName).
		Str("subscription_id", sub.ID).
		Int("overflow_intervals", n).
		Msg("overflow charged beyond subscription window")
	return &ChargeOutcome{Coverage: CoverageOverflow, Intervals: n, Charged: entry.Amount, Entry: entry}, nil
}

func (uc *subscriptionUC) fullCharge(ctx context.Context, tx repository.Tx, userID, entityID, actionName string, start, end time.Time, cov Coverage) (*ChargeOutcome, error) {
	action, err := uc.findAction(ctx, tx, actionName)
	if err != nil {
		return nil, err
	}
	n, err := uc.calc.IntervalsFor(start, end, action)
	if err != nil {
		return nil, err
	}
	entry, err := uc.charger.ChargeTx(ctx, tx, userID, entityID, actionName, n)
	if err != nil {
		return nil, err
	}
	return &ChargeOutcome{Coverage: cov, Intervals: n, Charged: entry.Amount, Entry: entry}, nil
}

func (uc *subscriptionUC) findAction(ctx context.Context, tx repository.Tx, name string) (*model.CreditAction, error) {
	a, err := uc.actions.FindByName(ctx, tx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrActionNotFound
		}
		return nil, err
	}
	return a, nil
}

// ChargeForRangeChange applies the one-directional edit policy: growth is
// charged for the interval delta, shrinkage is never refunded. A new range
// still fully covered by the active subscription moves no credits.
func (uc *subscriptionUC) ChargeForRangeChange(ctx context.Context, userID, entityID, actionName string, oldStart, oldEnd, newStart, newEnd time.Time) (*ChargeOutcome, error) {
	newStart, newEnd = model.DateOf(newStart), model.DateOf(newEnd)
	if newEnd.Before(newStart) {
		return nil, domain.ErrInvalidRange
	}

	var out *ChargeOutcome
	err := uc.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		action, err := uc.findAction(ctx, tx, actionName)
		if err != nil {
			return err
		}
		delta, err := uc.calc.DeltaIntervals(oldStart, oldEnd, newStart, newEnd, action)
		if err != nil {
			return err
		}
		if delta == 0 {
			out = &ChargeOutcome{Coverage: CoverageFull}
			return nil
		}

		sub, err := uc.subs.FindActiveByEntity(ctx, tx, entityID, uc.now())
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if sub != nil && err == nil && sub.CoversRange(newStart, newEnd) {
			out = &ChargeOutcome{Coverage: CoverageFull}
			return nil
		}

		entry, err := uc.charger.ChargeTx(ctx, tx, userID, entityID, actionName, delta)
		if err != nil {
			return err
		}
		out = &ChargeOutcome{Coverage: CoverageNone, Intervals: delta, Charged: entry.Amount, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Assign creates a subscription for an entity from a plan, together with the
// per-action usage caps. One active subscription per entity is enforced here.
func (uc *subscriptionUC) Assign(ctx context.Context, entityID, userID, planID string, start time.Time, actionCaps map[string]int) (*model.EntitySubscription, error) {
	plan, err := uc.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, err
	}

	var sub *model.EntitySubscription
	err = uc.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		existing, err := uc.subs.FindActiveByEntity(ctx, tx, entityID, uc.now())
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil && err == nil {
			return domain.ErrSubscriptionExists
		}

		sub, err = model.NewEntitySubscription(uuid.NewString(), entityID, userID, plan, start)
		if err != nil {
			return err
		}
		if err := uc.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		for name, limit := range actionCaps {
			sa := &model.SubscriptionAction{SubscriptionID: sub.ID, ActionName: name, MaxCount: limit}
			if err := uc.subActions.Save(ctx, tx, sa); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncSubscriptionAssigned()
	uc.log.Info().
		Str("entity_id", entityID).
		Str("plan_id", planID).
		Str("subscription_id", sub.ID).
		Time("start", sub.StartDate).
		Time("end", sub.EndDate).
		Msg("subscription assigned")
	return sub, nil
}

// FinishExpired deactivates subscriptions whose window has passed. Driven by
// the expiry worker.
func (uc *subscriptionUC) FinishExpired(ctx context.Context) (int, error) {
	expired, err := uc.subs.FindExpired(ctx, repository.NoTX, uc.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	count := 0
	for _, s := range expired {
		s.Active = false
		if err := uc.subs.Save(ctx, repository.NoTX, s); err != nil {
			uc.log.Error().Err(err).Str("subscription_id", s.ID).Msg("failed to finish expired subscription")
			continue
		}
		count++
	}
	if count > 0 {
		metrics.IncSubscriptionsExpired(count)
	}
	return count, nil
}

func (uc *subscriptionUC) ListByEntity(ctx context.Context, entityID string) ([]*model.EntitySubscription, error) {
	return uc.subs.ListByEntity(ctx, repository.NoTX, entityID)
}
