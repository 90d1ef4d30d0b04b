//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"marketplace-billing/internal/config"
	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/repository"
	"marketplace-billing/internal/usecase"
)

// chargeUCTestDeps bundles the mocks a charge test needs.
type chargeUCTestDeps struct {
	actions  *MockActionRepo
	dists    *MockDistributionRepo
	balances *MockBalanceRepo
	history  *MockHistoryRepo
	tm       *MockTxManager
}

func testBilling() config.BillingConfig {
	return config.BillingConfig{
		DefaultAppArea:      "job",
		DefaultIntervalDays: 30,
		CreditPriceCents:    100,
		Currency:            "USD",
		FallbackTaxCountry:  "US",
	}
}

func newChargeUCDeps() *chargeUCTestDeps {
	return &chargeUCTestDeps{
		actions:  NewMockActionRepo(),
		dists:    NewMockDistributionRepo(),
		balances: NewMockBalanceRepo(),
		history:  NewMockHistoryRepo(),
		tm:       NewMockTxManager(),
	}
}

func (d *chargeUCTestDeps) uc() usecase.ChargeUseCase {
	return usecase.NewChargeUseCase(d.actions, d.dists, d.balances, d.history, d.tm, testBilling(), newTestLogger())
}

// seedEntity gives entity e a job-area pool and a balance of the same size.
func (d *chargeUCTestDeps) seedEntity(ctx context.Context, e string, credits int64) {
	d.dists.Save(ctx, nil, &model.CreditDistribution{EntityID: e, AppArea: model.AppAreaJob, Pool: credits})
	d.balances.Save(ctx, nil, &model.AvailableBalance{EntityID: e, Available: credits})
}

func (d *chargeUCTestDeps) seedAction(ctx context.Context, name string, credits int64) {
	d.actions.Save(ctx, nil, &model.CreditAction{
		Name: name, AppArea: model.AppAreaJob, CreditRequired: credits, IntervalDays: 30,
	})
}

func TestChargeUseCase_Charge(t *testing.T) {
	ctx := context.Background()

	t.Run("debits pool and balance and appends a ledger entry", func(t *testing.T) {
		deps := newChargeUCDeps()
		deps.seedAction(ctx, "create_job", 3)
		deps.seedEntity(ctx, "ent-1", 10)

		entry, err := deps.uc().Charge(ctx, "user-1", "ent-1", "create_job", 2)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if entry.EntryType != model.EntryDebit || entry.Amount != 6 {
			t.Errorf("expected debit of 6, got %s %d", entry.EntryType, entry.Amount)
		}
		if entry.AvailableAfter != 4 {
			t.Errorf("expected available_after 4, got %d", entry.AvailableAfter)
		}
		if entry.ActionName == nil || *entry.ActionName != "create_job" {
			t.Errorf("expected action name on the entry, got %v", entry.ActionName)
		}

		dist, _ := deps.dists.Find(ctx, nil, "ent-1", model.AppAreaJob)
		if dist.Pool != 4 {
			t.Errorf("expected pool 4 after charge, got %d", dist.Pool)
		}
		bal, _ := deps.balances.Find(ctx, nil, "ent-1")
		if bal.Available != 4 {
			t.Errorf("expected balance 4 after charge, got %d", bal.Available)
		}
		if len(deps.history.Entries) != 1 {
			t.Errorf("expected exactly one ledger entry, got %d", len(deps.history.Entries))
		}
	})

	t.Run("insufficient credits leaves all state untouched", func(t *testing.T) {
		deps := newChargeUCDeps()
		deps.seedAction(ctx, "create_job", 3)
		deps.seedEntity(ctx, "ent-1", 5)

		_, err := deps.uc().Charge(ctx, "user-1", "ent-1", "create_job", 2) // needs 6
		if !errors.Is(err, domain.ErrInsufficientCredits) {
			t.Fatalf("expected ErrInsufficientCredits, got: %v", err)
		}

		dist, _ := deps.dists.Find(ctx, nil, "ent-1", model.AppAreaJob)
		if dist.Pool != 5 {
			t.Errorf("expected pool unchanged at 5, got %d", dist.Pool)
		}
		bal, _ := deps.balances.Find(ctx, nil, "ent-1")
		if bal.Available != 5 {
			t.Errorf("expected balance unchanged at 5, got %d", bal.Available)
		}
		if len(deps.history.Entries) != 0 {
			t.Errorf("expected no ledger entries, got %d", len(deps.history.Entries))
		}
	})

	t.Run("balance can gate a charge the pool would allow", func(t *testing.T) {
		deps := newChargeUCDeps()
		deps.seedAction(ctx, "create_job", 3)
		deps.dists.Save(ctx, nil, &model.CreditDistribution{EntityID: "ent-1", AppArea: model.AppAreaJob, Pool: 100})
		deps.balances.Save(ctx, nil, &model.AvailableBalance{EntityID: "ent-1", Available: 2})

		_, err := deps.uc().Charge(ctx, "user-1", "ent-1", "create_job", 1)
		if !errors.Is(err, domain.ErrInsufficientCredits) {
			t.Errorf("expected ErrInsufficientCredits, got: %v", err)
		}
	})

	t.Run("unconfigured action", func(t *testing.T) {
		deps := newChargeUCDeps()
		deps.seedEntity(ctx, "ent-1", 10)

		_, err := deps.uc().Charge(ctx, "user-1", "ent-1", "no_such_action", 1)
		if !errors.Is(err, domain.ErrActionNotFound) {
			t.Errorf("expected ErrActionNotFound, got: %v", err)
		}
	})

	t.Run("missing pool", func(t *testing.T) {
		deps := newChargeUCDeps()
		deps.seedAction(ctx, "create_job", 3)
		deps.balances.Save(ctx, nil, &model.AvailableBalance{EntityID: "ent-1", Available: 10})

		_, err := deps.uc().Charge(ctx, "user-1", "ent-1", "create_job", 1)
		if !errors.Is(err, domain.ErrNoCreditPool) {
			t.Errorf("expected ErrNoCreditPool, got: %v", err)
		}
	})

	t.Run("missing balance", func(t *testing.T) {
		deps := newChargeUCDeps()
		deps.seedAction(ctx, "create_job", 3)
		deps.dists.Save(ctx, nil, &model.CreditDistribution{EntityID: "ent-1", AppArea: model.AppAreaJob, Pool: 10})

		_, err := deps.uc().Charge(ctx, "user-1", "ent-1", "create_job", 1)
		if !errors.Is(err, domain.ErrNoBalance) {
			t.Errorf("expected ErrNoBalance, got: %v", err)
		}
	})

	t.Run("rejects non-positive interval counts", func(t *testing.T) {
		deps := newChargeUCDeps()
		_, err := deps.uc().Charge(ctx, "user-1", "ent-1", "create_job", 0)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got: %v", err)
		}
	})
}

func TestChargeUseCase_TopUp(t *testing.T) {
	ctx := context.Background()

	t.Run("first top-up creates the balance and default pool", func(t *testing.T) {
		deps := newChargeUCDeps()

		entry, err := deps.uc().TopUp(ctx, "user-1", "ent-1", 25)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if entry.EntryType != model.EntryCredit || entry.Amount != 25 {
			t.Errorf("expected credit of 25, got %s %d", entry.EntryType, entry.Amount)
		}
		if entry.AvailableAfter != 25 {
			t.Errorf("expected available_after 25, got %d", entry.AvailableAfter)
		}
		if entry.ActionName != nil {
			t.Errorf("expected nil action name on a top-up, got %v", *entry.ActionName)
		}

		bal, err := deps.balances.Find(ctx, nil, "ent-1")
		if err != nil {
			t.Fatalf("expected balance row to exist: %v", err)
		}
		if bal.Available != 25 {
			t.Errorf("expected balance 25, got %d", bal.Available)
		}
		dist, err := deps.dists.Find(ctx, nil, "ent-1", model.AppAreaJob)
		if err != nil {
			t.Fatalf("expected default-area pool to exist: %v", err)
		}
		if dist.Pool != 25 {
			t.Errorf("expected pool 25, got %d", dist.Pool)
		}
	})

	t.Run("later top-ups accumulate", func(t *testing.T) {
		deps := newChargeUCDeps()
		uc := deps.uc()

		if _, err := uc.TopUp(ctx, "user-1", "ent-1", 10); err != nil {
			t.Fatalf("first top-up: %v", err)
		}
		entry, err := uc.TopUp(ctx, "user-1", "ent-1", 5)
		if err != nil {
			t.Fatalf("second top-up: %v", err)
		}
		if entry.AvailableAfter != 15 {
			t.Errorf("expected available_after 15, got %d", entry.AvailableAfter)
		}
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		deps := newChargeUCDeps()
		if _, err := deps.uc().TopUp(ctx, "user-1", "ent-1", 0); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got: %v", err)
		}
	})

	// Charges and top-ups against the same entity must take their row locks
	// in the same order, or two concurrent transactions can deadlock.
	t.Run("locks the pool before the balance, matching a charge", func(t *testing.T) {
		deps := newChargeUCDeps()
		deps.seedEntity(ctx, "ent-1", 10)
		deps.seedAction(ctx, "create_job", 2)

		var locks []string
		deps.dists.FindForUpdateFunc = func(ctx context.Context, tx repository.Tx, entityID string, area model.AppArea) (*model.CreditDistribution, error) {
			locks = append(locks, "distribution")
			return deps.dists.Find(ctx, tx, entityID, area)
		}
		deps.balances.FindForUpdateFunc = func(ctx context.Context, tx repository.Tx, entityID string) (*model.AvailableBalance, error) {
			locks = append(locks, "balance")
			return deps.balances.Find(ctx, tx, entityID)
		}

		uc := deps.uc()
		if _, err := uc.TopUp(ctx, "user-1", "ent-1", 5); err != nil {
			t.Fatalf("top-up: %v", err)
		}
		if _, err := uc.Charge(ctx, "user-1", "ent-1", "create_job", 1); err != nil {
			t.Fatalf("charge: %v", err)
		}

		want := []string{"distribution", "balance", "distribution", "balance"}
		if len(locks) != len(want) {
			t.Fatalf("expected lock sequence %v, got %v", want, locks)
		}
		for i := range want {
			if locks[i] != want[i] {
				t.Fatalf("expected lock sequence %v, got %v", want, locks)
			}
		}
	})
}

// The ledger must always balance: total credited equals total debited plus
// what remains available.
func TestChargeUseCase_Conservation(t *testing.T) {
	ctx := context.Background()
	deps := newChargeUCDeps()
	deps.seedAction(ctx, "create_job", 2)
	uc := deps.uc()

	if _, err := uc.TopUp(ctx, "user-1", "ent-1", 20); err != nil {
		t.Fatalf("top-up: %v", err)
	}
	if _, err := uc.Charge(ctx, "user-1", "ent-1", "create_job", 3); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if _, err := uc.TopUp(ctx, "user-2", "ent-1", 7); err != nil {
		t.Fatalf("top-up: %v", err)
	}
	if _, err := uc.Charge(ctx, "user-2", "ent-1", "create_job", 1); err != nil {
		t.Fatalf("charge: %v", err)
	}
	// A rejected charge must not disturb the books.
	if _, err := uc.Charge(ctx, "user-2", "ent-1", "create_job", 100); !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got: %v", err)
	}

	credited, debited, err := deps.history.SumByType(ctx, nil, "ent-1")
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	bal, err := deps.balances.Find(ctx, nil, "ent-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if credited != debited+bal.Available {
		t.Errorf("conservation violated: credited=%d debited=%d available=%d", credited, debited, bal.Available)
	}
	if credited != 27 || debited != 8 || bal.Available != 19 {
		t.Errorf("unexpected totals: credited=%d debited=%d available=%d", credited, debited, bal.Available)
	}
}
