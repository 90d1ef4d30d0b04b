// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"marketplace-billing/internal/config"
	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
	"marketplace-billing/internal/domain/ports/adapter"
	"marketplace-billing/internal/domain/ports/repository"
	"marketplace-billing/internal/infra/metrics"
)

// Locker guards payment confirmation against concurrent gateway callbacks.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// PaymentUseCase drives the credit purchase path: Initiate prices a credit
// bundle (tax-inclusive, per the purchaser's country), opens a gateway
// intent, and records a pending payment; Confirm verifies the intent and
// lands the credits through the charge executor's top-up path.
type PaymentUseCase interface {
	Initiate(ctx context.Context, entityID, userID string, credits int64, country, description string) (*model.Payment, string, error)
	Confirm(ctx context.Context, authority string, expectedAmount int64) (*model.Payment, error)
	ConfirmAuto(ctx context.Context, authority string) (*model.Payment, error)
	ReconcileStale(ctx context.Context, olderThan time.Time, limit int) (int, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	taxes    repository.TaxRepository
	gateway  adapter.PaymentGateway
	charger  ChargeUseCase
	locker   Locker
	billing  config.BillingConfig
	callback string
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	taxes repository.TaxRepository,
	gateway adapter.PaymentGateway,
	charger ChargeUseCase,
	locker Locker,
	billing config.BillingConfig,
	callbackURL string,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		payments: payments,
		taxes:    taxes,
		gateway:  gateway,
		charger:  charger,
		locker:   locker,
		billing:  billing,
		callback: callbackURL,
		log:      &l,
	}
}

func (u *paymentUC) Initiate(ctx context.Context, entityID, userID string, credits int64, country, description string) (*model.Payment, string, error) {
	if entityID == "" || credits <= 0 {
		return nil, "", domain.ErrInvalidArgument
	}

	net := credits * u.billing.CreditPriceCents
	tax, err := u.taxForCountry(ctx, country)
	if err != nil {
		return nil, "", err
	}
	gross := tax.Apply(net)

	meta := map[string]interface{}{"entity_id": entityID, "credits": credits}
	authority, payURL, err := u.gateway.RequestPayment(ctx, gross, u.billing.Currency, description, u.callback, meta)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	p := &model.Payment{
		ID:          uuid.NewString(),
		EntityID:    entityID,
		UserID:      userID,
		Provider:    u.gateway.Name(),
		Credits:     credits,
		AmountCents: gross,
		Currency:    u.billing.Currency,
		TaxPercent:  tax.Percent,
		Authority:   authority,
		Status:      model.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		Callback:    u.callback,
		Description: description,
	}
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, "", err
	}
	metrics.IncPayment("initiated")
	u.log.Info().
		Str("payment_id", p.ID).
		Str("entity_id", entityID).
		Int64("credits", credits).
		Int64("amount_cents", gross).
		Float64("tax_percent", tax.Percent).
		Msg("payment initiated")
	return p, payURL, nil
}

// taxForCountry falls back to the configured default country, and to a zero
// rate when even that is unconfigured.
func (u *paymentUC) taxForCountry(ctx context.Context, country string) (*model.CountryTax, error) {
	if country != "" {
		t, err := u.taxes.FindByCountry(ctx, repository.NoTX, country)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	t, err := u.taxes.FindByCountry(ctx, repository.NoTX, u.billing.FallbackTaxCountry)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &model.CountryTax{Country: u.billing.FallbackTaxCountry, Percent: 0}, nil
		}
		return nil, err
	}
	return t, nil
}

// Confirm verifies a payment with the gateway and, on success, lands the
// purchased credits. A redis lock keyed by authority makes double callbacks
// harmless; a second call on a succeeded payment is a no-op.
func (u *paymentUC) Confirm(ctx context.Context, authority string, expectedAmount int64) (*model.Payment, error) {
	token, err := u.locker.TryLock(ctx, "payconfirm:"+authority, 30*time.Second)
	if err != nil {
		return nil, domain.ErrPaymentInFlight
	}
	defer func() { _ = u.locker.Unlock(ctx, "payconfirm:"+authority, token) }()

	p, err := u.payments.FindByAuthority(ctx, repository.NoTX, authority)
	if err != nil {
		return nil, err
	}
	if p.Status == model.PaymentStatusSucceeded {
		return p, nil
	}
	if p.Status != model.PaymentStatusPending {
		return nil, domain.ErrPaymentNotPending
	}

	now := time.Now()
	refID, verifyErr := u.gateway.VerifyPayment(ctx, authority, expectedAmount)
	if verifyErr != nil {
		if err := u.payments.UpdateStatus(ctx, repository.NoTX, p.ID, model.PaymentStatusFailed, nil, nil); err != nil {
			u.log.Error().Err(err).Str("payment_id", p.ID).Msg("failed to mark payment failed")
		}
		metrics.IncPayment("failed")
		p.Status = model.PaymentStatusFailed
		p.UpdatedAt = now
		return p, fmt.Errorf("verify payment: %w", verifyErr)
	}

	if err := u.payments.UpdateStatus(ctx, repository.NoTX, p.ID, model.PaymentStatusSucceeded, &refID, &now); err != nil {
		return nil, err
	}
	if _, err := u.charger.TopUp(ctx, p.UserID, p.EntityID, p.Credits); err != nil {
		// The payment is captured; the grant must not be silently lost.
		u.log.Error().Err(err).Str("payment_id", p.ID).Msg("top-up after verified payment failed")
		return nil, err
	}

	metrics.IncPayment("succeeded")
	metrics.AddPaymentRevenue(p.Currency, p.AmountCents)
	p.Status = model.PaymentStatusSucceeded
	p.RefID = &refID
	p.PaidAt = &now
	p.UpdatedAt = now
	u.log.Info().
		Str("payment_id", p.ID).
		Str("entity_id", p.EntityID).
		Int64("credits", p.Credits).
		Msg("payment confirmed, credits granted")
	return p, nil
}

// ConfirmAuto looks up the payment by authority to determine the expected
// amount automatically.
func (u *paymentUC) ConfirmAuto(ctx context.Context, authority string) (*model.Payment, error) {
	p, err := u.payments.FindByAuthority(ctx, repository.NoTX, authority)
	if err != nil {
		return nil, err
	}
	return u.Confirm(ctx, authority, p.AmountCents)
}

// ReconcileStale re-verifies pending payments older than the cutoff. Driven
// by the payment reconciler worker.
func (u *paymentUC) ReconcileStale(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	stale, err := u.payments.FindStalePending(ctx, repository.NoTX, olderThan, limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	resolved := 0
	for _, p := range stale {
		if _, err := u.Confirm(ctx, p.Authority, p.AmountCents); err != nil {
			u.log.Debug().Err(err).Str("payment_id", p.ID).Msg("stale payment still unresolved")
			continue
		}
		resolved++
	}
	return resolved, nil
}
