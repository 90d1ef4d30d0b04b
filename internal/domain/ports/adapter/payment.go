package adapter

import "context"

// PaymentGateway is the hex port for payment providers. The core never
// constructs or validates provider tokens itself; it hands over a
// tax-inclusive amount and gets back an authority to track the intent.
type PaymentGateway interface {
	Name() string

	// RequestPayment initiates a payment intent and returns the provider
	// authority plus a redirect URL for the purchaser.
	RequestPayment(ctx context.Context, amountCents int64, currency, description, callbackURL string, meta map[string]interface{}) (authority string, payURL string, err error)

	// VerifyPayment verifies a payment given the authority and expected
	// amount; returns the provider refID on success.
	VerifyPayment(ctx context.Context, authority string, expectedAmountCents int64) (refID string, err error)
}
