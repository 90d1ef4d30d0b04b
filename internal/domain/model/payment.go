package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment records one gateway-side credit purchase. The core only ever
// operates in credit units; AmountCents is the tax-inclusive figure the
// gateway was asked to collect.
type Payment struct {
	ID          string // UUID
	EntityID    string
	UserID      string
	Provider    string
	Credits     int64 // credits to grant on success
	AmountCents int64 // tax-inclusive
	Currency    string
	TaxPercent  float64
	Authority   string // provider handle for this payment intent
	Status      PaymentStatus
	RefID       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PaidAt      *time.Time
	Callback    string
	Description string
}

// CountryTax maps a country code to the tax percentage applied to gateway
// amounts. A configured fallback country supplies the default rate.
type CountryTax struct {
	Country string
	Percent float64
}

// Apply returns amount grown by the tax percentage, rounded to the nearest cent.
func (t CountryTax) Apply(amountCents int64) int64 {
	return amountCents + int64(float64(amountCents)*t.Percent/100.0+0.5)
}
