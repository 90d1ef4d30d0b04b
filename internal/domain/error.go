package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Billing errors
	ErrInvalidRange        = errors.New("end date precedes start date")
	ErrInvalidStartDate    = errors.New("start date is in the past")
	ErrNoCreditPool        = errors.New("no credit pool allocated for this area")
	ErrNoBalance           = errors.New("no available balance for this entity")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrActionNotFound      = errors.New("credit action not configured")

	// Subscription errors
	ErrSubscriptionExists = errors.New("entity already has an active subscription")

	// Payment errors
	ErrPaymentNotPending = errors.New("payment is not pending")
	ErrPaymentInFlight   = errors.New("payment confirmation already in progress")
)
