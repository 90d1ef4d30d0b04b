package model

import (
	"time"

	"marketplace-billing/internal/domain"
)

// CreditDistribution is an entity's remaining credit pool for one app area.
// Only the charge executor mutates the pool, and only under a row lock.
type CreditDistribution struct {
	EntityID string
	AppArea  AppArea
	Pool     int64
}

func NewCreditDistribution(entityID string, area AppArea, pool int64) (*CreditDistribution, error) {
	if entityID == "" || !area.Valid() || pool < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &CreditDistribution{EntityID: entityID, AppArea: area, Pool: pool}, nil
}

// AvailableBalance is the single per-entity row holding total remaining
// credits across all areas. Created on first top-up, updated in place after.
type AvailableBalance struct {
	EntityID  string
	Available int64
	UpdatedAt time.Time
}

// EntryType is the accounting side of a ledger entry.
type EntryType string

const (
	EntryDebit  EntryType = "debit"
	EntryCredit EntryType = "credit"
)

// CreditHistory is one append-only ledger row. AvailableAfter snapshots the
// entity balance resulting from this entry; rows are never updated.
type CreditHistory struct {
	ID             string // ULID, time-ordered
	EntityID       string
	UserID         string
	ActionName     *string // nil for top-ups
	EntryType      EntryType
	Amount         int64
	AvailableAfter int64
	CreatedAt      time.Time
	Active         bool
}

func NewCreditHistory(id, entityID, userID string, actionName *string, entryType EntryType, amount, availableAfter int64) (*CreditHistory, error) {
	if id == "" || entityID == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if entryType != EntryDebit && entryType != EntryCredit {
		return nil, domain.ErrInvalidArgument
	}
	return &CreditHistory{
		ID:             id,
		EntityID:       entityID,
		UserID:         userID,
		ActionName:     actionName,
		EntryType:      entryType,
		Amount:         amount,
		AvailableAfter: availableAfter,
		CreatedAt:      time.Now(),
		Active:         true,
	}, nil
}
