package model

import (
	"time"

	"marketplace-billing/internal/domain"
)

// SubscriptionPlan wraps a purchasable product with a fixed duration.
type SubscriptionPlan struct {
	ID           string
	Name         string
	DurationDays int
	PriceCents   int64
	Currency     string
	CreatedAt    time.Time
}

func (p *SubscriptionPlan) IsZero() bool { return p == nil || p.ID == "" }

// NewSubscriptionPlan validates and constructs a plan.
func NewSubscriptionPlan(id, name string, durationDays int, priceCents int64, currency string) (*SubscriptionPlan, error) {
	if id == "" || name == "" || durationDays <= 0 || priceCents < 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &SubscriptionPlan{
		ID:           id,
		Name:         name,
		DurationDays: durationDays,
		PriceCents:   priceCents,
		Currency:     currency,
		CreatedAt:    time.Now(),
	}, nil
}

// EntitySubscription is one entity's purchased subscription window.
// At most one row per entity may be currently active: Active is true and
// [StartDate, EndDate] contains today.
type EntitySubscription struct {
	ID        string // UUID
	EntityID  string
	UserID    string // purchasing/assigned user
	PlanID    string
	StartDate time.Time
	EndDate   time.Time
	Active    bool
	CreatedAt time.Time
}

// NewEntitySubscription creates a subscription starting at start and running
// for the plan's duration.
func NewEntitySubscription(id, entityID, userID string, plan *SubscriptionPlan, start time.Time) (*EntitySubscription, error) {
	if id == "" || entityID == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	start = DateOf(start)
	return &EntitySubscription{
		ID:        id,
		EntityID:  entityID,
		UserID:    userID,
		PlanID:    plan.ID,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, plan.DurationDays),
		Active:    true,
		CreatedAt: time.Now(),
	}, nil
}

// CoversDate reports whether d falls inside the subscription window.
func (s *EntitySubscription) CoversDate(d time.Time) bool {
	d = DateOf(d)
	return !d.Before(DateOf(s.StartDate)) && !d.After(DateOf(s.EndDate))
}

// CoversRange reports whether the whole [start, end] range is inside the window.
func (s *EntitySubscription) CoversRange(start, end time.Time) bool {
	return s.CoversDate(start) && s.CoversDate(end)
}

// ExpiredAsOf reports whether the window has fully passed.
func (s *EntitySubscription) ExpiredAsOf(d time.Time) bool {
	return DateOf(d).After(DateOf(s.EndDate))
}

// SubscriptionAction tracks per-action usage under a subscription.
// UsageCount never exceeds MaxCount; at the cap, items fall back to direct
// interval charging.
type SubscriptionAction struct {
	SubscriptionID string
	ActionName     string
	UsageCount     int
	MaxCount       int
}

func (sa *SubscriptionAction) CapReached() bool { return sa.UsageCount >= sa.MaxCount }

// DateOf truncates t to its calendar date in UTC. All billing arithmetic is
// day-granular.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
