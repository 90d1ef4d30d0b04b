package model

import (
	"time"

	"marketplace-billing/internal/domain"
)

// AppArea identifies the marketplace surface a credit pool or action belongs to.
type AppArea string

const (
	AppAreaJob        AppArea = "job"
	AppAreaEvent      AppArea = "event"
	AppAreaCareerFair AppArea = "career_fair"
	AppAreaEntity     AppArea = "entity"
)

func (a AppArea) Valid() bool {
	switch a {
	case AppAreaJob, AppAreaEvent, AppAreaCareerFair, AppAreaEntity:
		return true
	}
	return false
}

// CreditAction is a billable action from the reference catalog: its name is
// the unique key, CreditRequired is the cost per billing interval, and
// IntervalDays is the length of one interval. Rows are immutable after seeding.
type CreditAction struct {
	Name           string
	AppArea        AppArea
	CreditRequired int64
	IntervalDays   int
	CreatedAt      time.Time
}

// NewCreditAction validates and constructs a catalog entry.
func NewCreditAction(name string, area AppArea, creditRequired int64, intervalDays int) (*CreditAction, error) {
	if name == "" || !area.Valid() || creditRequired <= 0 || intervalDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &CreditAction{
		Name:           name,
		AppArea:        area,
		CreditRequired: creditRequired,
		IntervalDays:   intervalDays,
		CreatedAt:      time.Now(),
	}, nil
}
