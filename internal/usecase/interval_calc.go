// File: internal/usecase/interval_calc.go
package usecase

import (
	"time"

	"marketplace-billing/internal/config"
	"marketplace-billing/internal/domain"
	"marketplace-billing/internal/domain/model"
)

// IntervalCalculator turns date ranges into billable interval counts.
// An interval is the per-action span of days one credit charge covers;
// partial final intervals always round up, never prorate down.
type IntervalCalculator struct {
	defaultIntervalDays int
	now                 func() time.Time
}

func NewIntervalCalculator(cfg config.BillingConfig) *IntervalCalculator {
	return &IntervalCalculator{
		defaultIntervalDays: cfg.DefaultIntervalDays,
		now:                 time.Now,
	}
}

func (c *IntervalCalculator) intervalDays(action *model.CreditAction) int {
	if action != nil && action.IntervalDays > 0 {
		return action.IntervalDays
	}
	return c.defaultIntervalDays
}

// IntervalsFor returns the number of billable intervals covering [start, end].
// A same-day range costs exactly one interval regardless of interval length.
func (c *IntervalCalculator) IntervalsFor(start, end time.Time, action *model.CreditAction) (int, error) {
	start, end = model.DateOf(start), model.DateOf(end)
	if end.Before(start) {
		return 0, domain.ErrInvalidRange
	}
	days := int(end.Sub(start).Hours() / 24)
	if days == 0 {
		return 1, nil
	}
	iv := c.intervalDays(action)
	return (days + iv - 1) / iv, nil
}

// DeltaIntervals returns the additional intervals a range edit requires.
// Shrinking the range never yields a refund: the result is floored at zero.
func (c *IntervalCalculator) DeltaIntervals(oldStart, oldEnd, newStart, newEnd time.Time, action *model.CreditAction) (int, error) {
	oldN, err := c.IntervalsFor(oldStart, oldEnd, action)
	if err != nil {
		return 0, err
	}
	newN, err := c.IntervalsFor(newStart, newEnd, action)
	if err != nil {
		return 0, err
	}
	if newN <= oldN {
		return 0, nil
	}
	return newN - oldN, nil
}

// IsAllowedInterval reports whether the range is orderable and does not start
// in the past. Retroactive billing starts are rejected at validation time.
func (c *IntervalCalculator) IsAllowedInterval(start, end time.Time) bool {
	start, end = model.DateOf(start), model.DateOf(end)
	if end.Before(start) {
		return false
	}
	return !start.Before(model.DateOf(c.now()))
}

// ValidateRange is IsAllowedInterval with the distinct error per failure mode.
func (c *IntervalCalculator) ValidateRange(start, end time.Time) error {
	start, end = model.DateOf(start), model.DateOf(end)
	if end.Before(start) {
		return domain.ErrInvalidRange
	}
	if start.Before(model.DateOf(c.now())) {
		return domain.ErrInvalidStartDate
	}
	return nil
}
