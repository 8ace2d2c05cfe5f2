package model

import (
	"errors"
	"fmt"
	"time"

	"loungebook/internal/timegrid"
)

// ErrInvalidPolicy marks a misconfigured booking policy. It is fatal at
// config load, not a per-call condition.
var ErrInvalidPolicy = errors.New("invalid booking policy")

// Policy holds the booking limits for one resource kind, resolved from
// the settings store with per-kind defaults.
type Policy struct {
	MinMinutes     int
	MaxMinutes     int
	MaxDaysAdvance int
}

// DefaultPolicy returns the fallback policy for a resource kind, used
// when a settings key is absent.
func DefaultPolicy(kind ResourceKind) Policy {
	p := Policy{MinMinutes: 30, MaxMinutes: 120, MaxDaysAdvance: 30}
	if kind == KindLounge {
		p.MinMinutes = 15
	}
	return p
}

// MinDuration returns the minimum booking length.
func (p Policy) MinDuration() time.Duration {
	return time.Duration(p.MinMinutes) * time.Minute
}

// MaxDuration returns the maximum booking length.
func (p Policy) MaxDuration() time.Duration {
	return time.Duration(p.MaxMinutes) * time.Minute
}

// Validate checks the policy invariants: positive durations, min <= max,
// both whole multiples of the grid granularity, and a positive advance
// window.
func (p Policy) Validate() error {
	if p.MinMinutes <= 0 || p.MaxMinutes <= 0 {
		return fmt.Errorf("%w: durations must be positive", ErrInvalidPolicy)
	}
	if p.MinMinutes > p.MaxMinutes {
		return fmt.Errorf("%w: min %d exceeds max %d", ErrInvalidPolicy, p.MinMinutes, p.MaxMinutes)
	}
	if p.MinMinutes%timegrid.GranularityMinutes != 0 || p.MaxMinutes%timegrid.GranularityMinutes != 0 {
		return fmt.Errorf("%w: durations must be multiples of %d minutes", ErrInvalidPolicy, timegrid.GranularityMinutes)
	}
	if p.MaxDaysAdvance <= 0 {
		return fmt.Errorf("%w: max days in advance must be positive", ErrInvalidPolicy)
	}
	return nil
}
