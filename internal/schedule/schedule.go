// Package schedule resolves weekly open-hours definitions. A resource may
// have a specific-tier schedule that overrides the global fallback on a
// per-weekday basis; the result is a single merged weekly table.
package schedule

import (
	"fmt"
	"time"

	"loungebook/internal/timegrid"
)

// Tier identifies where a schedule row comes from.
type Tier string

const (
	TierSpecific Tier = "specific"
	TierGlobal   Tier = "global"
)

// Row is one weekly open/close definition as read from the schedule
// store. Open and Close are wall-clock "HH:MM[:SS]" strings interpreted
// in Timezone. Closed marks a day explicitly closed; an explicit closed
// row at the specific tier still overrides the global tier.
type Row struct {
	Weekday  time.Weekday
	Open     string
	Close    string
	Timezone string
	Closed   bool
}

// Validate checks the row can be resolved: a known weekday, parseable
// times with open before close, and a loadable IANA zone. Closed rows
// only need a valid weekday.
func (r Row) Validate() error {
	if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
		return fmt.Errorf("invalid weekday %d", r.Weekday)
	}
	if r.Closed {
		return nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", r.Timezone, err)
	}
	ref := time.Date(2000, 1, 3, 0, 0, 0, 0, loc)
	open, err := timegrid.WallClockOnDate(ref, r.Open, loc)
	if err != nil {
		return fmt.Errorf("invalid open time: %w", err)
	}
	close, err := timegrid.WallClockOnDate(ref, r.Close, loc)
	if err != nil {
		return fmt.Errorf("invalid close time: %w", err)
	}
	if !open.Before(close) {
		return fmt.Errorf("open %s not before close %s", r.Open, r.Close)
	}
	return nil
}

// Window is the resolved open/close definition for one weekday.
type Window struct {
	Open  string
	Close string
	Loc   *time.Location
}

// Bounds resolves the window's wall-clock times on the calendar date of
// day, producing the absolute [start, end) open interval.
func (w *Window) Bounds(day time.Time) (start, end time.Time, err error) {
	start, err = timegrid.WallClockOnDate(day, w.Open, w.Loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = timegrid.WallClockOnDate(day, w.Close, w.Loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// Weekly maps weekday (Sunday = 0) to that day's open window, or nil when
// the day is unavailable.
type Weekly [7]*Window

// Location returns the operating timezone of the schedule: the zone of
// the earliest defined weekday. UTC when every day is closed.
func (week Weekly) Location() *time.Location {
	for _, w := range week {
		if w != nil {
			return w.Loc
		}
	}
	return time.UTC
}

// Resolve merges specific-tier rows over global-tier rows into a weekly
// table. A specific row for a weekday wins outright, including an
// explicitly closed one; otherwise the global row applies; otherwise the
// day is unavailable. When a tier holds several rows for one weekday the
// last one wins, which reproduces upstream behaviour for that data error.
// Pure: identical inputs always yield identical output.
func Resolve(specific, global []Row) (Weekly, error) {
	var week Weekly
	if err := applyTier(&week, global); err != nil {
		return Weekly{}, fmt.Errorf("global tier: %w", err)
	}
	if err := applyTier(&week, specific); err != nil {
		return Weekly{}, fmt.Errorf("specific tier: %w", err)
	}
	return week, nil
}

func applyTier(week *Weekly, rows []Row) error {
	for _, r := range rows {
		if err := r.Validate(); err != nil {
			return err
		}
		if r.Closed {
			week[r.Weekday] = nil
			continue
		}
		loc, err := time.LoadLocation(r.Timezone)
		if err != nil {
			return err
		}
		week[r.Weekday] = &Window{Open: r.Open, Close: r.Close, Loc: loc}
	}
	return nil
}
