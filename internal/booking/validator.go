// Package booking holds the commit validator and the service that ties
// the availability engine to the schedule, reservation and policy stores.
package booking

import (
	"fmt"
	"time"

	"loungebook/internal/model"
	"loungebook/internal/schedule"
	"loungebook/internal/timegrid"
)

// Validate is the authoritative admit/reject decision run immediately
// before a reservation is written. It re-checks everything against the
// latest data: ordering, duration bounds, an open schedule for the
// weekday, containment in the day's open hours, and overlap freedom.
// Rejections wrap model.ErrSlotUnavailable; the storage layer still
// enforces its own overlap guard at insert, so an accept here is
// advisory under concurrent callers.
func Validate(policy model.Policy, week schedule.Weekly, reservations []model.Reservation, start, end time.Time) error {
	if !start.Before(end) {
		return fmt.Errorf("%w: start is not before end", model.ErrSlotUnavailable)
	}

	duration := end.Sub(start)
	minutes := int(duration / time.Minute)
	if minutes%timegrid.GranularityMinutes != 0 {
		return fmt.Errorf("%w: duration is not a multiple of %d minutes", model.ErrSlotUnavailable, timegrid.GranularityMinutes)
	}
	if duration < policy.MinDuration() || duration > policy.MaxDuration() {
		return fmt.Errorf("%w: duration %d minutes outside allowed %d-%d", model.ErrSlotUnavailable, minutes, policy.MinMinutes, policy.MaxMinutes)
	}

	loc := week.Location()
	day := timegrid.LocalStartOfDay(start, loc)
	w := week[day.Weekday()]
	if w == nil {
		return fmt.Errorf("%w: no schedule for %s", model.ErrSlotUnavailable, day.Weekday())
	}
	dayStart, dayEnd, err := w.Bounds(day)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	if start.Before(dayStart) || end.After(dayEnd) {
		return fmt.Errorf("%w: booking falls outside open hours", model.ErrSlotUnavailable)
	}

	for i := range reservations {
		if reservations[i].Overlaps(start, end) {
			return fmt.Errorf("%w: overlaps an existing reservation", model.ErrSlotUnavailable)
		}
	}
	return nil
}
