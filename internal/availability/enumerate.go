package availability

import (
	"time"

	"loungebook/internal/model"
	"loungebook/internal/schedule"
	"loungebook/internal/timegrid"
)

// Dates returns the calendar dates (midnight in the schedule's operating
// timezone) within the policy's advance window that still have at least
// one bookable opening of the minimum duration. Today's window is clamped
// to the next grid boundary at or after now.
func Dates(policy model.Policy, week schedule.Weekly, reservations []model.Reservation, now time.Time) ([]time.Time, error) {
	loc := week.Location()
	today := timegrid.LocalStartOfDay(now, loc)

	var dates []time.Time
	for i := 0; i < policy.MaxDaysAdvance; i++ {
		day := today.AddDate(0, 0, i)
		w := week[day.Weekday()]
		if w == nil {
			continue
		}
		dayStart, dayEnd, err := w.Bounds(day)
		if err != nil {
			return nil, err
		}
		if i == 0 && now.After(dayStart) {
			dayStart = timegrid.QuantizeUp(now.In(loc), timegrid.Granularity)
			if !dayStart.Before(dayEnd) {
				continue
			}
		}
		if HasFreeRun(reservations, dayStart, dayEnd, policy.MinDuration()) {
			dates = append(dates, day)
		}
	}
	return dates, nil
}

// StartTimes returns every grid-aligned start time on selectedDate from
// which a booking of the minimum duration would be entirely free. Empty
// when the day has no schedule or the clamped start leaves no room before
// close.
func StartTimes(policy model.Policy, week schedule.Weekly, reservations []model.Reservation, selectedDate, now time.Time) ([]time.Time, error) {
	loc := week.Location()
	day := timegrid.LocalStartOfDay(selectedDate, loc)
	w := week[day.Weekday()]
	if w == nil {
		return nil, nil
	}
	dayStart, dayEnd, err := w.Bounds(day)
	if err != nil {
		return nil, err
	}
	if timegrid.SameLocalDay(now, day, loc) && now.After(dayStart) {
		dayStart = timegrid.QuantizeUp(now.In(loc), timegrid.Granularity)
	}

	minDuration := policy.MinDuration()
	var starts []time.Time
	for t := dayStart; !t.Add(minDuration).After(dayEnd); t = t.Add(timegrid.Granularity) {
		if HasFreeRun(reservations, t, t.Add(minDuration), minDuration) {
			starts = append(starts, t)
		}
	}
	return starts, nil
}

// Durations returns the legal booking lengths, in minutes, for a booking
// beginning at start. Candidates run from the policy minimum to maximum
// in grid steps; enumeration stops at the first duration that would run
// past close, since longer ones cannot fit either. The overlap test is
// pairwise against start, which is already grid-aligned by construction.
func Durations(policy model.Policy, week schedule.Weekly, reservations []model.Reservation, start time.Time) ([]int, error) {
	loc := week.Location()
	day := timegrid.LocalStartOfDay(start, loc)
	w := week[day.Weekday()]
	if w == nil {
		return nil, nil
	}
	dayStart, dayEnd, err := w.Bounds(day)
	if err != nil {
		return nil, err
	}
	if start.Before(dayStart) || !start.Before(dayEnd) {
		return nil, nil
	}

	var durations []int
	for d := policy.MinMinutes; d <= policy.MaxMinutes; d += timegrid.GranularityMinutes {
		end := start.Add(time.Duration(d) * time.Minute)
		if end.After(dayEnd) {
			break
		}
		if !overlapsAny(reservations, start, end) {
			durations = append(durations, d)
		}
	}
	return durations, nil
}

func overlapsAny(reservations []model.Reservation, start, end time.Time) bool {
	for i := range reservations {
		if reservations[i].Overlaps(start, end) {
			return true
		}
	}
	return false
}
