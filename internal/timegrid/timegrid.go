// Package timegrid provides the time quantization primitives used by all
// availability reasoning. Every bookable interval is aligned to a fixed
// grid measured from midnight in the resource's operating timezone.
package timegrid

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Granularity is the fixed grid quantum. All booking durations and start
// times are multiples of it.
const Granularity = 15 * time.Minute

// GranularityMinutes is Granularity expressed in minutes.
const GranularityMinutes = 15

// LocalStartOfDay returns the instant of 00:00:00 wall clock in loc on the
// calendar date that t falls on in loc.
func LocalStartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// QuantizeUp rounds t forward to the smallest instant >= t that is a whole
// multiple of granularity from local midnight in t's location. Instants
// already on the grid are returned unchanged.
func QuantizeUp(t time.Time, granularity time.Duration) time.Time {
	if granularity <= 0 {
		return t
	}
	midnight := LocalStartOfDay(t, t.Location())
	offset := t.Sub(midnight)
	rounded := ((offset + granularity - 1) / granularity) * granularity
	return midnight.Add(rounded)
}

// WallClockOnDate combines the calendar date of day (interpreted in loc)
// with a "HH:MM" or "HH:MM:SS" wall-clock string, producing an absolute
// instant. DST transitions are resolved by the timezone database.
func WallClockOnDate(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	h, m, s, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	ld := day.In(loc)
	return time.Date(ld.Year(), ld.Month(), ld.Day(), h, m, s, 0, loc), nil
}

// SameLocalDay reports whether a and b fall on the same calendar date in loc.
func SameLocalDay(a, b time.Time, loc *time.Location) bool {
	return LocalStartOfDay(a, loc).Equal(LocalStartOfDay(b, loc))
}

func parseClock(clock string) (h, m, s int, err error) {
	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("invalid time format: %s", clock)
	}
	h, err = strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, 0, fmt.Errorf("invalid hour in %q", clock)
	}
	m, err = strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, 0, fmt.Errorf("invalid minute in %q", clock)
	}
	if len(parts) == 3 {
		s, err = strconv.Atoi(parts[2])
		if err != nil || s < 0 || s > 59 {
			return 0, 0, 0, fmt.Errorf("invalid second in %q", clock)
		}
	}
	return h, m, s, nil
}
