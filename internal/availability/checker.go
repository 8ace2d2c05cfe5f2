// Package availability implements the slot-level availability engine:
// grid scanning over existing reservations and the date, start-time and
// duration enumerators built on it. Everything here is pure computation;
// callers fetch and pre-filter the reservation set.
package availability

import (
	"time"

	"loungebook/internal/model"
	"loungebook/internal/timegrid"
)

// HasFreeRun reports whether [winStart, winEnd) contains a contiguous run
// of free grid cells long enough to fit minDuration. A cell [cellStart,
// cellEnd) is blocked when any reservation satisfies the half-open
// overlap test; a reservation ending exactly at cellStart does not block.
// A trailing partial cell is ignored entirely.
func HasFreeRun(reservations []model.Reservation, winStart, winEnd time.Time, minDuration time.Duration) bool {
	if minDuration <= 0 {
		return false
	}
	required := int(minDuration / timegrid.Granularity)
	if required == 0 {
		required = 1
	}

	free := 0
	for cellStart := winStart; cellStart.Before(winEnd); cellStart = cellStart.Add(timegrid.Granularity) {
		cellEnd := cellStart.Add(timegrid.Granularity)
		if cellEnd.After(winEnd) {
			break
		}
		if blocked(reservations, cellStart, cellEnd) {
			free = 0
			continue
		}
		free++
		if free >= required {
			return true
		}
	}
	return false
}

func blocked(reservations []model.Reservation, cellStart, cellEnd time.Time) bool {
	for i := range reservations {
		if reservations[i].Overlaps(cellStart, cellEnd) {
			return true
		}
	}
	return false
}
