package model

import "time"

// Action is a permitted mutation on a reservation in its current state.
type Action string

const (
	ActionCancel Action = "cancel"
	ActionEnd    Action = "end"
	ActionNoShow Action = "noShow"
)

// Display is the user-facing rendering of a reservation status.
type Display struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
}

// DisplayStatus derives the label and severity for a reservation from its
// stored status and its time window relative to now. Confirmed and
// approved are the same live state viewed from station and lounge sides.
func DisplayStatus(status string, start, end, now time.Time) Display {
	switch status {
	case StatusCancelled:
		return Display{Label: "Cancelled", Severity: "destructive"}
	case StatusDenied:
		return Display{Label: "Denied", Severity: "destructive"}
	case StatusNoShow:
		return Display{Label: "No-show", Severity: "warning"}
	case StatusPending:
		return Display{Label: "Pending approval", Severity: "warning"}
	case StatusConfirmed, StatusApproved:
		switch {
		case now.Before(start):
			return Display{Label: "Upcoming", Severity: "default"}
		case now.Before(end):
			return Display{Label: "In-progress", Severity: "outline"}
		default:
			return Display{Label: "Ended", Severity: "outline"}
		}
	}
	return Display{Label: status, Severity: "default"}
}

// AllowedActions returns the mutations permitted on a reservation given
// its stored status and time window. Cancel is only valid before the
// window has fully elapsed; no-show only once it has started. Pending,
// cancelled, denied and no-show rows accept no further user action.
func AllowedActions(status string, start, end, now time.Time) []Action {
	if status != StatusConfirmed && status != StatusApproved {
		return nil
	}
	switch {
	case now.Before(start):
		return []Action{ActionCancel}
	case now.Before(end):
		return []Action{ActionEnd, ActionNoShow}
	default:
		return []Action{ActionNoShow}
	}
}

// CanPerform reports whether action is currently allowed.
func CanPerform(action Action, status string, start, end, now time.Time) bool {
	for _, a := range AllowedActions(status, start, end, now) {
		if a == action {
			return true
		}
	}
	return false
}
