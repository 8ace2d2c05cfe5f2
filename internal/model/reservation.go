// Package model defines the reservation records and booking policies the
// engine operates on, plus the lifecycle rules derived from them.
package model

import "time"

// ResourceKind identifies what is being booked: the shared lounge as a
// whole, or one of the individually bookable stations.
type ResourceKind string

const (
	KindLounge  ResourceKind = "lounge"
	KindStation ResourceKind = "station"
)

// Reservation statuses as stored. Station bookings are confirmed on
// commit; lounge bookings start pending and are approved or denied by a
// manager. Cancelled and denied rows stay as historical records.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusApproved  = "approved"
	StatusCancelled = "cancelled"
	StatusDenied    = "denied"
	StatusNoShow    = "noshow"
)

// Reservation is a committed booking for a resource and time window.
// Start/End form a half-open interval [Start, End).
type Reservation struct {
	ID          string       `json:"id"`
	Kind        ResourceKind `json:"resource_kind"`
	StationID   string       `json:"station_id,omitempty"` // empty for lounge
	BookedBy    string       `json:"booked_by"`
	Name        string       `json:"name,omitempty"`        // lounge event name
	Description string       `json:"description,omitempty"` // lounge event description
	Start       time.Time    `json:"start_timestamp"`
	End         time.Time    `json:"end_timestamp"`
	Status      string       `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Duration returns the booked length.
func (r *Reservation) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Overlaps reports whether the reservation's window intersects the
// half-open interval [start, end). Touching boundaries do not overlap.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.Start.Before(end) && r.End.After(start)
}

// Blocking reports whether the reservation consumes grid slots for
// availability purposes. Pending lounge requests are advisory until
// approved and do not block.
func (r *Reservation) Blocking() bool {
	switch r.Status {
	case StatusConfirmed, StatusApproved, StatusNoShow:
		return true
	}
	return false
}

// Active reports whether the reservation still represents a live booking
// (not cancelled, denied or closed out as a no-show).
func (r *Reservation) Active() bool {
	switch r.Status {
	case StatusPending, StatusConfirmed, StatusApproved:
		return true
	}
	return false
}
