package model

import "errors"

// Error taxonomy shared by the engine and its storage collaborators.
// ErrSlotUnavailable is the expected, recoverable outcome of a failed
// commit or conflicting insert: callers re-offer the flow. It is never
// logged as an error. ErrDataUnavailable means a collaborator read or
// write failed; callers show a generic retry message instead.
var (
	ErrSlotUnavailable = errors.New("slot unavailable")
	ErrDataUnavailable = errors.New("booking data unavailable")
	ErrNotFound        = errors.New("reservation not found")
	ErrNotPermitted    = errors.New("action not permitted")
)
