package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"loungebook/internal/availability"
	"loungebook/internal/metrics"
	"loungebook/internal/model"
	"loungebook/internal/schedule"
	"loungebook/internal/timegrid"
)

// ErrRateLimited is returned when a user exceeds the booking-attempt
// budget. Availability queries are never rate limited.
var ErrRateLimited = errors.New("too many booking attempts")

// ScheduleStore provides the weekly open-hours rows for a resource.
type ScheduleStore interface {
	// Rows returns the specific-tier rows for the resource (empty for
	// resources without overrides) and the global-tier rows for the kind.
	Rows(ctx context.Context, kind model.ResourceKind, stationID string) (specific, global []schedule.Row, err error)
}

// ReservationStore provides read and guarded-write access to committed
// reservations.
type ReservationStore interface {
	// Blocking returns the reservations that consume grid slots for the
	// resource and overlap [from, to): approved lounge reservations for a
	// lounge query, plus the station's own blocking rows for a station
	// query (lounge-wide bookings block every station).
	Blocking(ctx context.Context, kind model.ResourceKind, stationID string, from, to time.Time) ([]model.Reservation, error)

	// CreateLocked inserts the reservation behind the storage-layer
	// serialization point, re-checking overlap inside the same
	// transaction. Returns model.ErrSlotUnavailable when a concurrent
	// insert won the window.
	CreateLocked(ctx context.Context, r *model.Reservation) error

	Get(ctx context.Context, id string) (*model.Reservation, error)

	// UpdateStatus transitions id from one status to another, failing
	// with model.ErrNotPermitted if the stored status no longer matches.
	UpdateStatus(ctx context.Context, id, from, to string) error

	ByUser(ctx context.Context, userID string) ([]model.Reservation, error)
}

// PolicyStore resolves the booking policy for a resource kind.
type PolicyStore interface {
	PolicyFor(ctx context.Context, kind model.ResourceKind) (model.Policy, error)
}

// Service orchestrates the availability engine against the stores. The
// engine itself is pure; the service owns fetching, error mapping and
// the commit-time revalidation.
type Service struct {
	schedules    ScheduleStore
	reservations ReservationStore
	policies     PolicyStore
	logger       *zerolog.Logger

	now func() time.Time

	mu          sync.Mutex
	perUser     map[string]*rate.Limiter
	attemptRate rate.Limit
	burst       int
}

// NewService creates a booking service. attemptsPerMinute bounds booking
// attempts per user; burst is the allowed burst size.
func NewService(schedules ScheduleStore, reservations ReservationStore, policies PolicyStore, attemptsPerMinute, burst int, logger *zerolog.Logger) *Service {
	if attemptsPerMinute <= 0 {
		attemptsPerMinute = 30
	}
	if burst <= 0 {
		burst = 10
	}
	return &Service{
		schedules:    schedules,
		reservations: reservations,
		policies:     policies,
		logger:       logger,
		now:          time.Now,
		perUser:      make(map[string]*rate.Limiter),
		attemptRate:  rate.Limit(float64(attemptsPerMinute) / 60.0),
		burst:        burst,
	}
}

// AvailableDates returns the bookable dates for a resource within its
// advance window.
func (s *Service) AvailableDates(ctx context.Context, kind model.ResourceKind, stationID string) ([]time.Time, error) {
	metrics.IncAvailabilityQuery("dates")
	now := s.now()

	policy, err := s.policyFor(ctx, kind)
	if err != nil {
		return nil, err
	}
	week, err := s.resolveWeek(ctx, kind, stationID)
	if err != nil {
		return nil, err
	}

	loc := week.Location()
	from := timegrid.LocalStartOfDay(now, loc)
	to := from.AddDate(0, 0, policy.MaxDaysAdvance)
	reservations, err := s.reservations.Blocking(ctx, kind, stationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}

	dates, err := availability.Dates(policy, week, reservations, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	return dates, nil
}

// AvailableStartTimes returns the free grid-aligned start times on a date.
func (s *Service) AvailableStartTimes(ctx context.Context, kind model.ResourceKind, stationID string, date time.Time) ([]time.Time, error) {
	metrics.IncAvailabilityQuery("start_times")
	now := s.now()

	policy, err := s.policyFor(ctx, kind)
	if err != nil {
		return nil, err
	}
	week, err := s.resolveWeek(ctx, kind, stationID)
	if err != nil {
		return nil, err
	}

	reservations, err := s.dayReservations(ctx, kind, stationID, week, date)
	if err != nil {
		return nil, err
	}

	starts, err := availability.StartTimes(policy, week, reservations, date, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	return starts, nil
}

// AvailableDurations returns the legal booking lengths in minutes from a
// given start time.
func (s *Service) AvailableDurations(ctx context.Context, kind model.ResourceKind, stationID string, start time.Time) ([]int, error) {
	metrics.IncAvailabilityQuery("durations")

	policy, err := s.policyFor(ctx, kind)
	if err != nil {
		return nil, err
	}
	week, err := s.resolveWeek(ctx, kind, stationID)
	if err != nil {
		return nil, err
	}

	reservations, err := s.dayReservations(ctx, kind, stationID, week, start)
	if err != nil {
		return nil, err
	}

	durations, err := availability.Durations(policy, week, reservations, start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	return durations, nil
}

// BookRequest is a proposed reservation.
type BookRequest struct {
	Kind        model.ResourceKind
	StationID   string
	BookedBy    string
	Name        string // lounge event name
	Description string // lounge event description
	Start       time.Time
	End         time.Time
}

// Book validates and commits a reservation. The validator runs against
// the latest data even when an enumerator already suggested the slot was
// free, and the store re-checks overlap inside its own transaction, so a
// concurrent booking for the same window loses cleanly with
// model.ErrSlotUnavailable. Station bookings commit as confirmed; lounge
// bookings start pending approval.
func (s *Service) Book(ctx context.Context, req BookRequest) (*model.Reservation, error) {
	if req.BookedBy == "" {
		return nil, fmt.Errorf("%w: missing user", model.ErrNotPermitted)
	}
	if req.Kind != model.KindLounge && req.Kind != model.KindStation {
		return nil, fmt.Errorf("%w: unknown resource kind %q", model.ErrNotPermitted, req.Kind)
	}
	if (req.Kind == model.KindStation) != (req.StationID != "") {
		return nil, fmt.Errorf("%w: station id required for station bookings only", model.ErrNotPermitted)
	}
	if !s.allowAttempt(req.BookedBy) {
		metrics.IncBookingRejected("rate_limited")
		return nil, ErrRateLimited
	}

	policy, err := s.policyFor(ctx, req.Kind)
	if err != nil {
		return nil, err
	}
	week, err := s.resolveWeek(ctx, req.Kind, req.StationID)
	if err != nil {
		return nil, err
	}
	reservations, err := s.dayReservations(ctx, req.Kind, req.StationID, week, req.Start)
	if err != nil {
		return nil, err
	}

	if err := Validate(policy, week, reservations, req.Start, req.End); err != nil {
		if errors.Is(err, model.ErrSlotUnavailable) {
			// Expected outcome, not an error condition.
			metrics.IncBookingRejected("validation")
			s.logger.Debug().
				Str("kind", string(req.Kind)).
				Time("start", req.Start).
				Time("end", req.End).
				Msg("booking rejected by validator")
		}
		return nil, err
	}

	now := s.now()
	status := model.StatusConfirmed
	if req.Kind == model.KindLounge {
		status = model.StatusPending
	}
	r := &model.Reservation{
		ID:          uuid.NewString(),
		Kind:        req.Kind,
		StationID:   req.StationID,
		BookedBy:    req.BookedBy,
		Name:        req.Name,
		Description: req.Description,
		Start:       req.Start,
		End:         req.End,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.reservations.CreateLocked(ctx, r); err != nil {
		if errors.Is(err, model.ErrSlotUnavailable) {
			metrics.IncBookingRejected("conflict")
			s.logger.Info().Str("id", r.ID).Msg("booking lost commit race")
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}

	metrics.IncBookingAccepted(string(req.Kind))
	s.logger.Info().
		Str("id", r.ID).
		Str("kind", string(req.Kind)).
		Str("station_id", req.StationID).
		Time("start", r.Start).
		Time("end", r.End).
		Str("status", r.Status).
		Msg("reservation committed")
	return r, nil
}

// Cancel cancels a reservation. Permitted for live station or approved
// lounge reservations until their window has fully elapsed; an
// in-progress booking is ended by the same transition.
func (s *Service) Cancel(ctx context.Context, id string) error {
	r, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	now := s.now()
	if !model.CanPerform(model.ActionCancel, r.Status, r.Start, r.End, now) &&
		!model.CanPerform(model.ActionEnd, r.Status, r.Start, r.End, now) {
		return fmt.Errorf("%w: cannot cancel a %s reservation at this time", model.ErrNotPermitted, r.Status)
	}
	return s.transition(ctx, id, r.Status, model.StatusCancelled)
}

// Approve confirms a pending lounge reservation.
func (s *Service) Approve(ctx context.Context, id string) error {
	r, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if r.Status != model.StatusPending {
		return fmt.Errorf("%w: only pending reservations can be approved", model.ErrNotPermitted)
	}
	return s.transition(ctx, id, model.StatusPending, model.StatusApproved)
}

// Deny rejects a pending lounge reservation.
func (s *Service) Deny(ctx context.Context, id string) error {
	r, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if r.Status != model.StatusPending {
		return fmt.Errorf("%w: only pending reservations can be denied", model.ErrNotPermitted)
	}
	return s.transition(ctx, id, model.StatusPending, model.StatusDenied)
}

// MarkNoShow marks a reservation whose window has started as a no-show.
func (s *Service) MarkNoShow(ctx context.Context, id string) error {
	r, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !model.CanPerform(model.ActionNoShow, r.Status, r.Start, r.End, s.now()) {
		return fmt.Errorf("%w: reservation has not started or is not live", model.ErrNotPermitted)
	}
	return s.transition(ctx, id, r.Status, model.StatusNoShow)
}

// UserBooking is a reservation decorated for display.
type UserBooking struct {
	model.Reservation
	Display         model.Display  `json:"display"`
	DateStatus      string         `json:"date_status"` // "upcoming" or "past"
	DurationMinutes int            `json:"duration"`
	Actions         []model.Action `json:"actions,omitempty"`
}

// UserBookings returns a user's reservations with display status, the
// upcoming/past split and the currently permitted actions.
func (s *Service) UserBookings(ctx context.Context, userID string) ([]UserBooking, error) {
	reservations, err := s.reservations.ByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}

	now := s.now()
	out := make([]UserBooking, 0, len(reservations))
	for _, r := range reservations {
		dateStatus := "past"
		if !r.End.Before(now) {
			dateStatus = "upcoming"
		}
		out = append(out, UserBooking{
			Reservation:     r,
			Display:         model.DisplayStatus(r.Status, r.Start, r.End, now),
			DateStatus:      dateStatus,
			DurationMinutes: int(r.Duration() / time.Minute),
			Actions:         model.AllowedActions(r.Status, r.Start, r.End, now),
		})
	}
	return out, nil
}

func (s *Service) policyFor(ctx context.Context, kind model.ResourceKind) (model.Policy, error) {
	policy, err := s.policies.PolicyFor(ctx, kind)
	if err != nil {
		return model.Policy{}, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	if err := policy.Validate(); err != nil {
		return model.Policy{}, err
	}
	return policy, nil
}

func (s *Service) resolveWeek(ctx context.Context, kind model.ResourceKind, stationID string) (schedule.Weekly, error) {
	specific, global, err := s.schedules.Rows(ctx, kind, stationID)
	if err != nil {
		return schedule.Weekly{}, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	week, err := schedule.Resolve(specific, global)
	if err != nil {
		return schedule.Weekly{}, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	return week, nil
}

// dayReservations fetches the blocking reservations around the local day
// that t falls on. The range is generous on both sides; the engine's own
// overlap tests are exact.
func (s *Service) dayReservations(ctx context.Context, kind model.ResourceKind, stationID string, week schedule.Weekly, t time.Time) ([]model.Reservation, error) {
	loc := week.Location()
	day := timegrid.LocalStartOfDay(t, loc)
	reservations, err := s.reservations.Blocking(ctx, kind, stationID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	return reservations, nil
}

func (s *Service) get(ctx context.Context, id string) (*model.Reservation, error) {
	r, err := s.reservations.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	return r, nil
}

func (s *Service) transition(ctx context.Context, id, from, to string) error {
	if err := s.reservations.UpdateStatus(ctx, id, from, to); err != nil {
		if errors.Is(err, model.ErrNotPermitted) || errors.Is(err, model.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	metrics.IncStatusTransition(to)
	s.logger.Info().Str("id", id).Str("from", from).Str("to", to).Msg("reservation status changed")
	return nil
}

func (s *Service) allowAttempt(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	lim, ok := s.perUser[userID]
	if !ok {
		lim = rate.NewLimiter(s.attemptRate, s.burst)
		s.perUser[userID] = lim
	}
	return lim.Allow()
}
