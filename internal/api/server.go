// Package api exposes the booking service over HTTP JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"loungebook/internal/booking"
	"loungebook/internal/export"
	"loungebook/internal/model"
)

// BookingService is the service surface the handlers need.
type BookingService interface {
	AvailableDates(ctx context.Context, kind model.ResourceKind, stationID string) ([]time.Time, error)
	AvailableStartTimes(ctx context.Context, kind model.ResourceKind, stationID string, date time.Time) ([]time.Time, error)
	AvailableDurations(ctx context.Context, kind model.ResourceKind, stationID string, start time.Time) ([]int, error)
	Book(ctx context.Context, req booking.BookRequest) (*model.Reservation, error)
	Cancel(ctx context.Context, id string) error
	Approve(ctx context.Context, id string) error
	Deny(ctx context.Context, id string) error
	MarkNoShow(ctx context.Context, id string) error
	UserBookings(ctx context.Context, userID string) ([]booking.UserBooking, error)
}

// Server serves the booking API.
type Server struct {
	service BookingService
	exports export.ReservationLister
	apiKey  string
	logger  *zerolog.Logger
	http    *http.Server
}

// New builds the API server. apiKey guards mutating endpoints when
// non-empty; exports may be nil to disable the report endpoint.
func New(addr string, service BookingService, exports export.ReservationLister, apiKey string, logger *zerolog.Logger) *Server {
	s := &Server{
		service: service,
		exports: exports,
		apiKey:  apiKey,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/availability/dates", s.handleDates)
	mux.HandleFunc("/api/availability/start-times", s.handleStartTimes)
	mux.HandleFunc("/api/availability/durations", s.handleDurations)
	mux.HandleFunc("/api/bookings", s.handleBookings)
	mux.HandleFunc("/api/bookings/cancel", s.transitionHandler("cancel", service.Cancel))
	mux.HandleFunc("/api/bookings/approve", s.transitionHandler("approve", service.Approve))
	mux.HandleFunc("/api/bookings/deny", s.transitionHandler("deny", service.Deny))
	mux.HandleFunc("/api/bookings/no-show", s.transitionHandler("no-show", service.MarkNoShow))
	mux.HandleFunc("/api/export/reservations", s.handleExport)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("api server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors onto HTTP statuses. Slot
// conflicts are client-recoverable (pick a different time); data
// failures are not.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many booking attempts; slow down")
	case errors.Is(err, model.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot unavailable; pick a different time")
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "reservation not found")
	case errors.Is(err, model.ErrNotPermitted):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrDataUnavailable):
		s.logger.Error().Err(err).Msg("data unavailable")
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable; try again")
	default:
		s.logger.Error().Err(err).Msg("unhandled service error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.apiKey == "" {
		return true
	}
	return r.Header.Get("X-API-Key") == s.apiKey
}
