package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"loungebook/internal/booking"
	"loungebook/internal/export"
	"loungebook/internal/model"
)

func parseKind(r *http.Request) (model.ResourceKind, string, error) {
	kind := model.ResourceKind(r.URL.Query().Get("kind"))
	stationID := r.URL.Query().Get("station_id")
	switch kind {
	case model.KindLounge:
		if stationID != "" {
			return "", "", fmt.Errorf("station_id is not valid for lounge queries")
		}
	case model.KindStation:
		if stationID == "" {
			return "", "", fmt.Errorf("station_id is required for station queries")
		}
	default:
		return "", "", fmt.Errorf("kind must be %q or %q", model.KindLounge, model.KindStation)
	}
	return kind, stationID, nil
}

// handleDates returns bookable dates.
// GET /api/availability/dates?kind=station&station_id=st-1
func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	kind, stationID, err := parseKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dates, err := s.service.AvailableDates(r.Context(), kind, stationID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format("2006-01-02"))
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": out})
}

// handleStartTimes returns the free start times on a date.
// GET /api/availability/start-times?kind=station&station_id=st-1&date=2026-03-02
func (s *Server) handleStartTimes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	kind, stationID, err := parseKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseDateParam(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	starts, err := s.service.AvailableStartTimes(r.Context(), kind, stationID, date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]string, 0, len(starts))
	for _, t := range starts {
		out = append(out, t.Format(time.RFC3339))
	}
	writeJSON(w, http.StatusOK, map[string]any{"start_times": out})
}

// handleDurations returns the legal booking lengths from a start time.
// GET /api/availability/durations?kind=station&station_id=st-1&start=2026-03-02T10:00:00-04:00
func (s *Server) handleDurations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	kind, stationID, err := parseKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected RFC3339 timestamp")
		return
	}

	durations, err := s.service.AvailableDurations(r.Context(), kind, stationID, start)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"durations": durations})
}

// parseDateParam parses a YYYY-MM-DD calendar date. The instant is
// pinned to noon UTC so that converting it into any resource timezone
// within twelve hours of UTC lands on the same calendar day.
func parseDateParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format; expected YYYY-MM-DD")
	}
	return d.Add(12 * time.Hour), nil
}

// BookingRequest is the request body for POST /api/bookings.
type BookingRequest struct {
	ResourceKind string `json:"resource_kind"`
	StationID    string `json:"station_id,omitempty"`
	BookedBy     string `json:"booked_by"`
	Name         string `json:"name,omitempty"`
	Description  string `json:"description,omitempty"`
	Start        string `json:"start_timestamp"` // RFC3339
	End          string `json:"end_timestamp"`   // RFC3339
}

// handleBookings creates a reservation or lists a user's reservations.
// POST /api/bookings | GET /api/bookings?user=user-1
func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleUserBookings(w, r)
	case http.MethodPost:
		s.handleCreateBooking(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid or missing API key")
		return
	}

	var req BookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_timestamp; expected RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_timestamp; expected RFC3339")
		return
	}

	reservation, err := s.service.Book(r.Context(), booking.BookRequest{
		Kind:        model.ResourceKind(req.ResourceKind),
		StationID:   req.StationID,
		BookedBy:    req.BookedBy,
		Name:        req.Name,
		Description: req.Description,
		Start:       start,
		End:         end,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservation)
}

func (s *Server) handleUserBookings(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	bookings, err := s.service.UserBookings(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// TransitionRequest is the request body for the status endpoints.
type TransitionRequest struct {
	ID string `json:"id"`
}

func (s *Server) transitionHandler(name string, apply func(ctx context.Context, id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if !s.authorized(r) {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}

		var req TransitionRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil || req.ID == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}

		if err := apply(r.Context(), req.ID); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.logger.Info().Str("id", req.ID).Str("action", name).Msg("reservation transition applied")
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// handleExport streams an Excel workbook of reservations in a window.
// GET /api/export/reservations?from=2026-03-01&to=2026-03-31&tz=America/Halifax
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid or missing API key")
		return
	}
	if s.exports == nil {
		writeError(w, http.StatusNotFound, "exports disabled")
		return
	}

	from, err := parseDateParam(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from; expected YYYY-MM-DD")
		return
	}
	to, err := parseDateParam(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to; expected YYYY-MM-DD")
		return
	}
	if !from.Before(to) {
		writeError(w, http.StatusBadRequest, "from must be before to")
		return
	}

	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid tz; expected IANA zone name")
			return
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="reservations.xlsx"`)
	if err := export.Reservations(r.Context(), s.exports, from, to, loc, w); err != nil {
		s.logger.Error().Err(err).Msg("export failed")
	}
}
