package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"loungebook/internal/model"
)

const reservationColumns = `id, resource_kind, station_id, booked_by, name, description,
	start_time, end_time, status, created_at, updated_at`

// Statuses that consume grid slots. Pending lounge requests are advisory
// until approved.
const blockingStatuses = `('confirmed', 'approved', 'noshow')`

// Blocking returns the reservations that consume availability for the
// resource and overlap [from, to). A station query also sees lounge-wide
// reservations, since booking the whole lounge blocks every station; a
// lounge query sees lounge reservations only.
func (s *Store) Blocking(ctx context.Context, kind model.ResourceKind, stationID string, from, to time.Time) ([]model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status IN ` + blockingStatuses + `
			AND start_time < ? AND end_time > ?`
	args := []any{to.UTC(), from.UTC()}

	if kind == model.KindStation {
		query += ` AND (resource_kind = 'lounge' OR (resource_kind = 'station' AND station_id = ?))`
		args = append(args, stationID)
	} else {
		query += ` AND resource_kind = 'lounge'`
	}
	query += ` ORDER BY start_time`

	return s.queryReservations(ctx, query, args...)
}

// CreateLocked inserts the reservation behind the commit-time
// serialization point: the overlap check and the insert run in one
// transaction, so of two racing bookings for the same window exactly one
// lands and the other gets model.ErrSlotUnavailable. Pending rows do not
// count as conflicts.
func (s *Store) CreateLocked(ctx context.Context, r *model.Reservation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		SELECT COUNT(*)
		FROM reservations
		WHERE status IN ` + blockingStatuses + `
			AND start_time < ? AND end_time > ?`
	args := []any{r.End.UTC(), r.Start.UTC()}
	if r.Kind == model.KindStation {
		query += ` AND (resource_kind = 'lounge' OR (resource_kind = 'station' AND station_id = ?))`
		args = append(args, r.StationID)
	} else {
		query += ` AND resource_kind = 'lounge'`
	}

	var conflicts int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&conflicts); err != nil {
		return fmt.Errorf("check conflicts: %w", err)
	}
	if conflicts > 0 {
		return fmt.Errorf("%w: window already taken", model.ErrSlotUnavailable)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind), r.StationID, r.BookedBy, r.Name, r.Description,
		r.Start.UTC(), r.End.UTC(), r.Status, r.CreatedAt.UTC(), r.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get returns one reservation or model.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*model.Reservation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations WHERE id = ?`, id)

	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: reservation %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateStatus transitions id from one status to another. The from guard
// runs inside the UPDATE, so a transition that raced with another writer
// fails with model.ErrNotPermitted instead of silently clobbering it.
func (s *Store) UpdateStatus(ctx context.Context, id, from, to string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reservations SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: reservation %s is no longer %s", model.ErrNotPermitted, id, from)
	}
	return nil
}

// ByUser returns all of a user's reservations, newest window first.
func (s *Store) ByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	return s.queryReservations(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE booked_by = ?
		ORDER BY start_time DESC`, userID)
}

// ListBetween returns every reservation whose window overlaps [from, to),
// regardless of status. Feed for reporting.
func (s *Store) ListBetween(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	return s.queryReservations(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE start_time < ? AND end_time > ?
		ORDER BY start_time`, to.UTC(), from.UTC())
}

// ListByStatus returns reservations in a given status, oldest window
// first. Used for the pending-approval queue.
func (s *Store) ListByStatus(ctx context.Context, status string) ([]model.Reservation, error) {
	return s.queryReservations(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE status = ?
		ORDER BY start_time`, status)
}

func (s *Store) queryReservations(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var (
		r    model.Reservation
		kind string
	)
	err := row.Scan(
		&r.ID, &kind, &r.StationID, &r.BookedBy, &r.Name, &r.Description,
		&r.Start, &r.End, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan reservation: %w", err)
	}
	r.Kind = model.ResourceKind(kind)
	return &r, nil
}
