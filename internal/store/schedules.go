package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"loungebook/internal/model"
	"loungebook/internal/schedule"
)

// Rows returns the specific-tier rows for the resource and the
// global-tier rows for its kind, in insertion order so that the
// resolver's last-one-wins rule matches the table contents.
func (s *Store) Rows(ctx context.Context, kind model.ResourceKind, stationID string) (specific, global []schedule.Row, err error) {
	specific, err = s.scheduleRows(ctx, schedule.TierSpecific, kind, stationID)
	if err != nil {
		return nil, nil, fmt.Errorf("specific tier: %w", err)
	}
	global, err = s.scheduleRows(ctx, schedule.TierGlobal, kind, "")
	if err != nil {
		return nil, nil, fmt.Errorf("global tier: %w", err)
	}
	return specific, global, nil
}

func (s *Store) scheduleRows(ctx context.Context, tier schedule.Tier, kind model.ResourceKind, stationID string) ([]schedule.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT weekday, open_time, close_time, timezone, closed
		FROM availability_schedules
		WHERE tier = ? AND resource_kind = ? AND station_id = ?
		ORDER BY id`,
		string(tier), string(kind), stationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	var out []schedule.Row
	for rows.Next() {
		var (
			weekday     int
			open, close sql.NullString
			tz          string
			closed      bool
		)
		if err := rows.Scan(&weekday, &open, &close, &tz, &closed); err != nil {
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}
		out = append(out, schedule.Row{
			Weekday:  time.Weekday(weekday),
			Open:     open.String,
			Close:    close.String,
			Timezone: tz,
			Closed:   closed,
		})
	}
	return out, rows.Err()
}

// ReplaceSchedule atomically swaps the stored rows for one
// (tier, kind, station) scope. Rows are validated before any write.
func (s *Store) ReplaceSchedule(ctx context.Context, tier schedule.Tier, kind model.ResourceKind, stationID string, rows []schedule.Row) error {
	for _, r := range rows {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("schedule row for %s: %w", r.Weekday, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM availability_schedules
		WHERE tier = ? AND resource_kind = ? AND station_id = ?`,
		string(tier), string(kind), stationID,
	)
	if err != nil {
		return fmt.Errorf("clear schedule: %w", err)
	}

	for _, r := range rows {
		var open, close any
		if !r.Closed {
			open, close = r.Open, r.Close
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO availability_schedules
				(tier, resource_kind, station_id, weekday, open_time, close_time, timezone, closed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(tier), string(kind), stationID, int(r.Weekday), open, close, r.Timezone, r.Closed,
		)
		if err != nil {
			return fmt.Errorf("insert schedule row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info().
		Str("tier", string(tier)).
		Str("kind", string(kind)).
		Str("station_id", stationID).
		Int("rows", len(rows)).
		Msg("schedule replaced")
	return nil
}
