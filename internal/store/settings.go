package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"loungebook/internal/model"
)

// Settings keys backing the booking policies. Missing or unparseable
// values fall back to the per-kind defaults.
const (
	keyLoungeMinBookingMinutes  = "lounge_min_booking_minutes"
	keyLoungeMaxBookingMinutes  = "lounge_max_booking_minutes"
	keyLoungeMaxDaysInAdvance   = "lounge_max_days_in_advance"
	keyStationMinBookingMinutes = "station_min_booking_minutes"
	keyStationMaxBookingMinutes = "station_max_booking_minutes"
	keyStationMaxDaysInAdvance  = "station_max_days_in_advance"
)

// PolicyFor assembles the booking policy for a resource kind from the
// settings table, filling gaps from model.DefaultPolicy.
func (s *Store) PolicyFor(ctx context.Context, kind model.ResourceKind) (model.Policy, error) {
	def := model.DefaultPolicy(kind)

	minKey, maxKey, advKey := keyLoungeMinBookingMinutes, keyLoungeMaxBookingMinutes, keyLoungeMaxDaysInAdvance
	if kind == model.KindStation {
		minKey, maxKey, advKey = keyStationMinBookingMinutes, keyStationMaxBookingMinutes, keyStationMaxDaysInAdvance
	}

	p := model.Policy{
		MinMinutes:     s.intSetting(ctx, minKey, def.MinMinutes),
		MaxMinutes:     s.intSetting(ctx, maxKey, def.MaxMinutes),
		MaxDaysAdvance: s.intSetting(ctx, advKey, def.MaxDaysAdvance),
	}
	return p, nil
}

// SetSetting upserts one settings value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// Setting returns one settings value or model.ErrNotFound.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: setting %s", model.ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) intSetting(ctx context.Context, key string, fallback int) int {
	value, err := s.Setting(ctx, key)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			s.logger.Warn().Err(err).Str("key", key).Msg("settings read failed, using default")
		}
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		s.logger.Warn().Str("key", key).Str("value", value).Msg("unparseable setting, using default")
		return fallback
	}
	return n
}
