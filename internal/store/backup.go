package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// BackupConfig controls the periodic database backup loop.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Backups copies the sqlite file to a timestamped backup on an interval
// and prunes old copies.
type Backups struct {
	store  *Store
	dbPath string
	cfg    BackupConfig
	logger *zerolog.Logger
}

// NewBackups creates the backup loop for the database at dbPath.
func NewBackups(s *Store, dbPath string, cfg BackupConfig, logger *zerolog.Logger) *Backups {
	return &Backups{store: s, dbPath: dbPath, cfg: cfg, logger: logger}
}

// Start runs the backup loop until ctx is cancelled. The first backup
// runs immediately.
func (b *Backups) Start(ctx context.Context) {
	if !b.cfg.Enabled {
		b.logger.Info().Msg("backups disabled")
		return
	}

	interval := time.Duration(b.cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	b.logger.Info().Dur("interval", interval).Str("path", b.cfg.Path).Msg("backup loop started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := b.Run(ctx); err != nil {
		b.logger.Error().Err(err).Msg("initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.Run(ctx); err != nil {
				b.logger.Error().Err(err).Msg("scheduled backup failed")
			}
			b.pruneOld()
		}
	}
}

// Run performs one backup. The WAL is checkpointed first so the copied
// main file contains all committed writes.
func (b *Backups) Run(ctx context.Context) error {
	if err := os.MkdirAll(b.cfg.Path, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	if _, err := b.store.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpoint wal: %w", err)
	}

	name := fmt.Sprintf("loungebook_%s.db", time.Now().Format("20060102_150405"))
	dst := filepath.Join(b.cfg.Path, name)

	source, err := os.Open(b.dbPath)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return err
	}

	b.logger.Info().Str("path", dst).Msg("backup completed")
	return nil
}

func (b *Backups) pruneOld() {
	if b.cfg.RetentionDays <= 0 {
		return
	}

	files, err := os.ReadDir(b.cfg.Path)
	if err != nil {
		b.logger.Error().Err(err).Msg("read backup directory for pruning")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -b.cfg.RetentionDays)
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			b.logger.Info().Str("file", f.Name()).Msg("deleting old backup")
			_ = os.Remove(filepath.Join(b.cfg.Path, f.Name()))
		}
	}
}
