// Package database runs scheduled snapshots of the local document store.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"showroom/internal/config"
	"showroom/internal/metrics"
)

const backupPrefix = "showroom_"

// Snapshotter writes a consistent copy of a database to dest.
type Snapshotter interface {
	Backup(ctx context.Context, dest string) error
}

type BackupService struct {
	db     Snapshotter
	config config.BackupConfig
	now    func() time.Time
	logger *zerolog.Logger
}

func NewBackupService(db Snapshotter, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	l := logger.With().Str("component", "backup").Logger()
	if cfg.StoragePath == "" {
		cfg.StoragePath = "data/backups"
	}
	return &BackupService{
		db:     db,
		config: cfg,
		now:    time.Now,
		logger: &l,
	}
}

// Schedule registers the backup job on c. A disabled service registers nothing.
func (s *BackupService) Schedule(c *cron.Cron) error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return nil
	}
	spec := s.config.Schedule
	if spec == "" {
		spec = "@daily"
	}
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := s.PerformBackup(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Scheduled backup failed")
		}
		s.CleanupOldBackups()
	})
	if err != nil {
		return fmt.Errorf("schedule backup %q: %w", spec, err)
	}
	s.logger.Info().Str("schedule", spec).Msg("Backup service scheduled")
	return nil
}

// PerformBackup writes a timestamped snapshot and returns its path.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		metrics.IncBackup("error")
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := s.now().Format("20060102_150405")
	backupPath := filepath.Join(s.config.StoragePath, fmt.Sprintf("%s%s.db", backupPrefix, timestamp))

	s.logger.Info().Str("path", backupPath).Msg("Performing database backup")

	if err := s.db.Backup(ctx, backupPath); err != nil {
		metrics.IncBackup("error")
		return "", fmt.Errorf("snapshot: %w", err)
	}

	metrics.IncBackup("ok")
	s.logger.Info().Msg("Backup completed successfully")
	return backupPath, nil
}

// CleanupOldBackups deletes snapshots older than the retention window.
// Files not written by this service are left alone.
func (s *BackupService) CleanupOldBackups() int {
	if s.config.RetentionDays <= 0 {
		return 0
	}

	files, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return 0
	}

	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)
	removed := 0

	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), backupPrefix) {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("Deleting old backup")
			if err := os.Remove(filepath.Join(s.config.StoragePath, file.Name())); err != nil {
				s.logger.Warn().Err(err).Str("file", file.Name()).Msg("Failed to delete old backup")
				continue
			}
			removed++
		}
	}
	return removed
}
