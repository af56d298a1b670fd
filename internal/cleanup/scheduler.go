// Package cleanup prunes stale uploads and recreates output directories.
package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler handles cleanup of temporary files
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	log      zerolog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(tempDir string, intervalMinutes, maxAgeHours int, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		tempDir:  tempDir,
		interval: time.Duration(intervalMinutes) * time.Minute,
		maxAge:   time.Duration(maxAgeHours) * time.Hour,
		log:      log.With().Str("component", "cleanup").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start runs one pass immediately, then one per interval until Stop.
func (s *Scheduler) Start() {
	s.CleanOldFiles(time.Now())

	if s.interval <= 0 {
		s.log.Warn().Msg("Cleanup interval not positive, periodic cleanup disabled")
		return
	}
	ticker := time.NewTicker(s.interval)

	go func() {
		for {
			select {
			case now := <-ticker.C:
				s.CleanOldFiles(now)
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	s.log.Info().
		Dur("interval", s.interval).
		Dur("max_age", s.maxAge).
		Msg("Cleanup scheduler started")
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.log.Info().Msg("Cleanup scheduler stopped")
	})
}

// CleanOldFiles removes files older than the max age from the temp
// directory and returns how many were deleted.
func (s *Scheduler) CleanOldFiles(now time.Time) int {
	var deletedCount int
	var deletedSize int64

	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if info.IsDir() {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			return nil
		}
		if err := os.Remove(path); err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("Failed to delete old file")
			return nil
		}
		deletedCount++
		deletedSize += info.Size()
		s.log.Debug().
			Str("file", filepath.Base(path)).
			Dur("age", age.Round(time.Hour)).
			Msg("Deleted old temp file")
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Error during cleanup")
	}

	if deletedCount > 0 {
		s.log.Info().
			Int("files", deletedCount).
			Float64("freed_mb", float64(deletedSize)/(1024*1024)).
			Msg("Cleanup complete")
	}
	return deletedCount
}

// EnsureDirExists creates the directory if it doesn't exist
func EnsureDirExists(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

// RecreateDir deletes dir with everything in it and creates it empty.
func RecreateDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	return EnsureDirExists(dir)
}
