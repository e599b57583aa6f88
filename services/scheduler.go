package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"tvcms/metrics"
)

const (
	TempSweepSchedule       = "@every 30m"
	PermissionPurgeSchedule = "@hourly"
)

// TempSweeper removes staged uploads left behind by crashed requests
type TempSweeper struct {
	dir    string
	maxAge time.Duration
	log    *logrus.Logger
	now    func() time.Time
}

func NewTempSweeper(dir string, maxAge time.Duration, log *logrus.Logger) *TempSweeper {
	return &TempSweeper{dir: dir, maxAge: maxAge, log: log, now: time.Now}
}

// Sweep deletes regular files in the temp directory older than maxAge
func (ts *TempSweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(ts.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read temp directory: %w", err)
	}

	cutoff := ts.now().Add(-ts.maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(ts.dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			ts.log.WithError(err).WithField("path", path).Warn("Failed to remove stale temp file")
			continue
		}
		removed++
	}

	if removed > 0 {
		metrics.TempFilesSwept.Add(float64(removed))
		ts.log.WithField("count", removed).Info("Stale temp files removed")
	}
	return removed, nil
}

// Scheduler runs periodic maintenance jobs
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

func NewScheduler(log *logrus.Logger, sweeper *TempSweeper, permissions *PermissionService) (*Scheduler, error) {
	logger := cron.PrintfLogger(log)
	c := cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))

	if _, err := c.AddFunc(TempSweepSchedule, func() {
		if _, err := sweeper.Sweep(); err != nil {
			log.WithError(err).Error("Temp sweep failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule temp sweep: %w", err)
	}

	if _, err := c.AddFunc(PermissionPurgeSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := permissions.PurgeExpired(ctx); err != nil {
			log.WithError(err).Error("Permission purge failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule permission purge: %w", err)
	}

	return &Scheduler{cron: c, log: log}, nil
}

// Start runs the jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithField("jobs", len(s.cron.Entries())).Info("Scheduler started")
}

// Stop waits for running jobs to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
