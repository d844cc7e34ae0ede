// Package purge removes expired event tombstones on a schedule. Until a
// tombstone is purged its DAV path stays retired and cannot be reused.
package purge

import (
	"context"
	"log/slog"
	"time"

	"github.com/cyp0633/caldora/server/storage"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the tombstone purge on a cron spec.
type Scheduler struct {
	cron      *cron.Cron
	store     storage.Storage
	retention time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewScheduler creates a Scheduler that removes tombstones older than retention.
func NewScheduler(store storage.Storage, retention time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:      cron.New(),
		store:     store,
		retention: retention,
		timeout:   time.Minute,
		logger:    logger,
		now:       time.Now,
	}
}

// Start schedules the purge with spec (standard cron syntax or a descriptor
// such as "@hourly") and starts the scheduler.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("tombstone purge scheduled", "schedule", spec, "retention", s.retention)
	return nil
}

// Stop waits for a running purge to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce purges every tombstone older than the retention period.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	before := s.now().Add(-s.retention)
	purged, err := s.store.PurgeTombstones(ctx, before)
	if err != nil {
		s.logger.Error("tombstone purge failed", "error", err)
		return 0, err
	}
	if purged > 0 {
		s.logger.Info("tombstones purged", "count", purged, "before", before)
	}
	return purged, nil
}
