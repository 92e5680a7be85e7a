package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"pdf-insight-backend/internal/logger"
)

// RescanScheduler periodically rescans the upload directory so PDFs dropped
// in out-of-band still get indexed. Rescans are idempotent, so overlapping
// schedules are harmless; gocron's singleton mode prevents them anyway.
type RescanScheduler struct {
	scheduler *gocron.Scheduler
	index     *SemanticIndex
	dir       string
	interval  time.Duration
}

// NewRescanScheduler creates a scheduler for the given index and directory.
func NewRescanScheduler(index *SemanticIndex, dir string, interval time.Duration) *RescanScheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &RescanScheduler{
		scheduler: s,
		index:     index,
		dir:       dir,
		interval:  interval,
	}
}

// Start schedules the rescan job and runs the scheduler in the background.
func (rs *RescanScheduler) Start() error {
	_, err := rs.scheduler.Every(rs.interval).
		Tag("rescan-uploads").
		SingletonMode().
		Do(rs.run)
	if err != nil {
		return err
	}
	rs.scheduler.StartAsync()
	logger.Info("Rescan scheduler started", "dir", rs.dir, "interval", rs.interval.String())
	return nil
}

// Stop halts the scheduler; a rescan already in flight runs to completion.
func (rs *RescanScheduler) Stop() {
	rs.scheduler.Stop()
}

func (rs *RescanScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	scan, err := rs.index.ScanAndIngest(ctx, rs.dir)
	if err != nil {
		logger.Error("Scheduled rescan failed", "error", err)
		return
	}
	if scan.Ingested > 0 {
		logger.Info("Scheduled rescan ingested new documents", "ingested", scan.Ingested, "scanned", scan.Scanned)
	}
}
