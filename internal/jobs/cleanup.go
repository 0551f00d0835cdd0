package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SessionPruner captures the store operation the cleanup job needs.
type SessionPruner interface {
	DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupConfig controls the stale-session sweep.
type CleanupConfig struct {
	Schedule string        // cron expression, e.g. "0 3 * * *"
	TTL      time.Duration // sessions idle longer than this are removed
}

// CleanupJob periodically deletes sessions nobody has touched in a while.
// Active sessions stay fresh because every accepted edit writes through to
// the store, bumping updated_at.
type CleanupJob struct {
	store SessionPruner
	cfg   CleanupConfig
	log   *zap.Logger
	cron  *cron.Cron
}

func NewCleanupJob(store SessionPruner, cfg CleanupConfig, log *zap.Logger) *CleanupJob {
	return &CleanupJob{store: store, cfg: cfg, log: log}
}

func (j *CleanupJob) Start() error {
	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.cfg.Schedule, j.Run); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

func (j *CleanupJob) Stop() {
	if j.cron != nil {
		j.cron.Stop()
	}
}

// Run executes one sweep. Exported so tests and operators can trigger it
// outside the schedule.
func (j *CleanupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.cfg.TTL)
	deleted, err := j.store.DeleteIdleBefore(ctx, cutoff)
	if err != nil {
		j.log.Error("session cleanup failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		j.log.Info("stale sessions removed",
			zap.Int64("count", deleted),
			zap.Time("cutoff", cutoff))
	}
}
