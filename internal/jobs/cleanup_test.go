package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	deleted int64
	err     error
}

func (f *fakePruner) DeleteIdleBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.deleted, f.err
}

func (f *fakePruner) calls() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.cutoffs...)
}

func TestRunUsesTTLCutoff(t *testing.T) {
	pruner := &fakePruner{deleted: 3}
	job := NewCleanupJob(pruner, CleanupConfig{Schedule: "0 3 * * *", TTL: 48 * time.Hour}, zap.NewNop())

	before := time.Now().Add(-48 * time.Hour)
	job.Run()
	after := time.Now().Add(-48 * time.Hour)

	calls := pruner.calls()
	if len(calls) != 1 {
		t.Fatalf("sweeps = %d, want 1", len(calls))
	}
	if calls[0].Before(before) || calls[0].After(after) {
		t.Fatalf("cutoff %v outside [%v, %v]", calls[0], before, after)
	}
}

func TestRunSurvivesStoreFailure(t *testing.T) {
	pruner := &fakePruner{err: errors.New("connection reset")}
	job := NewCleanupJob(pruner, CleanupConfig{Schedule: "0 3 * * *", TTL: time.Hour}, zap.NewNop())
	job.Run() // logs and returns
	if len(pruner.calls()) != 1 {
		t.Fatalf("sweep did not reach the store")
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	job := NewCleanupJob(&fakePruner{}, CleanupConfig{Schedule: "not a cron expr", TTL: time.Hour}, zap.NewNop())
	if err := job.Start(); err == nil {
		job.Stop()
		t.Fatalf("invalid schedule accepted")
	}
}

func TestStartStop(t *testing.T) {
	job := NewCleanupJob(&fakePruner{}, CleanupConfig{Schedule: "@every 1h", TTL: time.Hour}, zap.NewNop())
	if err := job.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	job.Stop()
}
