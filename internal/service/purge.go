package service

import (
	"context"
	"log/slog"
	"time"
)

// PurgeJob reclaims expired revocation rows on a fixed schedule. A
// failed run is logged and retried on the next tick; it never takes the
// host process down and holds no locks against the request path.
type PurgeJob struct {
	revocations RevocationStore
	interval    time.Duration
}

func NewPurgeJob(revocations RevocationStore, interval time.Duration) *PurgeJob {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &PurgeJob{revocations: revocations, interval: interval}
}

// Run blocks until ctx is cancelled. Call it on its own goroutine.
func (j *PurgeJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *PurgeJob) runOnce(ctx context.Context) {
	purged, err := j.revocations.PurgeExpired(ctx)
	if err != nil {
		slog.Error("revocation purge failed, will retry next run", "error", err)
		return
	}
	if purged > 0 {
		slog.Info("purged expired revocation records", "count", purged)
	}
}
