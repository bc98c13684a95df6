package core

import (
	"context"
	"log/slog"
	"time"

	"impactgo/pkg/queue"
	"impactgo/pkg/tracker"
)

// NewCleanupJob drops finished queue items and rolls the daily counters
// over at midnight.
func NewCleanupJob(q *queue.Manager, daily *tracker.DailyCounters, interval time.Duration) *TimeJob {
	return NewTimeJob("Cleanup", interval, func(ctx context.Context, _ time.Time) {
		q.Cleanup(ctx)
		if daily != nil {
			daily.Rollover(ctx)
		}
	})
}

// NewHeartbeatJob logs a periodic status line so a quiet off-season log
// still shows the process alive.
func NewHeartbeatJob(q *queue.Manager, daily *tracker.DailyCounters, trk *tracker.Tracker,
	started time.Time, interval time.Duration) *TimeJob {
	return NewTimeJob("Heartbeat", interval, func(ctx context.Context, now time.Time) {
		args := []any{
			"uptime", now.Sub(started).Round(time.Second),
			"queue", q.Len(),
		}
		if daily != nil {
			snap := daily.Snapshot()
			args = append(args, "queued_today", snap.Queued, "gifs_today", snap.GIFs, "posts_today", snap.Posts)
		}
		if trk != nil {
			for provider, stats := range trk.Snapshot() {
				args = append(args, "api_"+provider,
					stats.APISuccess+stats.APIFailures)
			}
		}
		slog.Info("heartbeat", args...)
	})
}
