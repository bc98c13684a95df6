// Package core runs the scheduled jobs that drive the tracker: the game
// scan, queue cleanup, and the heartbeat.
package core

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Job defines a scheduled task.
type Job interface {
	Name() string
	ShouldFire(now time.Time) bool
	Run(ctx context.Context, now time.Time)
}

// BaseJob provides atomic running state to prevent re-entry.
type BaseJob struct {
	name    string
	running int32 // 1 if running, 0 otherwise
}

func NewBaseJob(name string) BaseJob {
	return BaseJob{name: name}
}

func (b *BaseJob) Name() string {
	return b.name
}

// TryLock attempts to set running to 1. Returns true if successful.
func (b *BaseJob) TryLock() bool {
	return atomic.CompareAndSwapInt32(&b.running, 0, 1)
}

func (b *BaseJob) Unlock() {
	atomic.StoreInt32(&b.running, 0)
}

// TimeJob fires when time elapsed exceeds threshold.
type TimeJob struct {
	BaseJob
	// mu guards lastTime and firstRun; Run executes on a goroutine the
	// scheduler spawns while ShouldFire keeps polling from the tick loop.
	mu        sync.Mutex
	lastTime  time.Time
	threshold time.Duration
	action    func(context.Context, time.Time)
	firstRun  bool
}

func NewTimeJob(name string, threshold time.Duration, action func(context.Context, time.Time)) *TimeJob {
	return &TimeJob{
		BaseJob:   NewBaseJob(name),
		threshold: threshold,
		action:    action,
		firstRun:  true,
	}
}

func (j *TimeJob) ShouldFire(now time.Time) bool {
	if atomic.LoadInt32(&j.running) == 1 {
		return false
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.firstRun {
		return true
	}

	return now.Sub(j.lastTime) >= j.threshold
}

func (j *TimeJob) Run(ctx context.Context, now time.Time) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.mu.Lock()
	j.lastTime = now
	j.firstRun = false
	j.mu.Unlock()

	j.action(ctx, now)
}

// Scheduler manages the central heartbeat and scheduled jobs.
type Scheduler struct {
	tick time.Duration
	jobs []Job
	now  func() time.Time
}

// NewScheduler creates a new Scheduler evaluating jobs at the given tick.
func NewScheduler(tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = time.Second
	}
	return &Scheduler{
		tick: tick,
		jobs: []Job{},
		now:  time.Now,
	}
}

// AddJob registers a job.
func (s *Scheduler) AddJob(j Job) {
	s.jobs = append(s.jobs, j)
}

// Start runs the main loop. It blocks until context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	slog.Info("Scheduler started", "tick", s.tick, "jobs", len(s.jobs))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.evaluate(ctx)
		}
	}
}

func (s *Scheduler) evaluate(ctx context.Context) {
	now := s.now()
	for _, job := range s.jobs {
		if job.ShouldFire(now) {
			// Fire and forget; jobs guard themselves against re-entry.
			go job.Run(ctx, now)
		}
	}
}
