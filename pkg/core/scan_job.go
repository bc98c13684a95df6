package core

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"impactgo/pkg/config"
	"impactgo/pkg/metrics"
	"impactgo/pkg/model"
	"impactgo/pkg/queue"
	"impactgo/pkg/savant"
	"impactgo/pkg/scorer"
	"impactgo/pkg/tracker"
)

// GameSource provides schedule and play-by-play data.
type GameSource interface {
	LiveGames(ctx context.Context, now time.Time, recentWindow time.Duration, offseasonLookback int) ([]model.Game, error)
	Plays(ctx context.Context, gamePK int) ([]model.Play, error)
}

// WPSource provides Savant win-probability lookups.
type WPSource interface {
	WinProbability(ctx context.Context, play *model.Play, gameDate string) (*savant.Match, error)
}

// ScanJob polls the schedule, scores every play of every live game, and
// queues the marquee ones. One cycle per poll interval; a failed schedule
// fetch retries on the error cadence instead.
type ScanJob struct {
	BaseJob
	config  *config.Config
	games   GameSource
	savant  WPSource
	scorer  *scorer.Scorer
	queue   *queue.Manager
	daily   *tracker.DailyCounters
	metrics *metrics.Metrics
	logger  *slog.Logger

	// mu guards lastTime and firstRun; Run executes on a scheduler-spawned
	// goroutine while ShouldFire polls from the tick loop.
	mu       sync.Mutex
	lastTime time.Time
	interval time.Duration
	firstRun bool
	scans    int64
	paused   int32
}

// NewScanJob creates the scan job. savant, daily and metrics may be nil.
func NewScanJob(cfg *config.Config, games GameSource, sv WPSource, sc *scorer.Scorer,
	q *queue.Manager, daily *tracker.DailyCounters, m *metrics.Metrics) *ScanJob {
	return &ScanJob{
		BaseJob:  NewBaseJob("Scan"),
		config:   cfg,
		games:    games,
		savant:   sv,
		scorer:   sc,
		queue:    q,
		daily:    daily,
		metrics:  m,
		logger:   slog.With("component", "scan"),
		interval: time.Duration(cfg.Monitor.PollInterval),
		firstRun: true,
	}
}

func (j *ScanJob) ShouldFire(now time.Time) bool {
	if atomic.LoadInt32(&j.running) == 1 || j.Paused() {
		return false
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.firstRun {
		return true
	}
	return now.Sub(j.lastTime) >= j.interval
}

// SetPaused suspends or resumes the polling cycle. Queued items keep being
// enriched while paused; only new scans stop.
func (j *ScanJob) SetPaused(paused bool) {
	var v int32
	if paused {
		v = 1
	}
	atomic.StoreInt32(&j.paused, v)
	j.logger.Info("monitoring state changed", "paused", paused)
}

func (j *ScanJob) Paused() bool {
	return atomic.LoadInt32(&j.paused) == 1
}

func (j *ScanJob) Run(ctx context.Context, now time.Time) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.mu.Lock()
	j.lastTime = now
	j.firstRun = false
	j.mu.Unlock()

	j.Scan(ctx, now)
}

// Scan runs one polling cycle.
func (j *ScanJob) Scan(ctx context.Context, now time.Time) {
	start := time.Now()
	j.scans++

	games, err := j.games.LiveGames(ctx, now,
		time.Duration(j.config.Monitor.RecentGameWindow), j.config.Monitor.OffseasonLookback)
	if err != nil {
		j.logger.Warn("schedule scan failed", "error", err)
		// Retry on the error cadence rather than the full poll interval.
		j.mu.Lock()
		j.lastTime = now.Add(time.Duration(j.config.Monitor.ErrorRetry) - j.interval)
		j.mu.Unlock()
		return
	}

	var playsChecked, marqueeFound int
	for _, game := range games {
		plays, err := j.games.Plays(ctx, game.GamePK)
		if err != nil {
			j.logger.Warn("play feed failed", "game_pk", game.GamePK, "error", err)
			continue
		}
		if j.metrics != nil {
			j.metrics.GamesScanned.Inc()
		}

		playsChecked += len(plays)
		for i := range plays {
			if j.scanPlay(ctx, &game, &plays[i]) {
				marqueeFound++
			}
		}
	}

	elapsed := time.Since(start)
	if j.metrics != nil {
		j.metrics.ScanCycles.Inc()
		j.metrics.ScanDuration.Observe(elapsed.Seconds())
		j.metrics.QueueDepth.Set(float64(j.queue.Len()))
	}

	j.logger.Info("scan complete",
		"scan", j.scans, "duration", elapsed.Round(time.Millisecond),
		"games", len(games), "plays", playsChecked, "marquee", marqueeFound,
		"queue", j.queue.Len())
}

// scanPlay scores one play and queues it when it clears the marquee bar.
// Returns true when the play was accepted into the queue.
func (j *ScanJob) scanPlay(ctx context.Context, game *model.Game, play *model.Play) bool {
	if j.queue.Seen(play.Key()) {
		return false
	}

	score := j.scorer.Impact(play)
	if j.metrics != nil {
		j.metrics.PlaysScored.Inc()
	}

	// Significant plays without Savant data get a lookup now; everything
	// else keeps the heuristic until enrichment refines it.
	if j.savant != nil && play.DeltaHomeWinExp == 0 && score >= j.config.Scorer.SignificantScore {
		if m, err := j.savant.WinProbability(ctx, play, game.GameDate); err == nil && m != nil {
			play.DeltaHomeWinExp = m.Delta
			score = j.scorer.Impact(play)
		}
	}

	if !j.scorer.Marquee(score, play.LeverageIndex) {
		return false
	}

	j.logger.Info("high-impact play detected",
		"key", play.Key().String(), "event", play.Event, "impact", score,
		"leverage", play.LeverageIndex,
		"game", game.AwayTeam+" @ "+game.HomeTeam)

	item := &model.QueuedItem{
		Play:        *play,
		ImpactScore: score,
		GameDate:    game.GameDate,
		HomeTeam:    game.HomeTeam,
		AwayTeam:    game.AwayTeam,
	}
	if !j.queue.Enqueue(ctx, item) {
		return false
	}

	if j.daily != nil {
		j.daily.IncQueued(ctx)
	}
	if j.metrics != nil {
		j.metrics.PlaysQueued.Inc()
	}
	return true
}
