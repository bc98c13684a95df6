// Package enricher drives queued plays through the media pipeline: Savant
// win-probability lookup, clip resolution, GIF conversion, webhook publish.
package enricher

import (
	"context"
	"log/slog"
	"os"
	"time"

	"impactgo/pkg/config"
	"impactgo/pkg/metrics"
	"impactgo/pkg/model"
	"impactgo/pkg/queue"
	"impactgo/pkg/savant"
	"impactgo/pkg/scorer"
	"impactgo/pkg/tracker"
)

// ClipSource provides Savant data for a play.
type ClipSource interface {
	WinProbability(ctx context.Context, play *model.Play, gameDate string) (*savant.Match, error)
	ResolveClip(ctx context.Context, item *model.QueuedItem, m *savant.Match) (string, error)
}

// Converter renders a clip URL into a GIF file.
type Converter interface {
	CreateGIF(ctx context.Context, videoURL, name string) (string, error)
}

// Sender posts a play to the outside world.
type Sender interface {
	Configured() bool
	PublishPlay(ctx context.Context, item *model.QueuedItem, gifPath string) error
}

// Enricher runs the background processing loop.
type Enricher struct {
	config    *config.QueueConfig
	queue     *queue.Manager
	savant    ClipSource
	media     Converter
	publisher Sender
	scorer    *scorer.Scorer
	daily     *tracker.DailyCounters
	metrics   *metrics.Metrics
	logger    *slog.Logger

	now func() time.Time
}

// New creates an enricher. daily and metrics may be nil.
func New(cfg *config.QueueConfig, q *queue.Manager, sv ClipSource, conv Converter,
	pub Sender, sc *scorer.Scorer, daily *tracker.DailyCounters, m *metrics.Metrics) *Enricher {
	return &Enricher{
		config:    cfg,
		queue:     q,
		savant:    sv,
		media:     conv,
		publisher: pub,
		scorer:    sc,
		daily:     daily,
		metrics:   m,
		logger:    slog.With("component", "enricher"),
		now:       time.Now,
	}
}

// Run processes the queue on the configured cadence until ctx is done.
func (e *Enricher) Run(ctx context.Context) {
	interval := time.Duration(e.config.ProcessInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("enricher started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("enricher stopped")
			return
		case <-ticker.C:
			e.Process(ctx)
		}
	}
}

// Process runs one pass over the eligible queue items.
func (e *Enricher) Process(ctx context.Context) {
	items := e.queue.Eligible(e.now())
	for i := range items {
		if ctx.Err() != nil {
			return
		}
		e.processItem(ctx, &items[i])
	}
	if e.metrics != nil {
		e.metrics.QueueDepth.Set(float64(e.queue.Len()))
	}
}

// processItem runs the pipeline for one play. item is this pass's private
// copy; anything that must survive the pass is written back through the
// queue manager. Every early return leaves the item pending; the attempt
// was already counted, the cooldown spaces out the retries.
func (e *Enricher) processItem(ctx context.Context, item *model.QueuedItem) {
	key := item.Key()
	e.queue.MarkAttempt(ctx, key, e.now())
	if e.metrics != nil {
		e.metrics.EnrichAttempts.Inc()
	}

	match := e.enhance(ctx, item)

	gifPath := e.ensureGIF(ctx, item, match)
	if gifPath == "" && e.media != nil {
		// No media yet; try again next cycle unless that was the last shot.
		return
	}

	if err := e.publisher.PublishPlay(ctx, item, gifPath); err != nil {
		e.logger.Warn("publish failed", "key", key.String(), "error", err)
		if e.metrics != nil {
			e.metrics.PublishErrors.Inc()
		}
		return
	}

	e.queue.MarkPublished(ctx, key)
	if e.daily != nil {
		e.daily.IncPosts(ctx)
	}
	if e.metrics != nil {
		e.metrics.PostsPublished.Inc()
	}
	e.logger.Info("play published", "key", key.String(), "event", item.Play.Event,
		"impact", item.ImpactScore, "gif", gifPath != "")

	if gifPath != "" {
		if err := os.Remove(gifPath); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("failed to remove published gif", "path", gifPath, "error", err)
		}
	}
}

// enhance refreshes the impact score with Savant data when available.
// Savant lag makes misses routine, they are logged at debug only.
func (e *Enricher) enhance(ctx context.Context, item *model.QueuedItem) *savant.Match {
	match, err := e.savant.WinProbability(ctx, &item.Play, item.GameDate)
	if err != nil {
		e.logger.Debug("savant lookup failed", "key", item.Key().String(), "error", err)
		return nil
	}
	if match == nil {
		return nil
	}

	if item.Play.DeltaHomeWinExp == 0 {
		// The copy feeds the publish payload; Enhance updates the queue.
		item.Play.DeltaHomeWinExp = match.Delta
		item.ImpactScore = e.scorer.Impact(&item.Play)
		e.queue.Enhance(ctx, item.Key(), match.Delta, item.ImpactScore)
		e.logger.Info("impact rescored with savant data",
			"key", item.Key().String(), "delta", match.Delta, "impact", item.ImpactScore)
	}
	return match
}

// ensureGIF returns a usable GIF path, converting the clip when needed.
// A previously converted file is reused if it still exists.
func (e *Enricher) ensureGIF(ctx context.Context, item *model.QueuedItem, match *savant.Match) string {
	if e.media == nil {
		return ""
	}
	if item.MediaCreated && item.MediaPath != "" {
		if _, err := os.Stat(item.MediaPath); err == nil {
			return item.MediaPath
		}
	}

	key := item.Key()
	clipURL, err := e.savant.ResolveClip(ctx, item, match)
	if err != nil {
		e.logger.Warn("clip resolution failed", "key", key.String(), "error", err)
		return ""
	}
	if clipURL == "" {
		e.logger.Debug("clip not yet available", "key", key.String())
		return ""
	}

	gifPath, err := e.media.CreateGIF(ctx, clipURL, key.String())
	if err != nil {
		e.logger.Warn("gif conversion failed", "key", key.String(), "clip", clipURL, "error", err)
		return ""
	}

	e.queue.MarkMediaReady(ctx, key, gifPath)
	if e.daily != nil {
		e.daily.IncGIFs(ctx)
	}
	if e.metrics != nil {
		e.metrics.GIFsCreated.Inc()
	}
	return gifPath
}
