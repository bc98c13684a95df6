package tracker

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"impactgo/pkg/store"
)

// State keys for persisted daily counters.
const (
	stateDailyDate   = "daily_date"
	stateDailyQueued = "daily_queued"
	stateDailyGIFs   = "daily_gifs"
	stateDailyPosts  = "daily_posts"
)

// DailyCounters tracks the pipeline counters for the current day and rolls
// them over at midnight. Counts survive restarts via the state store.
type DailyCounters struct {
	mu    sync.Mutex
	store store.StateStore
	now   func() time.Time

	date   string // YYYY-MM-DD
	queued int64
	gifs   int64
	posts  int64
}

// DailySnapshot is a point-in-time copy of the daily counters.
type DailySnapshot struct {
	Date   string `json:"date"`
	Queued int64  `json:"plays_queued_today"`
	GIFs   int64  `json:"gifs_created_today"`
	Posts  int64  `json:"posts_sent_today"`
}

// NewDaily creates daily counters backed by the given state store.
// st may be nil for in-memory only operation (tests).
func NewDaily(st store.StateStore) *DailyCounters {
	d := &DailyCounters{store: st, now: time.Now}
	d.date = d.now().Format("2006-01-02")
	return d
}

// Load restores persisted counters. A date mismatch discards stale counts.
func (d *DailyCounters) Load(ctx context.Context) {
	if d.store == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	date, ok := d.store.GetState(ctx, stateDailyDate)
	if !ok || date != d.date {
		return
	}

	d.queued = d.loadInt(ctx, stateDailyQueued)
	d.gifs = d.loadInt(ctx, stateDailyGIFs)
	d.posts = d.loadInt(ctx, stateDailyPosts)
}

func (d *DailyCounters) loadInt(ctx context.Context, key string) int64 {
	val, ok := d.store.GetState(ctx, key)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Rollover resets the counters when the date has changed.
// Called periodically by the cleanup job.
func (d *DailyCounters) Rollover(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rolloverLocked(ctx)
}

func (d *DailyCounters) rolloverLocked(ctx context.Context) {
	today := d.now().Format("2006-01-02")
	if today == d.date {
		return
	}

	slog.Info("daily counter rollover",
		"date", d.date, "queued", d.queued, "gifs", d.gifs, "posts", d.posts)

	d.date = today
	d.queued = 0
	d.gifs = 0
	d.posts = 0
	d.persistLocked(ctx)
}

func (d *DailyCounters) IncQueued(ctx context.Context) {
	d.inc(ctx, &d.queued)
}

func (d *DailyCounters) IncGIFs(ctx context.Context) {
	d.inc(ctx, &d.gifs)
}

func (d *DailyCounters) IncPosts(ctx context.Context) {
	d.inc(ctx, &d.posts)
}

func (d *DailyCounters) inc(ctx context.Context, field *int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rolloverLocked(ctx)
	*field++
	d.persistLocked(ctx)
}

// persistLocked writes the counters through to the state store. Storage
// errors are logged, never propagated; the in-memory counts stay valid.
func (d *DailyCounters) persistLocked(ctx context.Context) {
	if d.store == nil {
		return
	}
	pairs := map[string]string{
		stateDailyDate:   d.date,
		stateDailyQueued: strconv.FormatInt(d.queued, 10),
		stateDailyGIFs:   strconv.FormatInt(d.gifs, 10),
		stateDailyPosts:  strconv.FormatInt(d.posts, 10),
	}
	for k, v := range pairs {
		if err := d.store.SetState(ctx, k, v); err != nil {
			slog.Warn("failed to persist daily counter", "key", k, "error", err)
		}
	}
}

// Snapshot returns a copy of the current counters.
func (d *DailyCounters) Snapshot() DailySnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DailySnapshot{
		Date:   d.date,
		Queued: d.queued,
		GIFs:   d.gifs,
		Posts:  d.posts,
	}
}
