package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"impactgo/pkg/config"
	"impactgo/pkg/model"
	"impactgo/pkg/store"
)

// Store is the persistence surface the manager writes through to.
type Store interface {
	store.QueueStore
	store.ProcessedStore
}

// Manager owns the bounded queue of marquee plays and the processed-play
// set. All state lives behind one mutex; every mutation is written through
// to the store so a restart resumes where it left off.
type Manager struct {
	config *config.QueueConfig
	store  Store
	logger *slog.Logger

	mu        sync.Mutex
	items     []*model.QueuedItem
	processed map[string]bool
	// Insert order of processed keys, oldest first, for capped eviction.
	processedOrder []string
}

// NewManager creates a queue manager. Call Hydrate before use to restore
// persisted state.
func NewManager(cfg *config.QueueConfig, st Store) *Manager {
	return &Manager{
		config:    cfg,
		store:     st,
		logger:    slog.With("component", "queue"),
		processed: make(map[string]bool),
	}
}

// Hydrate loads persisted queue items and processed keys.
func (m *Manager) Hydrate(ctx context.Context) error {
	items, err := m.store.GetQueueItems(ctx)
	if err != nil {
		return err
	}
	keys, err := m.store.GetProcessedKeys(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = items
	m.processed = make(map[string]bool, len(keys))
	m.processedOrder = m.processedOrder[:0]
	for _, k := range keys {
		m.processed[k] = true
		m.processedOrder = append(m.processedOrder, k)
	}

	m.logger.Info("queue hydrated", "items", len(m.items), "processed", len(keys))
	return nil
}

// Seen reports whether the play was already queued or processed.
func (m *Manager) Seen(key model.PlayKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[key.String()]
}

// Enqueue adds a marquee play. Duplicates are dropped. At capacity it tries
// to evict a published item first, then an exhausted one; if neither exists
// the new play is refused and the queue is unchanged.
func (m *Manager) Enqueue(ctx context.Context, item *model.QueuedItem) bool {
	key := item.Key().String()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processed[key] {
		m.logger.Debug("play already processed, skipping", "key", key)
		return false
	}

	if len(m.items) >= m.config.MaxSize {
		if !m.evictLocked(ctx) {
			m.logger.Warn("queue full, refusing play", "key", key, "event", item.Play.Event)
			return false
		}
	}

	if item.MaxAttempts == 0 {
		item.MaxAttempts = m.config.MaxAttempts
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now()
	}

	m.items = append(m.items, item)
	m.markProcessedLocked(ctx, key)

	if err := m.store.SaveQueueItem(ctx, item); err != nil {
		m.logger.Warn("failed to persist queue item", "key", key, "error", err)
	}

	m.logger.Info("play queued",
		"key", key, "event", item.Play.Event, "impact", item.ImpactScore,
		"queue_len", len(m.items))
	return true
}

// evictLocked frees one slot: oldest published first, oldest exhausted next.
func (m *Manager) evictLocked(ctx context.Context) bool {
	if idx := m.oldestLocked(func(it *model.QueuedItem) bool { return it.Published }); idx >= 0 {
		m.removeLocked(ctx, idx, "published")
		return true
	}
	if idx := m.oldestLocked(func(it *model.QueuedItem) bool { return it.Exhausted() }); idx >= 0 {
		m.removeLocked(ctx, idx, "exhausted")
		return true
	}
	return false
}

func (m *Manager) oldestLocked(match func(*model.QueuedItem) bool) int {
	best := -1
	for i, it := range m.items {
		if !match(it) {
			continue
		}
		if best == -1 || it.EnqueuedAt.Before(m.items[best].EnqueuedAt) {
			best = i
		}
	}
	return best
}

func (m *Manager) removeLocked(ctx context.Context, idx int, reason string) {
	it := m.items[idx]
	m.items = append(m.items[:idx], m.items[idx+1:]...)
	if err := m.store.DeleteQueueItem(ctx, it.Key()); err != nil {
		m.logger.Warn("failed to delete queue item", "key", it.Key().String(), "error", err)
	}
	m.logger.Info("evicted play from queue", "key", it.Key().String(), "reason", reason)
}

// markProcessedLocked records the key and trims the set to its cap.
func (m *Manager) markProcessedLocked(ctx context.Context, key string) {
	if m.processed[key] {
		return
	}
	m.processed[key] = true
	m.processedOrder = append(m.processedOrder, key)

	if err := m.store.MarkProcessed(ctx, key); err != nil {
		m.logger.Warn("failed to persist processed key", "key", key, "error", err)
	}

	for len(m.processedOrder) > m.config.MaxProcessed {
		oldest := m.processedOrder[0]
		m.processedOrder = m.processedOrder[1:]
		delete(m.processed, oldest)
	}
	if err := m.store.TrimProcessed(ctx, m.config.MaxProcessed); err != nil {
		m.logger.Warn("failed to trim processed set", "error", err)
	}
}

// Eligible returns copies of the items the enricher may work on right now:
// not yet published, attempts left, and outside the retry cooldown. Copies
// keep the enricher's scratch mutations off the shared items; durable state
// changes go through MarkAttempt, Enhance and friends.
func (m *Manager) Eligible(now time.Time) []model.QueuedItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	cooldown := time.Duration(m.config.RetryCooldown)
	var out []model.QueuedItem
	for _, it := range m.items {
		if it.Published || it.Exhausted() {
			continue
		}
		if !it.LastAttempt.IsZero() && now.Sub(it.LastAttempt) < cooldown {
			continue
		}
		out = append(out, *it)
	}
	return out
}

// MarkAttempt increments the attempt counter and stamps the attempt time.
func (m *Manager) MarkAttempt(ctx context.Context, key model.PlayKey, at time.Time) {
	m.update(ctx, key, func(it *model.QueuedItem) {
		it.Attempts++
		it.LastAttempt = at
		if it.Exhausted() {
			m.logger.Warn("play exhausted its attempts, abandoning",
				"key", key.String(), "event", it.Play.Event, "attempts", it.Attempts)
		}
	})
}

// Enhance records Savant win-probability data learned after queueing, with
// the rescored impact.
func (m *Manager) Enhance(ctx context.Context, key model.PlayKey, delta, score float64) {
	m.update(ctx, key, func(it *model.QueuedItem) {
		it.Play.DeltaHomeWinExp = delta
		it.ImpactScore = score
	})
}

// MarkMediaReady records the produced media file for an item.
func (m *Manager) MarkMediaReady(ctx context.Context, key model.PlayKey, path string) {
	m.update(ctx, key, func(it *model.QueuedItem) {
		it.MediaCreated = true
		it.MediaPath = path
	})
}

// MarkPublished flags an item as posted.
func (m *Manager) MarkPublished(ctx context.Context, key model.PlayKey) {
	m.update(ctx, key, func(it *model.QueuedItem) {
		it.Published = true
	})
}

func (m *Manager) update(ctx context.Context, key model.PlayKey, fn func(*model.QueuedItem)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, it := range m.items {
		if it.Key() == key {
			fn(it)
			if err := m.store.SaveQueueItem(ctx, it); err != nil {
				m.logger.Warn("failed to persist queue item", "key", key.String(), "error", err)
			}
			return
		}
	}
}

// Cleanup drops published items and evicts exhausted ones. Called
// periodically by the cleanup job.
func (m *Manager) Cleanup(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.items[:0]
	for _, it := range m.items {
		if it.Published {
			m.deleteStoredLocked(ctx, it, "published")
			continue
		}
		if it.Exhausted() {
			m.deleteStoredLocked(ctx, it, "exhausted")
			continue
		}
		kept = append(kept, it)
	}
	m.items = kept
}

func (m *Manager) deleteStoredLocked(ctx context.Context, it *model.QueuedItem, reason string) {
	if err := m.store.DeleteQueueItem(ctx, it.Key()); err != nil {
		m.logger.Warn("failed to delete queue item", "key", it.Key().String(), "error", err)
	}
	m.logger.Debug("removed play from queue", "key", it.Key().String(), "reason", reason)
}

// Len returns the current queue depth.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Snapshot returns copies of the queued items for the dashboard.
func (m *Manager) Snapshot() []model.QueuedItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.QueuedItem, len(m.items))
	for i, it := range m.items {
		out[i] = *it
	}
	return out
}
