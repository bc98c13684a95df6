package store

import (
	"context"

	"impactgo/pkg/model"
)

// QueueStore persists queued plays, one row per item.
type QueueStore interface {
	GetQueueItems(ctx context.Context) ([]*model.QueuedItem, error)
	SaveQueueItem(ctx context.Context, item *model.QueuedItem) error
	DeleteQueueItem(ctx context.Context, key model.PlayKey) error
}

// ProcessedStore remembers which plays have already been considered.
// Keys are the canonical PlayKey strings.
type ProcessedStore interface {
	GetProcessedKeys(ctx context.Context) ([]string, error)
	MarkProcessed(ctx context.Context, key string) error
	TrimProcessed(ctx context.Context, keep int) error
}

// CacheStore handles generic key-value caching.
type CacheStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
