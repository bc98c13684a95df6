package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"time"

	"impactgo/pkg/db"
	"impactgo/pkg/model"
)

// Store defines the repository interface.
// It composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	QueueStore
	ProcessedStore
	CacheStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Queue ---

const queueColumns = `play_key, game_pk, at_bat_index, inning, half_inning, event, description,
	batter, pitcher, home_score, away_score, leverage_index, wpa, delta_home_win_exp,
	impact_score, game_date, home_team, away_team, attempts, max_attempts, last_attempt,
	media_created, published, media_path, enqueued_at`

func (s *SQLiteStore) GetQueueItems(ctx context.Context) ([]*model.QueuedItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+queueColumns+` FROM queue_items ORDER BY enqueued_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.QueuedItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func scanQueueItem(rows *sql.Rows) (*model.QueuedItem, error) {
	var q model.QueuedItem
	var playKey string
	var lastAttempt, enqueuedAt sql.NullTime

	err := rows.Scan(
		&playKey, &q.Play.GamePK, &q.Play.AtBatIndex, &q.Play.Inning, &q.Play.HalfInning,
		&q.Play.Event, &q.Play.Description, &q.Play.Batter, &q.Play.Pitcher,
		&q.Play.HomeScore, &q.Play.AwayScore,
		&q.Play.LeverageIndex, &q.Play.WPA, &q.Play.DeltaHomeWinExp,
		&q.ImpactScore, &q.GameDate, &q.HomeTeam, &q.AwayTeam,
		&q.Attempts, &q.MaxAttempts, &lastAttempt,
		&q.MediaCreated, &q.Published, &q.MediaPath, &enqueuedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastAttempt.Valid {
		q.LastAttempt = lastAttempt.Time
	}
	if enqueuedAt.Valid {
		q.EnqueuedAt = enqueuedAt.Time
	}
	return &q, nil
}

func (s *SQLiteStore) SaveQueueItem(ctx context.Context, item *model.QueuedItem) error {
	enqueuedAt := item.EnqueuedAt
	if enqueuedAt.IsZero() {
		enqueuedAt = time.Now()
	}

	var lastAttempt any
	if !item.LastAttempt.IsZero() {
		lastAttempt = item.LastAttempt
	}

	query := `INSERT OR REPLACE INTO queue_items (` + queueColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		item.Key().String(), item.Play.GamePK, item.Play.AtBatIndex, item.Play.Inning, item.Play.HalfInning,
		item.Play.Event, item.Play.Description, item.Play.Batter, item.Play.Pitcher,
		item.Play.HomeScore, item.Play.AwayScore,
		item.Play.LeverageIndex, item.Play.WPA, item.Play.DeltaHomeWinExp,
		item.ImpactScore, item.GameDate, item.HomeTeam, item.AwayTeam,
		item.Attempts, item.MaxAttempts, lastAttempt,
		item.MediaCreated, item.Published, item.MediaPath, enqueuedAt,
	)
	return err
}

func (s *SQLiteStore) DeleteQueueItem(ctx context.Context, key model.PlayKey) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM queue_items WHERE play_key = ?", key.String())
	return err
}

// --- Processed ---

func (s *SQLiteStore) GetProcessedKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT play_key FROM processed_plays ORDER BY created_at ASC, play_key ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) MarkProcessed(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO processed_plays (play_key, created_at) VALUES (?, ?)",
		key, time.Now())
	return err
}

// TrimProcessed drops the oldest entries so at most keep rows remain.
func (s *SQLiteStore) TrimProcessed(ctx context.Context, keep int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM processed_plays WHERE play_key NOT IN (
			SELECT play_key FROM processed_plays ORDER BY created_at DESC, play_key DESC LIMIT ?
		)`, keep)
	return err
}

// --- Cache ---

func (s *SQLiteStore) GetCache(ctx context.Context, key string) ([]byte, bool) {
	var val []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM cache WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		return nil, false
	}

	// Transparent Decompression
	if len(val) > 2 && val[0] == 0x1f && val[1] == 0x8b {
		decompressed, err := decompress(val)
		if err == nil {
			return decompressed, true
		}
	}

	return val, true
}

func (s *SQLiteStore) SetCache(ctx context.Context, key string, val []byte) error {
	// Transparent Compression
	compressed, err := compress(val)
	if err == nil {
		val = compressed
	}

	query := `INSERT OR REPLACE INTO cache (key, value, created_at) VALUES (?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

// --- Compression Pooling ---

var (
	// Pool for gzip writers to reuse flate state
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	// Pool for generic byte buffers
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)

	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Must copy because buf is returned to pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
