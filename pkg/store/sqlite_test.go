package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"impactgo/pkg/db"
	"impactgo/pkg/model"
)

func TestSQLiteStore(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	// Init DB
	d, err := db.Init(dbPath)
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	defer d.Close()

	store := NewSQLiteStore(d)
	ctx := context.Background()

	testQueue(t, ctx, store)
	testProcessed(t, ctx, store)
	testCache(t, ctx, store)
	testState(t, ctx, store)
}

func testQueue(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("Queue", func(t *testing.T) {
		item := &model.QueuedItem{
			Play: model.Play{
				GamePK:        716463,
				AtBatIndex:    42,
				Inning:        9,
				HalfInning:    "bottom",
				Event:         "Home Run",
				Description:   "Lindor homers (31) on a fly ball to right field.",
				Batter:        "Francisco Lindor",
				Pitcher:       "Some Pitcher",
				HomeScore:     5,
				AwayScore:     4,
				LeverageIndex: 3.5,
			},
			ImpactScore: 0.42,
			GameDate:    "2025-08-30",
			HomeTeam:    "NYM",
			AwayTeam:    "PHI",
			MaxAttempts: 5,
			LastAttempt: time.Now().Add(-time.Minute),
		}

		if err := store.SaveQueueItem(ctx, item); err != nil {
			t.Fatalf("SaveQueueItem failed: %v", err)
		}

		loaded, err := store.GetQueueItems(ctx)
		if err != nil {
			t.Fatalf("GetQueueItems failed: %v", err)
		}
		if len(loaded) != 1 {
			t.Fatalf("expected 1 item, got %d", len(loaded))
		}

		got := loaded[0]
		if got.Key() != item.Key() {
			t.Errorf("key mismatch: %v vs %v", got.Key(), item.Key())
		}
		if got.ImpactScore != 0.42 {
			t.Errorf("ImpactScore mismatch: %v", got.ImpactScore)
		}
		if got.Play.Batter != "Francisco Lindor" {
			t.Errorf("Batter mismatch: %v", got.Play.Batter)
		}
		if got.LastAttempt.IsZero() {
			t.Error("LastAttempt not persisted")
		}
		if got.EnqueuedAt.IsZero() {
			t.Error("EnqueuedAt not stamped on save")
		}

		// Update in place (same key replaces the row)
		item.Attempts = 3
		item.MediaCreated = true
		if err := store.SaveQueueItem(ctx, item); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		loaded, _ = store.GetQueueItems(ctx)
		if len(loaded) != 1 {
			t.Fatalf("expected 1 item after update, got %d", len(loaded))
		}
		if loaded[0].Attempts != 3 || !loaded[0].MediaCreated {
			t.Errorf("update not persisted: %+v", loaded[0])
		}

		if err := store.DeleteQueueItem(ctx, item.Key()); err != nil {
			t.Fatalf("DeleteQueueItem failed: %v", err)
		}
		loaded, _ = store.GetQueueItems(ctx)
		if len(loaded) != 0 {
			t.Errorf("expected empty queue after delete, got %d", len(loaded))
		}
	})
}

func testProcessed(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("Processed", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			key := model.PlayKey{GamePK: 1000 + i, AtBatIndex: i, Inning: 1, HalfInning: "top"}
			if err := store.MarkProcessed(ctx, key.String()); err != nil {
				t.Fatalf("MarkProcessed failed: %v", err)
			}
		}

		// Marking twice must not duplicate
		dup := model.PlayKey{GamePK: 1000, AtBatIndex: 0, Inning: 1, HalfInning: "top"}
		if err := store.MarkProcessed(ctx, dup.String()); err != nil {
			t.Fatalf("duplicate MarkProcessed failed: %v", err)
		}

		keys, err := store.GetProcessedKeys(ctx)
		if err != nil {
			t.Fatalf("GetProcessedKeys failed: %v", err)
		}
		if len(keys) != 5 {
			t.Errorf("expected 5 processed keys, got %d", len(keys))
		}

		if err := store.TrimProcessed(ctx, 2); err != nil {
			t.Fatalf("TrimProcessed failed: %v", err)
		}
		keys, _ = store.GetProcessedKeys(ctx)
		if len(keys) != 2 {
			t.Errorf("expected 2 processed keys after trim, got %d", len(keys))
		}
	})
}

func testCache(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("Cache", func(t *testing.T) {
		payload := []byte(fmt.Sprintf(`{"big": %q}`, string(make([]byte, 2048))))

		if err := store.SetCache(ctx, "statsapi:schedule:2025-08-30", payload); err != nil {
			t.Fatalf("SetCache failed: %v", err)
		}

		val, ok := store.GetCache(ctx, "statsapi:schedule:2025-08-30")
		if !ok {
			t.Fatal("GetCache miss for existing key")
		}
		if string(val) != string(payload) {
			t.Error("cache round-trip mismatch")
		}

		if _, ok := store.GetCache(ctx, "missing"); ok {
			t.Error("GetCache hit for missing key")
		}
	})
}

func testState(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("State", func(t *testing.T) {
		if err := store.SetState(ctx, "counters_date", "2025-08-30"); err != nil {
			t.Fatalf("SetState failed: %v", err)
		}

		val, ok := store.GetState(ctx, "counters_date")
		if !ok || val != "2025-08-30" {
			t.Errorf("GetState = %q, %v", val, ok)
		}

		if err := store.DeleteState(ctx, "counters_date"); err != nil {
			t.Fatalf("DeleteState failed: %v", err)
		}
		if _, ok := store.GetState(ctx, "counters_date"); ok {
			t.Error("state survived delete")
		}
	})
}
