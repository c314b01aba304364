package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/newsmesh/newsmesh/internal/news"
)

func testPayload(title string) *news.Payload {
	return &news.Payload{
		Clusters: []news.Cluster{{
			Main: news.Story{
				Title:    title,
				Link:     "https://example.com/" + title,
				Source:   "Reuters",
				Category: news.CategoryFinance,
			},
			Category:   news.CategoryFinance,
			Importance: 0.8,
		}},
		LastUpdated: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func openTestStore(t *testing.T, ttl time.Duration) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"), ttl, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, time.Hour)

	in := testPayload("Fed Holds Rates Steady")
	if err := s.Set(ctx, news.CategoryFinance, in); err != nil {
		t.Fatalf("Set: %v", err)
	}

	out, err := s.Get(ctx, news.CategoryFinance, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out == nil {
		t.Fatal("Get returned nil for a live entry")
	}
	if len(out.Clusters) != 1 || out.Clusters[0].Main.Title != in.Clusters[0].Main.Title {
		t.Errorf("payload mangled: %+v", out.Clusters)
	}
	if !out.LastUpdated.Equal(in.LastUpdated) {
		t.Errorf("lastUpdated = %v, want %v", out.LastUpdated, in.LastUpdated)
	}
}

func TestSQLiteStore_MissIsNilNil(t *testing.T) {
	s := openTestStore(t, time.Hour)
	out, err := s.Get(context.Background(), news.CategorySports, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out != nil {
		t.Errorf("got %+v for an empty cache", out)
	}
}

// expire backdates a row's expiry, simulating TTL passage without sleeping.
func expire(t *testing.T, s *SQLiteStore, cat news.Category) {
	t.Helper()
	_, err := s.db.Exec(`UPDATE news_cache SET expires_at = ? WHERE cache_key = ?`,
		time.Now().Add(-time.Minute).UnixMilli(), cat.CacheKey())
	if err != nil {
		t.Fatalf("backdating expiry: %v", err)
	}
}

// An expired row is invisible to a live read but still served to a stale one.
func TestSQLiteStore_ExpiredRowOnlyVisibleAsStale(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, time.Hour)

	if err := s.Set(ctx, news.CategoryCrypto, testPayload("Bitcoin Slips")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	expire(t, s, news.CategoryCrypto)

	live, err := s.Get(ctx, news.CategoryCrypto, false)
	if err != nil {
		t.Fatalf("live Get: %v", err)
	}
	if live != nil {
		t.Error("expired entry returned on a live read")
	}

	stale, err := s.Get(ctx, news.CategoryCrypto, true)
	if err != nil {
		t.Fatalf("stale Get: %v", err)
	}
	if stale == nil || stale.Clusters[0].Main.Title != "Bitcoin Slips" {
		t.Errorf("stale read = %+v, want the expired payload", stale)
	}
}

func TestSQLiteStore_SetUpserts(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, time.Hour)

	if err := s.Set(ctx, news.CategoryTech, testPayload("First Write")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, news.CategoryTech, testPayload("Second Write")); err != nil {
		t.Fatalf("second Set: %v", err)
	}

	out, err := s.Get(ctx, news.CategoryTech, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Clusters[0].Main.Title != "Second Write" {
		t.Errorf("title = %q, want the second write", out.Clusters[0].Main.Title)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM news_cache`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1 after upsert", count)
	}
}

// A write sweeps rows already past their expiry out of the table.
func TestSQLiteStore_SweepRemovesExpiredRows(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, time.Hour)

	if err := s.Set(ctx, news.CategoryCrypto, testPayload("Old Entry")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	expire(t, s, news.CategoryCrypto)

	// The next write, to any category, triggers the sweep.
	if err := s.Set(ctx, news.CategoryTech, testPayload("Fresh Entry")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	gone, err := s.Get(ctx, news.CategoryCrypto, true)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gone != nil {
		t.Errorf("expired row survived the sweep: %+v", gone)
	}
}
