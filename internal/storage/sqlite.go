package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/newsmesh/newsmesh/internal/logger"
	"github.com/newsmesh/newsmesh/internal/news"
)

// SQLiteStore is the local-file fallback used when no DATABASE_URL is set.
// Same contract as PostgresStore.
type SQLiteStore struct {
	db        *sql.DB
	ttl       time.Duration
	retention time.Duration
	initOnce  sync.Once
	initErr   error
}

func NewSQLiteStore(dbPath string, ttl, retention time.Duration) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db, ttl: ttl, retention: retention}, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.initOnce.Do(func() {
		schema := `
		CREATE TABLE IF NOT EXISTS news_cache (
			cache_key TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_news_cache_expires_at ON news_cache(expires_at);
		`
		if _, err := s.db.ExecContext(ctx, schema); err != nil {
			s.initErr = fmt.Errorf("initializing schema: %w", err)
		}
	})
	return s.initErr
}

func (s *SQLiteStore) Get(ctx context.Context, cat news.Category, includeStale bool) (*news.Payload, error) {
	query := `SELECT data FROM news_cache WHERE cache_key = ?`
	args := []any{cat.CacheKey()}
	if !includeStale {
		query += ` AND expires_at > ?`
		args = append(args, time.Now().UnixMilli())
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache for %s: %w", cat, err)
	}
	return decodePayload(data)
}

func (s *SQLiteStore) Set(ctx context.Context, cat news.Category, payload *news.Payload) error {
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	createdAt, expiresAt := expiry(time.Now(), s.ttl)

	query := `
		INSERT INTO news_cache (cache_key, category, data, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			category = excluded.category,
			data = excluded.data,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`
	if _, err := s.db.ExecContext(ctx, query, cat.CacheKey(), string(cat), data, createdAt.UnixMilli(), expiresAt.UnixMilli()); err != nil {
		return fmt.Errorf("writing cache for %s: %w", cat, err)
	}

	s.sweep(ctx)
	return nil
}

func (s *SQLiteStore) sweep(ctx context.Context) {
	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM news_cache WHERE expires_at < ? OR created_at < ?`,
		now.UnixMilli(), now.Add(-s.retention).UnixMilli())
	if err != nil {
		logger.Warn("cache sweep failed", "error", err)
		return
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		logger.Debug("cache sweep removed rows", "rows", rows)
	}
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
