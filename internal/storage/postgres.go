package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/newsmesh/newsmesh/internal/logger"
	"github.com/newsmesh/newsmesh/internal/news"
)

// PostgresStore keeps cached payloads in a Postgres table keyed by category.
type PostgresStore struct {
	db        *sql.DB
	ttl       time.Duration
	retention time.Duration
	initOnce  sync.Once
	initErr   error
}

// NewPostgresStore opens the connection; the schema is ensured lazily on
// first use.
func NewPostgresStore(connectionString string, ttl, retention time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresStore{db: db, ttl: ttl, retention: retention}, nil
}

// Init ensures the table and indexes exist. The statements are idempotent,
// so concurrent first runs across processes are safe; the Once only spares
// repeat round-trips within this process.
func (s *PostgresStore) Init(ctx context.Context) error {
	s.initOnce.Do(func() {
		schema := `
		CREATE TABLE IF NOT EXISTS news_cache (
			id SERIAL PRIMARY KEY,
			cache_key TEXT UNIQUE NOT NULL,
			category TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_news_cache_key ON news_cache(cache_key);
		CREATE INDEX IF NOT EXISTS idx_news_cache_expires_at ON news_cache(expires_at);
		`
		if _, err := s.db.ExecContext(ctx, schema); err != nil {
			s.initErr = fmt.Errorf("initializing schema: %w", err)
		}
	})
	return s.initErr
}

func (s *PostgresStore) Get(ctx context.Context, cat news.Category, includeStale bool) (*news.Payload, error) {
	query := `SELECT data FROM news_cache WHERE cache_key = $1`
	args := []any{cat.CacheKey()}
	if !includeStale {
		query += ` AND expires_at > $2`
		args = append(args, time.Now())
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

func (s *PostgresStore) Set(ctx context.Context, cat news.Category, payload *news.Payload) error {
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	createdAt, expiresAt := expiry(time.Now(), s.ttl)

	query := `
		INSERT INTO news_cache (cache_key, category, data, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cache_key) DO UPDATE SET
			category = EXCLUDED.category,
			data = EXCLUDED.data,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`
	if _, err := s.db.ExecContext(ctx, query, cat.CacheKey(), string(cat), data, createdAt, expiresAt); err != nil {
		return fmt.Errorf("writing cache for %s: %w", cat, err)
	}

	s.sweep(ctx)
	return nil
}

// sweep deletes rows past expiry or older than the retention ceiling,
// regardless of category. Best effort: failures only log.
func (s *PostgresStore) sweep(ctx context.Context) {
	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM news_cache WHERE expires_at < $1 OR created_at < $2`,
		now, now.Add(-s.retention))
	if err != nil {
		logger.Warn("cache sweep failed", "error", err)
		return
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		logger.Debug("cache sweep removed rows", "rows", rows)
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
