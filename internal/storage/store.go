// Package storage persists the ranked payload per category with an expiry.
// Two implementations share the contract: Postgres for deployments and a
// local SQLite file for development.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/newsmesh/newsmesh/internal/news"
)

// Store is the cache contract the pipeline depends on. Get with includeStale
// returns even an expired row, which the pipeline uses to recover recently
// important stories a fresh fetch missed. Set upserts with a TTL and then
// best-effort sweeps expired and over-retention rows.
type Store interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, cat news.Category, includeStale bool) (*news.Payload, error)
	Set(ctx context.Context, cat news.Category, payload *news.Payload) error
	Ping(ctx context.Context) error
	Close() error
}

func encodePayload(p *news.Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return data, nil
}

func decodePayload(data []byte) (*news.Payload, error) {
	var p news.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return &p, nil
}

// expiry computes the row lifetime boundaries for a write at now.
func expiry(now time.Time, ttl time.Duration) (createdAt, expiresAt time.Time) {
	return now, now.Add(ttl)
}
