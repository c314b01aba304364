// Package app orchestrates the pipeline: cache lookup, concurrent feed
// fan-out, stale-story recovery, clustering, ranking, persistence and the
// detached enrichment queue.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/newsmesh/newsmesh/internal/cluster"
	"github.com/newsmesh/newsmesh/internal/config"
	"github.com/newsmesh/newsmesh/internal/logger"
	"github.com/newsmesh/newsmesh/internal/metrics"
	"github.com/newsmesh/newsmesh/internal/news"
	"github.com/newsmesh/newsmesh/internal/rank"
	"github.com/newsmesh/newsmesh/internal/sources"
	"github.com/newsmesh/newsmesh/internal/storage"
)

// ErrNoContent is the only pipeline failure a caller sees: every feed came
// up empty and there was no cached fallback.
var ErrNoContent = errors.New("no working feeds and no cached data")

// carryForwardWindow bounds how old a recovered stale story may be.
const carryForwardWindow = 24 * time.Hour

// Fetcher fetches one source's stories; failures yield an empty slice.
type Fetcher interface {
	Fetch(ctx context.Context, src sources.Source) []news.Story
}

// Enricher augments clusters with better tags, best effort.
type Enricher interface {
	Enabled() bool
	Enrich(ctx context.Context, clusters []news.Cluster) []news.Cluster
}

type enrichJob struct {
	category news.Category
	payload  *news.Payload
}

// App wires the pipeline components together.
type App struct {
	cfg      *config.Config
	store    storage.Store
	fetcher  Fetcher
	enricher Enricher
	registry *sources.Registry

	jobs      chan enrichJob
	closeOnce sync.Once

	initOnce sync.Once
	initErr  error

	warmupActive atomic.Bool

	now func() time.Time
}

// New builds the app and starts the enrichment worker.
func New(cfg *config.Config, store storage.Store, fetcher Fetcher, enricher Enricher, registry *sources.Registry) *App {
	a := &App{
		cfg:      cfg,
		store:    store,
		fetcher:  fetcher,
		enricher: enricher,
		registry: registry,
		jobs:     make(chan enrichJob, 16),
		now:      time.Now,
	}
	go a.enrichWorker()
	return a
}

// Close stops accepting enrichment jobs; the worker drains what is queued.
func (a *App) Close() {
	a.closeOnce.Do(func() { close(a.jobs) })
}

func (a *App) init(ctx context.Context) error {
	a.initOnce.Do(func() {
		a.initErr = a.store.Init(ctx)
	})
	return a.initErr
}

// Get serves one category: cached when live, rebuilt otherwise. A cache hit
// on the All aggregate also kicks off background warmup for the sections.
func (a *App) Get(ctx context.Context, cat news.Category) (*news.Payload, error) {
	if err := a.init(ctx); err != nil {
		return nil, err
	}

	cached, err := a.store.Get(ctx, cat, false)
	if err != nil {
		// Read failures degrade to a cache miss.
		logger.Warn("cache read failed", "category", cat, "error", err)
	}
	if cached != nil {
		metrics.Global.IncrementCacheHits()
		logger.Debug("cache hit", "category", cat, "clusters", len(cached.Clusters))
		if cat == news.CategoryAll {
			go a.Warmup(context.WithoutCancel(ctx))
		}
		return cached, nil
	}
	metrics.Global.IncrementCacheMisses()

	return a.refresh(ctx, cat)
}

// refresh runs the full fetch→cluster→rank→persist pipeline for a category.
func (a *App) refresh(ctx context.Context, cat news.Category) (*news.Payload, error) {
	started := a.now()
	defer func() {
		metrics.Global.RecordPipelineTime(time.Since(started))
		metrics.Global.SetLastRun()
	}()

	// The fresh fetch and the stale read are independent; run them together.
	var (
		fresh []news.Story
		stale *news.Payload
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fresh = a.fetchCategory(gctx, cat)
		return nil
	})
	g.Go(func() error {
		p, err := a.store.Get(gctx, cat, true)
		if err != nil {
			logger.Warn("stale cache read failed", "category", cat, "error", err)
			return nil
		}
		stale = p
		return nil
	})
	_ = g.Wait()

	merged := a.mergeStale(fresh, stale)
	if len(merged) == 0 {
		if stale != nil {
			logger.Warn("no fresh stories, serving stale payload", "category", cat)
			return stale, nil
		}
		metrics.Global.SetError("pipeline produced no stories")
		return nil, ErrNoContent
	}

	clusters := rank.Apply(cluster.Build(merged), a.now())
	if len(clusters) > a.cfg.MaxClusters {
		clusters = clusters[:a.cfg.MaxClusters]
	}
	metrics.Global.AddClustersBuilt(int64(len(clusters)))

	payload := &news.Payload{Clusters: clusters, LastUpdated: a.now()}

	// A write failure is logged; the in-memory result is still served.
	if err := a.store.Set(ctx, cat, payload); err != nil {
		logger.Error("cache write failed", "category", cat, "error", err)
	}

	a.submitEnrichment(cat, payload)
	return payload, nil
}

// fetchCategory fans out one concurrent fetch per source and joins them,
// deduplicating by link. Clustering needs the complete set, so this blocks
// until every fetch has finished or failed.
func (a *App) fetchCategory(ctx context.Context, cat news.Category) []news.Story {
	srcs := a.registry.ForCategory(cat)

	results := make([][]news.Story, len(srcs))
	var wg sync.WaitGroup
	for i, src := range srcs {
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()
			results[i] = a.fetcher.Fetch(ctx, src)
		}(i, src)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	var stories []news.Story
	duplicates := 0
	for i, batch := range results {
		if len(batch) == 0 {
			metrics.Global.IncrementFeedsFailed()
			logger.Debug("source contributed no stories", "source", srcs[i].Name)
			continue
		}
		metrics.Global.AddFeedsFetched(1)
		for _, s := range batch {
			if s.Link == "" {
				continue
			}
			if _, dup := seen[s.Link]; dup {
				duplicates++
				continue
			}
			seen[s.Link] = struct{}{}
			stories = append(stories, s)
		}
	}
	metrics.Global.AddStoriesParsed(int64(len(stories)))
	metrics.Global.AddDuplicatesFiltered(int64(duplicates))
	return stories
}

// mergeStale carries forward stale stories that are trending-flagged and
// younger than the carry-forward window, then dedups by link. Fresh copies
// win over recovered ones.
func (a *App) mergeStale(fresh []news.Story, stale *news.Payload) []news.Story {
	merged := make([]news.Story, 0, len(fresh))
	seen := make(map[string]struct{}, len(fresh))
	for _, s := range fresh {
		if _, dup := seen[s.Link]; dup {
			continue
		}
		seen[s.Link] = struct{}{}
		merged = append(merged, s)
	}
	if stale == nil {
		return merged
	}

	cutoff := a.now().Add(-carryForwardWindow).UnixMilli()
	recovered := 0
	for _, c := range stale.Clusters {
		for _, s := range c.Stories() {
			if s.Link == "" {
				continue
			}
			if _, dup := seen[s.Link]; dup {
				continue
			}
			if s.Timestamp < cutoff || !rank.IsTrending(s) {
				continue
			}
			seen[s.Link] = struct{}{}
			merged = append(merged, s)
			recovered++
		}
	}
	if recovered > 0 {
		logger.Debug("recovered stale stories", "count", recovered)
	}
	return merged
}

// submitEnrichment queues the fire-and-forget enrichment job. The response
// never waits on this; when the queue is full the job is dropped.
func (a *App) submitEnrichment(cat news.Category, payload *news.Payload) {
	if a.enricher == nil || !a.enricher.Enabled() {
		return
	}
	job := enrichJob{category: cat, payload: payload}
	select {
	case a.jobs <- job:
	default:
		logger.Warn("enrichment queue full, dropping job", "category", cat)
	}
}

// enrichWorker drains the queue and overwrites cache entries with their
// enriched versions. Failures leave the unenriched entry in place.
func (a *App) enrichWorker() {
	for job := range a.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		enriched := a.enricher.Enrich(ctx, job.payload.Clusters)
		updated := &news.Payload{Clusters: enriched, LastUpdated: job.payload.LastUpdated}
		if err := a.store.Set(ctx, job.category, updated); err != nil {
			logger.Warn("enriched cache write failed", "category", job.category, "error", err)
		}
		cancel()
	}
}

// Warmup pre-populates caches for every section that has no live entry,
// throttled between categories so upstream feed hosts are not hammered.
// Only one warmup sweep runs at a time.
func (a *App) Warmup(ctx context.Context) {
	if !a.warmupActive.CompareAndSwap(false, true) {
		return
	}
	defer a.warmupActive.Store(false)

	for _, cat := range news.Categories {
		if ctx.Err() != nil {
			return
		}
		cached, err := a.store.Get(ctx, cat, false)
		if err == nil && cached != nil {
			continue
		}
		logger.Info("warming cache", "category", cat)
		if _, err := a.refresh(ctx, cat); err != nil {
			logger.Warn("warmup failed", "category", cat, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(a.cfg.WarmupDelay):
		}
	}
}
