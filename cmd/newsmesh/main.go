package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/newsmesh/newsmesh/internal/app"
	"github.com/newsmesh/newsmesh/internal/config"
	"github.com/newsmesh/newsmesh/internal/enrich"
	"github.com/newsmesh/newsmesh/internal/fetch"
	"github.com/newsmesh/newsmesh/internal/logger"
	"github.com/newsmesh/newsmesh/internal/metrics"
	"github.com/newsmesh/newsmesh/internal/news"
	"github.com/newsmesh/newsmesh/internal/retry"
	"github.com/newsmesh/newsmesh/internal/sources"
	"github.com/newsmesh/newsmesh/internal/storage"
)

func main() {
	// Optional .env for local runs; the environment wins in deployments.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.Debug)

	registry, err := sources.Load(cfg.SourcesConfigPath)
	if err != nil {
		logger.Error("loading source registry", "error", err)
		os.Exit(1)
	}
	logger.Info("source registry loaded", "sources", len(registry.All()))

	store, err := openStore(cfg)
	if err != nil {
		logger.Error("opening cache store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	if err := retry.Do(ctx, retry.Config{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true}, func() error {
		return store.Ping(ctx)
	}); err != nil {
		logger.Error("cache store unreachable", "error", err)
		os.Exit(1)
	}

	enricher, err := enrich.New(ctx, cfg.GeminiAPIKey, cfg.MaxGeminiRequests)
	if err != nil {
		logger.Error("creating enricher", "error", err)
		os.Exit(1)
	}
	defer enricher.Close()

	a := app.New(cfg, store, fetch.New(cfg.FetchTimeout), enricher, registry)
	defer a.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/news", newsHandler(a))
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/metrics", metricsHandler)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}

	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
}

// openStore picks Postgres when DATABASE_URL is set, the local SQLite file
// otherwise.
func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.DatabaseURL != "" {
		logger.Info("using postgres cache store")
		return storage.NewPostgresStore(cfg.DatabaseURL, cfg.CacheTTL, cfg.Retention)
	}
	logger.Info("using sqlite cache store", "path", cfg.SQLitePath)
	return storage.NewSQLiteStore(cfg.SQLitePath, cfg.CacheTTL, cfg.Retention)
}

func newsHandler(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat, ok := news.ParseCategory(r.URL.Query().Get("category"))
		if !ok {
			http.Error(w, `{"error":"unknown category"}`, http.StatusBadRequest)
			return
		}

		payload, err := a.Get(r.Context(), cat)
		if err != nil {
			logger.Error("pipeline failed", "category", cat, "error", err)
			http.Error(w, `{"error":"news unavailable"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Warn("response encode failed", "error", err)
		}
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics.Global.GetStats())
}
