// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// HTTP settings
	Port string

	// Storage settings. DatabaseURL selects Postgres; when empty the
	// service falls back to a local SQLite file.
	DatabaseURL string
	SQLitePath  string

	// Cache settings
	CacheTTL  time.Duration
	Retention time.Duration

	// Pipeline settings
	SourcesConfigPath string
	FetchTimeout      time.Duration
	MaxClusters       int
	WarmupDelay       time.Duration

	// Enrichment settings
	GeminiAPIKey      string
	MaxGeminiRequests int // per day, 0 = unlimited

	// App settings
	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		SQLitePath:        getEnvOrDefault("SQLITE_PATH", "newsmesh.db"),
		SourcesConfigPath: getEnvOrDefault("SOURCES_CONFIG_PATH", "configs/sources.yaml"),
		CacheTTL:          45 * time.Minute,
		Retention:         30 * 24 * time.Hour,
		FetchTimeout:      10 * time.Second,
		MaxClusters:       60,
		WarmupDelay:       2 * time.Second,
		MaxGeminiRequests: 200,
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	if v := getEnvIntOrDefault("CACHE_TTL_MINUTES", 0); v > 0 {
		cfg.CacheTTL = time.Duration(v) * time.Minute
	}
	if v := getEnvIntOrDefault("FETCH_TIMEOUT_SECONDS", 0); v > 0 {
		cfg.FetchTimeout = time.Duration(v) * time.Second
	}
	if v := getEnvIntOrDefault("MAX_CLUSTERS", 0); v > 0 {
		cfg.MaxClusters = v
	}
	if v := getEnvIntOrDefault("WARMUP_DELAY_SECONDS", 0); v > 0 {
		cfg.WarmupDelay = time.Duration(v) * time.Second
	}
	if v := getEnvIntOrDefault("MAX_GEMINI_REQUESTS", 0); v > 0 {
		cfg.MaxGeminiRequests = v
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.DatabaseURL == "" && c.SQLitePath == "" {
		return fmt.Errorf("either DATABASE_URL or SQLITE_PATH is required")
	}
	if c.MaxClusters <= 0 {
		return fmt.Errorf("MAX_CLUSTERS must be positive")
	}
	return nil
}
