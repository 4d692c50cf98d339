// Package config loads runtime settings from the environment.
//
// A .env file in the working directory is read first when present, so
// local runs do not need exported variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting for a lead run.
type Config struct {
	// Search.
	ApifyToken     string
	SearchProvider string
	SearchSite     string
	QueryQualifier string
	ResultsPerPage int
	SearchTimeout  time.Duration
	ProxyFile      string

	// Storage.
	Backend          string
	SheetCredentials string
	SheetID          string
	SheetTab         string
	CSVPath          string
	JSONPath         string
	SQLitePath       string
	PostgresDSN      string

	// Observability.
	MetricsPort int
}

// Load reads configuration from the environment, consulting a local
// .env file first. Required variables depend on the selected provider
// and backend; all missing ones are reported in a single error.
func Load() (Config, error) {
	// A missing .env file is fine; exported variables still apply.
	_ = godotenv.Load()

	cfg := Config{
		ApifyToken:       os.Getenv("APIFY_TOKEN"),
		SearchProvider:   envString("SEARCH_PROVIDER", "apify"),
		SearchSite:       envString("SEARCH_SITE", "x.com"),
		QueryQualifier:   envString("QUERY_QUALIFIER", `"followers"`),
		ResultsPerPage:   envInt("RESULTS_PER_REQUEST", 100),
		SearchTimeout:    envDuration("SEARCH_TIMEOUT", 2*time.Minute),
		ProxyFile:        os.Getenv("PROXY_FILE"),
		Backend:          envString("STORAGE_BACKEND", "sheets"),
		SheetCredentials: envString("SHEET_CREDENTIALS", "credentials.json"),
		SheetID:          os.Getenv("SHEET_ID"),
		SheetTab:         envString("SHEET_TAB", "Leads"),
		CSVPath:          envString("CSV_PATH", "leads.csv"),
		JSONPath:         envString("JSON_PATH", "leads.ndjson"),
		SQLitePath:       envString("SQLITE_PATH", "leads.db"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		MetricsPort:      envInt("METRICS_PORT", 0),
	}

	var missing []string
	if cfg.SearchProvider == "apify" && cfg.ApifyToken == "" {
		missing = append(missing, "APIFY_TOKEN")
	}
	switch cfg.Backend {
	case "sheets":
		if cfg.SheetID == "" {
			missing = append(missing, "SHEET_ID")
		}
	case "postgres":
		if cfg.PostgresDSN == "" {
			missing = append(missing, "POSTGRES_DSN")
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if cfg.ResultsPerPage < 1 {
		return Config{}, fmt.Errorf("config: RESULTS_PER_REQUEST must be positive, got %d", cfg.ResultsPerPage)
	}

	return cfg, nil
}

func envString(name, fallback string) string {
	if raw := os.Getenv(name); raw != "" {
		return raw
	}
	return fallback
}

func envInt(name string, fallback int) int {
	if raw := os.Getenv(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(name); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			return v
		}
	}
	return fallback
}
