package config

import (
	"strings"
	"testing"
	"time"
)

func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, map[string]string{
		"APIFY_TOKEN": "tok-123",
		"SHEET_ID":    "sheet-abc",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.SearchProvider != "apify" {
		t.Errorf("provider = %q, want apify", cfg.SearchProvider)
	}
	if cfg.SearchSite != "x.com" {
		t.Errorf("site = %q, want x.com", cfg.SearchSite)
	}
	if cfg.QueryQualifier != `"followers"` {
		t.Errorf("qualifier = %q", cfg.QueryQualifier)
	}
	if cfg.ResultsPerPage != 100 {
		t.Errorf("results per page = %d, want 100", cfg.ResultsPerPage)
	}
	if cfg.SearchTimeout != 2*time.Minute {
		t.Errorf("timeout = %v, want 2m", cfg.SearchTimeout)
	}
	if cfg.Backend != "sheets" || cfg.SheetTab != "Leads" {
		t.Errorf("backend = %q tab = %q", cfg.Backend, cfg.SheetTab)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setEnv(t, map[string]string{
		"APIFY_TOKEN": "",
		"SHEET_ID":    "",
	})

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required variables")
	}
	for _, name := range []string{"APIFY_TOKEN", "SHEET_ID"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
}

func TestLoadProviderGatesToken(t *testing.T) {
	setEnv(t, map[string]string{
		"APIFY_TOKEN":     "",
		"SEARCH_PROVIDER": "duckduckgo",
		"SHEET_ID":        "sheet-abc",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("duckduckgo provider should not require a token: %v", err)
	}
	if cfg.SearchProvider != "duckduckgo" {
		t.Errorf("provider = %q", cfg.SearchProvider)
	}
}

func TestLoadBackendRequirements(t *testing.T) {
	setEnv(t, map[string]string{
		"APIFY_TOKEN":     "tok",
		"SHEET_ID":        "",
		"STORAGE_BACKEND": "postgres",
		"POSTGRES_DSN":    "",
	})

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "POSTGRES_DSN") {
		t.Fatalf("expected POSTGRES_DSN error, got %v", err)
	}

	t.Setenv("STORAGE_BACKEND", "csv")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("csv backend needs no extra variables: %v", err)
	}
	if cfg.CSVPath != "leads.csv" {
		t.Errorf("csv path = %q", cfg.CSVPath)
	}
}

func TestLoadOverrides(t *testing.T) {
	setEnv(t, map[string]string{
		"APIFY_TOKEN":         "tok",
		"SHEET_ID":            "sheet-abc",
		"SEARCH_SITE":         "linkedin.com",
		"RESULTS_PER_REQUEST": "25",
		"SEARCH_TIMEOUT":      "30s",
		"SHEET_TAB":           "Prospects",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SearchSite != "linkedin.com" {
		t.Errorf("site = %q", cfg.SearchSite)
	}
	if cfg.ResultsPerPage != 25 {
		t.Errorf("results per page = %d", cfg.ResultsPerPage)
	}
	if cfg.SearchTimeout != 30*time.Second {
		t.Errorf("timeout = %v", cfg.SearchTimeout)
	}
	if cfg.SheetTab != "Prospects" {
		t.Errorf("tab = %q", cfg.SheetTab)
	}
}

func TestLoadRejectsNonPositiveResults(t *testing.T) {
	setEnv(t, map[string]string{
		"APIFY_TOKEN":         "tok",
		"SHEET_ID":            "sheet-abc",
		"RESULTS_PER_REQUEST": "-5",
	})

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-positive RESULTS_PER_REQUEST")
	}
}
