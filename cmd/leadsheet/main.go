// Command leadsheet searches a social site for profiles on a topic and
// appends the extracted leads to a storage backend, Google Sheets by
// default.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/FranksOps/leadsheet/internal/config"
	"github.com/FranksOps/leadsheet/internal/leads"
	"github.com/FranksOps/leadsheet/internal/metrics"
	"github.com/FranksOps/leadsheet/internal/pipeline"
	"github.com/FranksOps/leadsheet/internal/report"
	"github.com/FranksOps/leadsheet/internal/serp"
	"github.com/FranksOps/leadsheet/internal/storage"
	"github.com/FranksOps/leadsheet/internal/storage/csvbackend"
	"github.com/FranksOps/leadsheet/internal/storage/jsonbackend"
	"github.com/FranksOps/leadsheet/internal/storage/postgres"
	"github.com/FranksOps/leadsheet/internal/storage/sheets"
	"github.com/FranksOps/leadsheet/internal/storage/sqlite"
)

func main() {
	var (
		topic        = flag.String("topic", "", "topic to search for (prompted when omitted)")
		pages        = flag.Int("pages", 1, "number of result pages to request")
		tab          = flag.String("tab", "", "sheet tab to write to (overrides SHEET_TAB)")
		backendName  = flag.String("backend", "", "storage backend: sheets, csv, json, sqlite or postgres (overrides STORAGE_BACKEND)")
		providerName = flag.String("provider", "", "search provider: apify or duckduckgo (overrides SEARCH_PROVIDER)")
		reportFormat = flag.String("report", "text", "run summary format: text or json")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *topic, *pages, *tab, *backendName, *providerName, *reportFormat); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, topic string, pages int, tab, backendName, providerName, reportFormat string) error {
	if reportFormat != "text" && reportFormat != "json" {
		return fmt.Errorf("unknown report format %q", reportFormat)
	}
	if pages < 1 {
		return fmt.Errorf("pages must be at least 1, got %d", pages)
	}

	// Flag overrides must land before Load validates provider and
	// backend requirements.
	if providerName != "" {
		os.Setenv("SEARCH_PROVIDER", providerName)
	}
	if backendName != "" {
		os.Setenv("STORAGE_BACKEND", backendName)
	}
	if tab != "" {
		os.Setenv("SHEET_TAB", tab)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if topic == "" {
		topic, err = promptTopic(os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
	}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}

	backend, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	if cfg.MetricsPort > 0 {
		srv := metrics.Start(cfg.MetricsPort)
		defer srv.Stop(context.Background())
		logger.Info("metrics server started", "port", cfg.MetricsPort)
	}

	p := &pipeline.Pipeline{
		Provider:    provider,
		Extractor:   leads.NewExtractor(cfg.SearchSite),
		Backend:     backend,
		BackendName: cfg.Backend,
		Logger:      logger,
	}

	result, err := p.Run(ctx, topic, pages)
	if err != nil {
		return err
	}

	summary := report.FromResult(result)
	if reportFormat == "json" {
		return report.WriteJSON(os.Stdout, summary)
	}
	return report.WriteText(os.Stdout, summary)
}

func newProvider(cfg config.Config, logger *slog.Logger) (serp.Provider, error) {
	switch cfg.SearchProvider {
	case "apify":
		return serp.NewApify(serp.ApifyConfig{
			Token:          cfg.ApifyToken,
			Site:           cfg.SearchSite,
			Qualifier:      cfg.QueryQualifier,
			ResultsPerPage: cfg.ResultsPerPage,
			Timeout:        cfg.SearchTimeout,
		}, logger)
	case "duckduckgo":
		return serp.NewDuckDuckGo(serp.DuckDuckGoConfig{
			Site:      cfg.SearchSite,
			Qualifier: cfg.QueryQualifier,
			Timeout:   cfg.SearchTimeout,
			ProxyFile: cfg.ProxyFile,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.SearchProvider)
	}
}

func newBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Backend, error) {
	switch cfg.Backend {
	case "sheets":
		return sheets.New(ctx, sheets.Config{
			SpreadsheetID:   cfg.SheetID,
			Tab:             cfg.SheetTab,
			CredentialsFile: cfg.SheetCredentials,
		}, logger)
	case "csv":
		return csvbackend.New(cfg.CSVPath)
	case "json":
		return jsonbackend.New(cfg.JSONPath)
	case "sqlite":
		return sqlite.New(cfg.SQLitePath)
	case "postgres":
		return postgres.New(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func promptTopic(in *os.File, out *os.File) (string, error) {
	fmt.Fprint(out, "Enter a topic to search for: ")
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read topic: %w", err)
		}
		return "", fmt.Errorf("no topic provided")
	}
	topic := strings.TrimSpace(scanner.Text())
	if topic == "" {
		return "", fmt.Errorf("no topic provided")
	}
	return topic, nil
}
