package serp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/FranksOps/leadsheet/pkg/httpclient"
)

// DefaultRunSyncURL is the Apify google-search-scraper actor endpoint that
// runs the actor synchronously and returns its dataset items in one response.
const DefaultRunSyncURL = "https://api.apify.com/v2/acts/apify~google-search-scraper/run-sync-get-dataset-items"

// ApifyConfig configures the Apify-backed search provider.
type ApifyConfig struct {
	Token          string
	EndpointURL    string // defaults to DefaultRunSyncURL; overridable for tests
	Site           string // domain qualifier, e.g. "x.com"
	Qualifier      string // extra fixed query term, may be empty
	ResultsPerPage int
	Timeout        time.Duration
}

// Apify issues a single synchronous actor run per Search call and decodes
// the dataset items. It performs no retries; a transport failure fails the
// whole search.
type Apify struct {
	cfg    ApifyConfig
	client *httpclient.Client
	logger *slog.Logger
}

var _ Provider = (*Apify)(nil)

// NewApify creates the provider. The token is required.
func NewApify(cfg ApifyConfig, logger *slog.Logger) (*Apify, error) {
	if cfg.Token == "" {
		return nil, errors.New("apify: token is required")
	}
	if cfg.EndpointURL == "" {
		cfg.EndpointURL = DefaultRunSyncURL
	}
	if cfg.ResultsPerPage <= 0 {
		cfg.ResultsPerPage = 100
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("apify: %w", err)
	}

	return &Apify{cfg: cfg, client: client, logger: logger}, nil
}

// runInput mirrors the actor's expected input document.
type runInput struct {
	FocusOnPaidAds           bool   `json:"focusOnPaidAds"`
	ForceExactMatch          bool   `json:"forceExactMatch"`
	IncludeIcons             bool   `json:"includeIcons"`
	IncludeUnfilteredResults bool   `json:"includeUnfilteredResults"`
	MaxPagesPerQuery         int    `json:"maxPagesPerQuery"`
	MobileResults            bool   `json:"mobileResults"`
	Queries                  string `json:"queries"`
	ResultsPerPage           int    `json:"resultsPerPage"`
	SaveHTML                 bool   `json:"saveHtml"`
	SaveHTMLToKeyValueStore  bool   `json:"saveHtmlToKeyValueStore"`
}

// Search runs the actor for the topic and returns its result containers.
// The response body is either a JSON list of containers or an object with
// an "items" list; anything else is a decode error.
func (a *Apify) Search(ctx context.Context, topic string, pages int) ([]Page, error) {
	if pages <= 0 {
		pages = 1
	}

	query := Query(a.cfg.Site, topic, a.cfg.Qualifier)
	input := runInput{
		MaxPagesPerQuery:        pages,
		Queries:                 query,
		ResultsPerPage:          a.cfg.ResultsPerPage,
		SaveHTMLToKeyValueStore: true,
	}

	endpoint := a.cfg.EndpointURL + "?token=" + url.QueryEscape(a.cfg.Token)

	a.logger.Debug("running apify search", "query", query, "pages", pages)

	resp, err := a.client.PostJSON(ctx, endpoint, input)
	if err != nil {
		return nil, fmt.Errorf("apify: run actor: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("apify: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("apify: unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var list []Page
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Items []Page `json:"items"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("apify: decode response: %w", err)
	}
	return wrapped.Items, nil
}

// Name identifies the provider in logs, metrics, and reports.
func (a *Apify) Name() string { return "apify" }

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
