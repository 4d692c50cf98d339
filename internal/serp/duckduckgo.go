package serp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/FranksOps/leadsheet/internal/blockdetect"
	"github.com/FranksOps/leadsheet/internal/fingerprint"
	"github.com/FranksOps/leadsheet/pkg/httpclient"
	"github.com/FranksOps/leadsheet/pkg/proxy"
	"github.com/FranksOps/leadsheet/pkg/ratelimit"
	"github.com/FranksOps/leadsheet/pkg/useragent"
)

// DefaultLiteURL is the DuckDuckGo lite frontend. It serves plain HTML with
// far less bot detection than the main frontend, which makes it a usable
// fallback when no API token is configured.
const DefaultLiteURL = "https://lite.duckduckgo.com/lite/"

// resultsPerLitePage is how many results one lite page carries; used to
// compute the offset parameter for subsequent pages.
const resultsPerLitePage = 30

// ErrBlocked reports that the engine answered with a challenge or block page
// instead of results. Runs abort on it; no retry is attempted.
var ErrBlocked = errors.New("serp: blocked by search engine")

// DuckDuckGoConfig configures the HTML-scraping fallback provider.
type DuckDuckGoConfig struct {
	EndpointURL string // defaults to DefaultLiteURL; overridable for tests
	Site        string
	Qualifier   string
	Timeout     time.Duration
	PageDelay   time.Duration // pacing between result page fetches
	Fingerprint fingerprint.Profile
	UserAgents  []string
	Proxies     []string // optional upstream proxies, rotated per request
	ProxyFile   string   // optional file of proxies, one URL per line
}

// DuckDuckGo scrapes result HTML from the lite frontend. Pages beyond the
// first are fetched sequentially with a polite delay between them.
type DuckDuckGo struct {
	cfg     DuckDuckGoConfig
	client  *httpclient.Client
	uas     *useragent.Pool
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

var _ Provider = (*DuckDuckGo)(nil)

// NewDuckDuckGo creates the fallback provider.
func NewDuckDuckGo(cfg DuckDuckGoConfig, logger *slog.Logger) (*DuckDuckGo, error) {
	if cfg.EndpointURL == "" {
		cfg.EndpointURL = DefaultLiteURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageDelay == 0 {
		cfg.PageDelay = 1500 * time.Millisecond
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}

	if len(cfg.Proxies) > 0 || cfg.ProxyFile != "" {
		pool := proxy.NewPool(proxy.Config{})
		if cfg.ProxyFile != "" {
			if err := pool.LoadFile(cfg.ProxyFile); err != nil {
				return nil, fmt.Errorf("duckduckgo: %w", err)
			}
		}
		if err := pool.Add(cfg.Proxies...); err != nil {
			return nil, fmt.Errorf("duckduckgo: %w", err)
		}
		if tr, ok := transport.(*http.Transport); ok {
			tr.Proxy = pool.ProxyFunc()
		}
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 5,
		UseCookieJar: true,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}

	return &DuckDuckGo{
		cfg:     cfg,
		client:  client,
		uas:     useragent.NewPool(cfg.UserAgents),
		limiter: ratelimit.New(cfg.PageDelay, 0.3),
		logger:  logger,
	}, nil
}

// Search fetches up to pages result pages for the topic and returns one
// container per page, preserving page order.
func (d *DuckDuckGo) Search(ctx context.Context, topic string, pages int) ([]Page, error) {
	if pages <= 0 {
		pages = 1
	}

	query := Query(d.cfg.Site, topic, d.cfg.Qualifier)

	out := make([]Page, 0, pages)
	for i := 0; i < pages; i++ {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("duckduckgo: %w", err)
		}

		entries, err := d.fetchPage(ctx, query, i*resultsPerLitePage)
		if err != nil {
			return nil, err
		}

		page := Page{Results: &entries}
		out = append(out, page)

		// A short page means the engine ran out of results.
		if len(entries) < resultsPerLitePage {
			break
		}
	}
	return out, nil
}

func (d *DuckDuckGo) fetchPage(ctx context.Context, query string, offset int) ([]Entry, error) {
	v := url.Values{}
	v.Set("q", query)
	if offset > 0 {
		v.Set("s", strconv.Itoa(offset))
	}
	pageURL := d.cfg.EndpointURL + "?" + v.Encode()

	header := http.Header{}
	header.Set("User-Agent", d.uas.Next())
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	header.Set("Accept-Language", "en-US,en;q=0.5")

	d.logger.Debug("fetching result page", "url", d.cfg.EndpointURL, "offset", offset)

	resp, err := d.client.Get(ctx, pageURL, header)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: fetch results: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: read results: %w", err)
	}

	if isBlocked, source := blockdetect.Detect(blockdetect.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, blockdetect.DefaultDetectors()); isBlocked {
		return nil, fmt.Errorf("%w (%s, status %d)", ErrBlocked, source, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo: unexpected status %d", resp.StatusCode)
	}

	return parseLiteResults(body)
}

// parseLiteResults extracts entries from the lite frontend's table layout:
// each result is a link row followed by a snippet row.
func parseLiteResults(body []byte) ([]Entry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: parse html: %w", err)
	}

	entries := []Entry{}
	doc.Find("a.result-link").Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}

		e := Entry{
			Title: strings.TrimSpace(s.Text()),
			Link:  cleanResultURL(href),
		}

		// The snippet lives in the next table row.
		if row := s.Closest("tr").Next(); row.Length() > 0 {
			e.Snippet = strings.TrimSpace(row.Find("td.result-snippet").Text())
		}

		entries = append(entries, e)
	})

	return entries, nil
}

// cleanResultURL unwraps the engine's redirect links (//duckduckgo.com/l/?uddg=<target>)
// back to the target URL. Plain links pass through verbatim.
func cleanResultURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

// Name identifies the provider in logs, metrics, and reports.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }
