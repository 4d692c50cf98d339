package serp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const litePageTmpl = `<html><body><table>%s</table></body></html>`

func liteResult(href, title, snippet string) string {
	return fmt.Sprintf(
		`<tr><td><a rel="nofollow" href=%q class="result-link">%s</a></td></tr>
		 <tr><td class="result-snippet">%s</td></tr>`,
		href, title, snippet,
	)
}

func newDuckDuckGoForTest(t *testing.T, endpoint string) *DuckDuckGo {
	t.Helper()
	p, err := NewDuckDuckGo(DuckDuckGoConfig{
		EndpointURL: endpoint,
		Site:        "x.com",
		PageDelay:   time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewDuckDuckGo: %v", err)
	}
	return p
}

func TestDuckDuckGoSearch(t *testing.T) {
	var gotQuery string
	rows := liteResult(
		"//duckduckgo.com/l/?uddg=https%3A%2F%2Fx.com%2Falice&rut=abc",
		"Alice (@alice)", "DeFi builder. 12.3K followers",
	) + liteResult(
		"https://x.com/bob", "Bob", "Protocol engineer",
	)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("request carried no browser user agent: %q", ua)
		}
		fmt.Fprintf(w, litePageTmpl, rows)
	}))
	defer ts.Close()

	p := newDuckDuckGoForTest(t, ts.URL)

	// Two results is a short page, so only one page is fetched even
	// though three were requested.
	pages, err := p.Search(context.Background(), "defi", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotQuery != "site:x.com defi" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}

	entries := pages[0].Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].DisplayName() != "Alice (@alice)" {
		t.Errorf("title = %q", entries[0].DisplayName())
	}
	if entries[0].ProfileURL() != "https://x.com/alice" {
		t.Errorf("redirect link not unwrapped: %q", entries[0].ProfileURL())
	}
	if entries[0].Blurb() != "DeFi builder. 12.3K followers" {
		t.Errorf("snippet = %q", entries[0].Blurb())
	}
	if entries[1].ProfileURL() != "https://x.com/bob" {
		t.Errorf("plain link mangled: %q", entries[1].ProfileURL())
	}
}

func TestDuckDuckGoPagination(t *testing.T) {
	var offsets []string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offsets = append(offsets, r.URL.Query().Get("s"))

		var rows strings.Builder
		// A full page keeps pagination going; a single result ends it.
		n := resultsPerLitePage
		if r.URL.Query().Get("s") != "" {
			n = 1
		}
		for i := 0; i < n; i++ {
			rows.WriteString(liteResult(fmt.Sprintf("https://x.com/user%d", i), "User", "bio"))
		}
		fmt.Fprintf(w, litePageTmpl, rows.String())
	}))
	defer ts.Close()

	p := newDuckDuckGoForTest(t, ts.URL)

	pages, err := p.Search(context.Background(), "defi", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if len(offsets) != 2 || offsets[0] != "" || offsets[1] != "30" {
		t.Errorf("offsets = %v, want [\"\" \"30\"]", offsets)
	}
	if got := len(pages[0].Entries()); got != resultsPerLitePage {
		t.Errorf("first page has %d entries, want %d", got, resultsPerLitePage)
	}
}

func TestDuckDuckGoBlocked(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		blocked bool
	}{
		{"forbidden", http.StatusForbidden, "", true},
		{"rate limited", http.StatusTooManyRequests, "", true},
		{"challenge page", http.StatusOK, `<div class="anomaly-modal">unusual traffic</div>`, true},
		{"captcha page", http.StatusOK, `<form>complete the CAPTCHA</form>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			p := newDuckDuckGoForTest(t, ts.URL)

			_, err := p.Search(context.Background(), "defi", 1)
			if !errors.Is(err, ErrBlocked) {
				t.Errorf("err = %v, want ErrBlocked", err)
			}
		})
	}
}

func TestCleanResultURL(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fx.com%2Falice&rut=abc", "https://x.com/alice"},
		{"https://x.com/bob", "https://x.com/bob"},
		{"//lite.duckduckgo.com/lite", "https://lite.duckduckgo.com/lite"},
	}

	for _, tt := range tests {
		if got := cleanResultURL(tt.href); got != tt.want {
			t.Errorf("cleanResultURL(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}
