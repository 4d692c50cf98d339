package serp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newApifyForTest(t *testing.T, endpoint string) *Apify {
	t.Helper()
	p, err := NewApify(ApifyConfig{
		Token:       "secret-token",
		EndpointURL: endpoint,
		Site:        "x.com",
		Qualifier:   `"followers"`,
	}, nil)
	if err != nil {
		t.Fatalf("NewApify: %v", err)
	}
	return p
}

func TestApifyRequiresToken(t *testing.T) {
	if _, err := NewApify(ApifyConfig{}, nil); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestApifySearch(t *testing.T) {
	var gotToken string
	var gotInput runInput

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotToken = r.URL.Query().Get("token")
		if err := json.NewDecoder(r.Body).Decode(&gotInput); err != nil {
			t.Errorf("decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"organicResults": [
				{"title": "Alice", "url": "https://x.com/alice", "description": "builder", "followersAmount": "12.3K"},
				{"title": "Bob", "link": "https://x.com/bob"}
			]},
			{"results": [
				{"title": "Carol", "url": "https://x.com/carol", "followers": 4200}
			]}
		]`))
	}))
	defer ts.Close()

	p := newApifyForTest(t, ts.URL)

	pages, err := p.Search(context.Background(), "defi", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotToken != "secret-token" {
		t.Errorf("token param = %q", gotToken)
	}
	if gotInput.Queries != `site:x.com defi "followers"` {
		t.Errorf("queries = %q", gotInput.Queries)
	}
	if gotInput.MaxPagesPerQuery != 2 {
		t.Errorf("maxPagesPerQuery = %d, want 2", gotInput.MaxPagesPerQuery)
	}
	if gotInput.ResultsPerPage != 100 {
		t.Errorf("resultsPerPage = %d, want default 100", gotInput.ResultsPerPage)
	}
	if !gotInput.SaveHTMLToKeyValueStore {
		t.Error("saveHtmlToKeyValueStore should be set")
	}

	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	first := pages[0].Entries()
	if len(first) != 2 || first[0].Title != "Alice" || first[0].FollowersText() != "12.3K" {
		t.Errorf("unexpected first page entries: %+v", first)
	}
	second := pages[1].Entries()
	if len(second) != 1 || second[0].FollowersText() != "4200" {
		t.Errorf("unexpected second page entries: %+v", second)
	}
}

func TestApifySearchItemsWrapper(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items": [{"organicResults": [{"title": "Alice", "url": "https://x.com/alice"}]}]}`))
	}))
	defer ts.Close()

	p := newApifyForTest(t, ts.URL)

	pages, err := p.Search(context.Background(), "defi", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(pages) != 1 || len(pages[0].Entries()) != 1 {
		t.Fatalf("unexpected pages: %+v", pages)
	}
}

func TestApifySearchErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"type": "actor-is-not-rented"}}`, http.StatusPaymentRequired)
	}))
	defer ts.Close()

	p := newApifyForTest(t, ts.URL)

	_, err := p.Search(context.Background(), "defi", 1)
	if err == nil {
		t.Fatal("expected error for non-2xx status")
	}
	if !strings.Contains(err.Error(), "402") {
		t.Errorf("error should carry the status code: %v", err)
	}
	if !strings.Contains(err.Error(), "actor-is-not-rented") {
		t.Errorf("error should carry the response body: %v", err)
	}
}

func TestApifySearchMalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer ts.Close()

	p := newApifyForTest(t, ts.URL)

	if _, err := p.Search(context.Background(), "defi", 1); err == nil {
		t.Fatal("expected decode error")
	}
}
