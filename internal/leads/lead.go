// Package leads normalizes raw search result entries into lead records.
// Its parsers never fail: malformed input degrades to an empty or absent
// value so one bad entry cannot abort a run.
package leads

import (
	"regexp"

	"github.com/FranksOps/leadsheet/internal/serp"
)

// DefaultProfileHost is the host whose first path segment is treated as a
// profile username.
const DefaultProfileHost = "x.com"

// Lead is one normalized candidate profile derived from exactly one search
// result entry. Results are never merged or deduplicated.
type Lead struct {
	Name        string `json:"name"`
	Username    string `json:"username"`
	HandleURL   string `json:"handle_url"`
	Description string `json:"description"`
	Followers   *int64 `json:"followers,omitempty"`
}

// Extractor maps provider result pages to leads. The profile host decides
// which URLs yield a username.
type Extractor struct {
	host   string
	userRe *regexp.Regexp
}

// NewExtractor creates an extractor for the given profile host, falling back
// to DefaultProfileHost when empty.
func NewExtractor(profileHost string) *Extractor {
	if profileHost == "" {
		profileHost = DefaultProfileHost
	}
	return &Extractor{
		host:   profileHost,
		userRe: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(profileHost) + `/([^/?#]+)`),
	}
}

// Username returns the path segment immediately following the profile host
// in rawURL, or "" when the URL is empty, malformed, or does not contain the
// host.
func (e *Extractor) Username(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	m := e.userRe.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// Extract flattens result containers into leads, one lead per entry, in
// input order. Containers without a recognized entry list contribute nothing.
func (e *Extractor) Extract(pages []serp.Page) []Lead {
	var out []Lead
	for _, page := range pages {
		for _, entry := range page.Entries() {
			l := Lead{
				Name:        entry.DisplayName(),
				HandleURL:   entry.ProfileURL(),
				Description: entry.Blurb(),
			}
			l.Username = e.Username(l.HandleURL)
			if n, ok := ParseFollowers(entry.FollowersText()); ok {
				l.Followers = &n
			}
			out = append(out, l)
		}
	}
	return out
}

var defaultExtractor = NewExtractor(DefaultProfileHost)

// UsernameFromURL derives a username using the default profile host.
func UsernameFromURL(rawURL string) string {
	return defaultExtractor.Username(rawURL)
}
