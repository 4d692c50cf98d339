package serp

import (
	"context"
	"encoding/json"
	"strings"
)

// Entry is one organic result entry as returned by a search provider.
// Providers are loosely structured and untrusted, so every field is optional
// and equivalent fields appear under more than one key.
type Entry struct {
	Title           string     `json:"title"`
	URL             string     `json:"url"`
	Link            string     `json:"link"`
	Description     string     `json:"description"`
	Snippet         string     `json:"snippet"`
	FollowersAmount FlexString `json:"followersAmount"`
	Followers       FlexString `json:"followers"`
}

// DisplayName returns the title-like field of the entry.
func (e *Entry) DisplayName() string { return e.Title }

// ProfileURL returns the first non-empty URL-like field.
func (e *Entry) ProfileURL() string {
	if e.URL != "" {
		return e.URL
	}
	return e.Link
}

// Blurb returns the first non-empty description-like field.
func (e *Entry) Blurb() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Snippet
}

// FollowersText returns the raw follower-count text, if the provider
// supplied any. The value is free text such as "12.3K followers".
func (e *Entry) FollowersText() string {
	if e.FollowersAmount != "" {
		return string(e.FollowersAmount)
	}
	return string(e.Followers)
}

// Page is one result container from a provider response. Some providers wrap
// the payload under a nested "json" key; the entry list itself appears under
// either "organicResults" or "results". Pointer slices distinguish an absent
// key from an empty list.
type Page struct {
	Inner          *Page    `json:"json,omitempty"`
	OrganicResults *[]Entry `json:"organicResults,omitempty"`
	Results        *[]Entry `json:"results,omitempty"`
}

// Entries unwraps the container and returns its entry list. A container that
// carries neither recognized key yields nil. When the "organicResults" key is
// present it wins even if empty, matching how providers distinguish "no
// organic results" from "unknown layout".
func (p Page) Entries() []Entry {
	if p.Inner != nil {
		return p.Inner.Entries()
	}
	if p.OrganicResults != nil {
		return *p.OrganicResults
	}
	if p.Results != nil {
		return *p.Results
	}
	return nil
}

// FlexString decodes a JSON string or number into a string. Follower counts
// in particular show up both ways depending on the provider. Values of any
// other JSON type decode to the empty string rather than failing the whole
// payload.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*s = ""
		return nil
	}
	*s = FlexString(n.String())
	return nil
}

// Provider abstracts a search engine that can return result pages for a
// topic. Implementations may call an official API or scrape result HTML.
// The pages parameter caps how many result pages are requested.
type Provider interface {
	Search(ctx context.Context, topic string, pages int) ([]Page, error)
	Name() string
}

// Query builds the provider query string: a site qualifier restricting
// results to profile pages, the topic, and an optional fixed qualifier
// biasing results toward a niche.
func Query(site, topic, qualifier string) string {
	parts := make([]string, 0, 3)
	if site != "" {
		parts = append(parts, "site:"+site)
	}
	if topic != "" {
		parts = append(parts, topic)
	}
	if qualifier != "" {
		parts = append(parts, qualifier)
	}
	return strings.Join(parts, " ")
}
