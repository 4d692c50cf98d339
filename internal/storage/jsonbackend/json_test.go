package jsonbackend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/leadsheet/internal/leads"
	"github.com/FranksOps/leadsheet/internal/storage"
)

func newTestBackend(t *testing.T) storage.Backend {
	t.Helper()
	b, err := New(filepath.Join(t.TempDir(), "leads.ndjson"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func followers(n int64) *int64 { return &n }

func TestAppendAndQuery(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	batch := storage.NewBatch("defi", []leads.Lead{
		{Name: "Alice", Username: "alice", HandleURL: "https://x.com/alice", Description: "builder", Followers: followers(12300)},
		{Name: "Bob", Username: "bob", HandleURL: "https://x.com/bob"},
	})

	n, err := b.Append(ctx, batch)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != 2 {
		t.Fatalf("Append wrote %d rows, want 2", n)
	}

	got, err := b.Query(ctx, storage.Filter{Topic: "defi"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Query returned %d records, want 2", len(got))
	}

	// Newest first means insertion order is reversed.
	if got[0].Username != "bob" || got[1].Username != "alice" {
		t.Errorf("order = %s, %s; want bob, alice", got[0].Username, got[1].Username)
	}
	if got[1].Followers == nil || *got[1].Followers != 12300 {
		t.Errorf("alice followers = %v, want 12300", got[1].Followers)
	}
	if got[0].Followers != nil {
		t.Errorf("bob followers = %v, want nil", got[0].Followers)
	}
	if got[0].Topic != "defi" {
		t.Errorf("topic = %q", got[0].Topic)
	}
}

func TestQueryFilters(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	for _, topic := range []string{"defi", "ai", "defi"} {
		batch := storage.NewBatch(topic, []leads.Lead{{Name: topic, Username: topic}})
		if _, err := b.Append(ctx, batch); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := b.Query(ctx, storage.Filter{Topic: "defi"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("topic filter returned %d records, want 2", len(got))
	}

	got, err = b.Query(ctx, storage.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("limit 1 returned %d records", len(got))
	}

	got, err = b.Query(ctx, storage.Filter{Offset: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("offset past end returned %d records", len(got))
	}

	future := time.Now().UTC().Add(time.Hour)
	got, err = b.Query(ctx, storage.Filter{Since: &future})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("future since returned %d records", len(got))
	}
}

func TestAppendEmptyBatch(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	n, err := b.Append(ctx, &storage.Batch{Topic: "defi"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != 0 {
		t.Errorf("empty batch wrote %d rows", n)
	}

	got, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("file should hold no records, got %d", len(got))
	}
}
