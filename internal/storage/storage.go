package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/FranksOps/leadsheet/internal/leads"
)

// Header is the fixed column layout every backend persists, in order.
var Header = []string{"Timestamp", "Topic", "Name", "Username", "Handle", "Description", "Followers"}

// TimestampLayout renders capture times: UTC wall clock at second precision
// with an explicit zone suffix. "UTC" is literal text, not a zone token.
const TimestampLayout = "2006-01-02 15:04:05 UTC"

// FormatTimestamp renders t the way rows store it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// LeadRecord is one persisted lead row. Records are append-only: created at
// append time, never mutated or deleted by this system.
type LeadRecord struct {
	ID          string
	Topic       string
	Name        string
	Username    string
	HandleURL   string
	Description string
	Followers   *int64
	CapturedAt  time.Time
}

// FollowersString serializes the follower count as its decimal string, or
// "" when absent.
func (r *LeadRecord) FollowersString() string {
	if r.Followers == nil {
		return ""
	}
	return strconv.FormatInt(*r.Followers, 10)
}

// Row renders the record in Header order.
func (r *LeadRecord) Row() []string {
	return []string{
		FormatTimestamp(r.CapturedAt),
		r.Topic,
		r.Name,
		r.Username,
		r.HandleURL,
		r.Description,
		r.FollowersString(),
	}
}

// Batch is one append unit. Every record in a batch shares a single capture
// timestamp taken when the batch is built.
type Batch struct {
	Topic      string
	CapturedAt time.Time
	Records    []*LeadRecord
}

// NewBatch stamps each lead with the batch topic, one shared UTC capture
// time, and a fresh record ID. Lead order is preserved.
func NewBatch(topic string, ls []leads.Lead) *Batch {
	now := time.Now().UTC().Truncate(time.Second)

	b := &Batch{
		Topic:      topic,
		CapturedAt: now,
		Records:    make([]*LeadRecord, 0, len(ls)),
	}

	for _, l := range ls {
		b.Records = append(b.Records, &LeadRecord{
			ID:          uuid.New().String(),
			Topic:       topic,
			Name:        l.Name,
			Username:    l.Username,
			HandleURL:   l.HandleURL,
			Description: l.Description,
			Followers:   l.Followers,
			CapturedAt:  now,
		})
	}
	return b
}

// Empty reports whether the batch holds no records. Backends must treat an
// empty batch as a no-op and perform no I/O for it.
func (b *Batch) Empty() bool {
	return b == nil || len(b.Records) == 0
}

// Filter allows querying for specific LeadRecords.
type Filter struct {
	Topic  string
	Since  *time.Time
	Limit  int
	Offset int
}

// Backend defines the interface for persisting and querying lead records.
// Append returns the number of rows written, zero for an empty batch.
// Query returns records newest first.
type Backend interface {
	Append(ctx context.Context, batch *Batch) (int, error)
	Query(ctx context.Context, filter Filter) ([]*LeadRecord, error)
	Close() error
}
