// Package jsonbackend persists lead records as NDJSON, one record per
// line. Useful for piping runs into jq or shipping to log tooling.
package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/FranksOps/leadsheet/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// jsonRecord pins the on-disk field names independently of the
// LeadRecord struct.
type jsonRecord struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	Name        string    `json:"name"`
	Username    string    `json:"username"`
	HandleURL   string    `json:"handle_url"`
	Description string    `json:"description"`
	Followers   *int64    `json:"followers"`
	CapturedAt  time.Time `json:"captured_at"`
}

// New creates an NDJSON-backed storage.Backend at filePath.
func New(filePath string) (storage.Backend, error) {
	// Open file for appending, create if it doesn't exist
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("jsonbackend: open %s: %w", filePath, err)
	}

	return &jsonBackend{
		file: f,
	}, nil
}

func (b *jsonBackend) Append(ctx context.Context, batch *storage.Batch) (int, error) {
	if batch.Empty() {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	written := 0
	for _, r := range batch.Records {
		data, err := json.Marshal(jsonRecord{
			ID:          r.ID,
			Topic:       r.Topic,
			Name:        r.Name,
			Username:    r.Username,
			HandleURL:   r.HandleURL,
			Description: r.Description,
			Followers:   r.Followers,
			CapturedAt:  r.CapturedAt,
		})
		if err != nil {
			return written, fmt.Errorf("jsonbackend: marshal record: %w", err)
		}
		if _, err := b.file.Write(append(data, '\n')); err != nil {
			return written, fmt.Errorf("jsonbackend: write record: %w", err)
		}
		written++
	}

	return written, nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.LeadRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Seek to the beginning of the file to read all entries
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("jsonbackend: seek: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	scanner := bufio.NewScanner(b.file)

	// In a real DB, offset/limit and ordering is handled by the engine.
	// For NDJSON, we read everything, filter in memory, and then slice/reverse.
	var allFiltered []*storage.LeadRecord

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var jr jsonRecord
		if err := json.Unmarshal(line, &jr); err != nil {
			return nil, fmt.Errorf("jsonbackend: decode record: %w", err)
		}

		// Apply filters
		if filter.Topic != "" && jr.Topic != filter.Topic {
			continue
		}
		if filter.Since != nil && jr.CapturedAt.Before(*filter.Since) {
			continue
		}

		allFiltered = append(allFiltered, &storage.LeadRecord{
			ID:          jr.ID,
			Topic:       jr.Topic,
			Name:        jr.Name,
			Username:    jr.Username,
			HandleURL:   jr.HandleURL,
			Description: jr.Description,
			Followers:   jr.Followers,
			CapturedAt:  jr.CapturedAt,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonbackend: scan: %w", err)
	}

	// Order by captured_at DESC (reverse the slice)
	for i, j := 0, len(allFiltered)-1; i < j; i, j = i+1, j-1 {
		allFiltered[i], allFiltered[j] = allFiltered[j], allFiltered[i]
	}

	// Apply Offset
	if filter.Offset > 0 {
		if filter.Offset >= len(allFiltered) {
			return []*storage.LeadRecord{}, nil
		}
		allFiltered = allFiltered[filter.Offset:]
	}

	// Apply Limit
	if filter.Limit > 0 && filter.Limit < len(allFiltered) {
		allFiltered = allFiltered[:filter.Limit]
	}

	return allFiltered, nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
