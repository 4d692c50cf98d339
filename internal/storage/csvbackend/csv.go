// Package csvbackend persists lead rows to a local CSV file, mirroring the
// spreadsheet column layout with a leading record ID.
package csvbackend

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/FranksOps/leadsheet/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// columns is the CSV column order: record ID followed by storage.Header.
var columns = []string{"id", "timestamp", "topic", "name", "username", "handle", "description", "followers"}

// New creates a CSV-backed storage.Backend. The header row is written once
// when the file is empty; re-opening an existing file leaves it untouched.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("csvbackend: open: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csvbackend: stat: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(columns); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: flush header: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Append(ctx context.Context, batch *storage.Batch) (int, error) {
	if batch.Empty() {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return 0, fmt.Errorf("csvbackend: seek: %w", err)
	}

	w := csv.NewWriter(b.file)
	for _, r := range batch.Records {
		record := append([]string{r.ID}, r.Row()...)
		if err := w.Write(record); err != nil {
			return 0, fmt.Errorf("csvbackend: write row: %w", err)
		}
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("csvbackend: flush: %w", err)
	}

	return len(batch.Records), nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.LeadRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("csvbackend: seek: %w", err)
	}
	defer func() {
		// Restore pointer to end for appending
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	// Skip the header row
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []*storage.LeadRecord{}, nil
		}
		return nil, fmt.Errorf("csvbackend: read header: %w", err)
	}

	var matched []*storage.LeadRecord

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvbackend: read row: %w", err)
		}

		if len(record) != len(columns) {
			continue // skip malformed rows
		}

		rec := parseRecord(record)
		if rec == nil {
			continue
		}

		if filter.Topic != "" && rec.Topic != filter.Topic {
			continue
		}
		if filter.Since != nil && rec.CapturedAt.Before(*filter.Since) {
			continue
		}

		matched = append(matched, rec)
	}

	// Newest first: file order is append order, so reverse.
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*storage.LeadRecord{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

func parseRecord(record []string) *storage.LeadRecord {
	capturedAt, err := storage.ParseTimestamp(record[1])
	if err != nil {
		return nil
	}

	rec := &storage.LeadRecord{
		ID:          record[0],
		Topic:       record[2],
		Name:        record[3],
		Username:    record[4],
		HandleURL:   record[5],
		Description: record[6],
		CapturedAt:  capturedAt,
	}

	if record[7] != "" {
		if n, err := strconv.ParseInt(record[7], 10, 64); err == nil {
			rec.Followers = &n
		}
	}
	return rec
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
