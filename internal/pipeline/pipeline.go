// Package pipeline wires the run together: one provider search, one
// extraction pass, one storage append, strictly in sequence. Any transport
// failure aborts the run before the next stage; there are no retries and no
// partial writes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/leadsheet/internal/leads"
	"github.com/FranksOps/leadsheet/internal/metrics"
	"github.com/FranksOps/leadsheet/internal/serp"
	"github.com/FranksOps/leadsheet/internal/storage"
)

// Pipeline holds the three collaborators of a run. All fields are required
// except Logger.
type Pipeline struct {
	Provider    serp.Provider
	Extractor   *leads.Extractor
	Backend     storage.Backend
	BackendName string // label for metrics and the report
	Logger      *slog.Logger
}

// Result captures what one run did, for reporting.
type Result struct {
	Topic     string
	Provider  string
	Backend   string
	Pages     int
	Records   []*storage.LeadRecord
	Appended  int
	StartTime time.Time
	EndTime   time.Time
}

// Duration is the wall-clock length of the run.
func (r *Result) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Run executes search, extraction, and append for one topic.
func (p *Pipeline) Run(ctx context.Context, topic string, pages int) (*Result, error) {
	if p.Provider == nil {
		return nil, errors.New("pipeline: provider is required")
	}
	if p.Extractor == nil {
		return nil, errors.New("pipeline: extractor is required")
	}
	if p.Backend == nil {
		return nil, errors.New("pipeline: backend is required")
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now().UTC()

	logger.Info("searching", "provider", p.Provider.Name(), "topic", topic, "pages", pages)

	searchStart := time.Now()
	resultPages, err := p.Provider.Search(ctx, topic, pages)
	metrics.RecordSearch(p.Provider.Name(), time.Since(searchStart), err)
	if err != nil {
		return nil, fmt.Errorf("pipeline: search: %w", err)
	}

	extracted := p.Extractor.Extract(resultPages)
	metrics.RecordExtraction(p.Provider.Name(), len(extracted))
	logger.Info("extracted leads", "count", len(extracted), "pages", len(resultPages))

	batch := storage.NewBatch(topic, extracted)
	appended, err := p.Backend.Append(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("pipeline: append: %w", err)
	}
	metrics.RecordAppend(p.BackendName, appended)
	logger.Info("appended rows", "count", appended, "backend", p.BackendName)

	return &Result{
		Topic:     topic,
		Provider:  p.Provider.Name(),
		Backend:   p.BackendName,
		Pages:     len(resultPages),
		Records:   batch.Records,
		Appended:  appended,
		StartTime: start,
		EndTime:   time.Now().UTC(),
	}, nil
}
