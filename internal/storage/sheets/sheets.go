// Package sheets persists lead rows to a Google Sheets tab. Provisioning is
// idempotent: the tab is created on demand and the header row is re-asserted,
// not duplicated, on every run.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/FranksOps/leadsheet/internal/storage"
)

// Default capacity for newly created tabs.
const (
	defaultRows = 1000
	defaultCols = 20
)

// Config configures the Sheets backend.
type Config struct {
	SpreadsheetID   string
	Tab             string
	CredentialsFile string // service account JSON key; the sheet must be shared with its email
	// Extra client options, appended after the defaults. Tests use this to
	// point the service at a fake endpoint without credentials.
	Options []option.ClientOption
}

// Backend appends lead rows to one tab of one spreadsheet.
type Backend struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	tab           string
	logger        *slog.Logger

	mu          sync.Mutex
	provisioned bool
}

// ensure Backend implements storage.Backend
var _ storage.Backend = (*Backend)(nil)

// New creates the backend and its authenticated service. No spreadsheet
// calls happen until the first append or query.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet ID is required")
	}
	if cfg.Tab == "" {
		cfg.Tab = "Leads"
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("sheets: service account key not found at %s: %w", cfg.CredentialsFile, err)
		}
		opts = append(opts,
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(sheetsapi.SpreadsheetsScope),
		)
	}
	opts = append(opts, cfg.Options...)

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	return &Backend{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		tab:           cfg.Tab,
		logger:        logger,
	}, nil
}

// rangeRef builds an A1-notation range on the backend's tab.
func (b *Backend) rangeRef(ref string) string {
	return "'" + strings.ReplaceAll(b.tab, "'", "''") + "'!" + ref
}

// EnsureTab guarantees the tab exists and starts with the fixed header row.
// Running it against an already-correct tab changes nothing. On a header
// mismatch the whole first row range A1:G1 is overwritten.
func (b *Backend) EnsureTab(ctx context.Context) error {
	ss, err := b.svc.Spreadsheets.Get(b.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: open spreadsheet: %w", err)
	}

	exists := false
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == b.tab {
			exists = true
			break
		}
	}

	if !exists {
		req := &sheetsapi.BatchUpdateSpreadsheetRequest{
			Requests: []*sheetsapi.Request{{
				AddSheet: &sheetsapi.AddSheetRequest{
					Properties: &sheetsapi.SheetProperties{
						Title: b.tab,
						GridProperties: &sheetsapi.GridProperties{
							RowCount:    defaultRows,
							ColumnCount: defaultCols,
						},
					},
				},
			}},
		}
		if _, err := b.svc.Spreadsheets.BatchUpdate(b.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("sheets: create tab %q: %w", b.tab, err)
		}
		b.logger.Info("created sheet tab", "tab", b.tab)
	}

	firstRow, err := b.svc.Spreadsheets.Values.Get(b.spreadsheetID, b.rangeRef("1:1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: read header: %w", err)
	}

	if !headerMatches(firstRow) {
		header := make([]any, len(storage.Header))
		for i, h := range storage.Header {
			header[i] = h
		}
		vr := &sheetsapi.ValueRange{Values: [][]any{header}}
		_, err := b.svc.Spreadsheets.Values.Update(b.spreadsheetID, b.rangeRef("A1:G1"), vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("sheets: write header: %w", err)
		}
		b.logger.Info("wrote header row", "tab", b.tab)
	}

	return nil
}

// headerMatches reports whether the first 7 cells of the first row equal the
// fixed header.
func headerMatches(vr *sheetsapi.ValueRange) bool {
	if vr == nil || len(vr.Values) == 0 {
		return false
	}
	row := vr.Values[0]
	if len(row) < len(storage.Header) {
		return false
	}
	for i, want := range storage.Header {
		got, ok := row[i].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Append provisions the tab once per backend lifetime and appends one row
// per record in a single batch call. An empty batch performs no network call
// at all, including provisioning.
func (b *Backend) Append(ctx context.Context, batch *storage.Batch) (int, error) {
	if batch.Empty() {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.provisioned {
		if err := b.EnsureTab(ctx); err != nil {
			return 0, err
		}
		b.provisioned = true
	}

	values := make([][]any, 0, len(batch.Records))
	for _, r := range batch.Records {
		row := r.Row()
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		values = append(values, cells)
	}

	vr := &sheetsapi.ValueRange{Values: values}
	// USER_ENTERED keeps large follower counts from being reinterpreted by
	// the backend in surprising ways.
	_, err := b.svc.Spreadsheets.Values.Append(b.spreadsheetID, b.rangeRef("A:G"), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("sheets: append rows: %w", err)
	}

	return len(batch.Records), nil
}

// Query reads every data row of the tab and filters locally. Sheet rows have
// no stored record ID, so returned records carry an empty ID.
func (b *Backend) Query(ctx context.Context, filter storage.Filter) ([]*storage.LeadRecord, error) {
	resp, err := b.svc.Spreadsheets.Values.Get(b.spreadsheetID, b.rangeRef("A2:G")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read rows: %w", err)
	}

	var matched []*storage.LeadRecord
	for _, row := range resp.Values {
		rec := parseRow(row)
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

	// Sheet order is append order; return newest first like other backends.
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

func parseRow(row []any) *storage.LeadRecord {
	cell := func(i int) string {
		if i >= len(row) {
			return ""
		}
		s, _ := row[i].(string)
		return s
	}

	capturedAt, err := storage.ParseTimestamp(cell(0))
	if err != nil {
		return nil
	}

	rec := &storage.LeadRecord{
		Topic:       cell(1),
		Name:        cell(2),
		Username:    cell(3),
		HandleURL:   cell(4),
		Description: cell(5),
		CapturedAt:  capturedAt,
	}

	if s := cell(6); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			rec.Followers = &n
		}
	}
	return rec
}

// Close satisfies storage.Backend; the Sheets service holds no resources
// that need releasing.
func (b *Backend) Close() error { return nil }
