// Package sqlite archives lead rows in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FranksOps/leadsheet/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS leads (
	id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	username TEXT NOT NULL DEFAULT '',
	handle_url TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	followers INTEGER,
	captured_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leads_topic ON leads(topic);
CREATE INDEX IF NOT EXISTS idx_leads_captured_at ON leads(captured_at);
`

// New creates a SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Append(ctx context.Context, batch *storage.Batch) (int, error) {
	if batch.Empty() {
		return 0, nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO leads (id, topic, name, username, handle_url, description, followers, captured_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range batch.Records {
		var followers sql.NullInt64
		if r.Followers != nil {
			followers = sql.NullInt64{Int64: *r.Followers, Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			r.ID, r.Topic, r.Name, r.Username, r.HandleURL, r.Description, followers, r.CapturedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}

	return len(batch.Records), nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.LeadRecord, error) {
	query := `SELECT id, topic, name, username, handle_url, description, followers, captured_at FROM leads WHERE 1=1`
	args := []any{}

	if filter.Topic != "" {
		query += ` AND topic = ?`
		args = append(args, filter.Topic)
	}
	if filter.Since != nil {
		query += ` AND captured_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY captured_at DESC, rowid DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	var results []*storage.LeadRecord
	for rows.Next() {
		var r storage.LeadRecord
		var followers sql.NullInt64

		err := rows.Scan(
			&r.ID, &r.Topic, &r.Name, &r.Username, &r.HandleURL, &r.Description, &followers, &r.CapturedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}

		if followers.Valid {
			n := followers.Int64
			r.Followers = &n
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
