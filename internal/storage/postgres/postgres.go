// Package postgres persists lead rows in PostgreSQL via a pgx pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FranksOps/leadsheet/internal/storage"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS leads (
	id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	username TEXT NOT NULL DEFAULT '',
	handle_url TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	followers BIGINT,
	captured_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leads_topic ON leads(topic);
CREATE INDEX IF NOT EXISTS idx_leads_captured_at ON leads(captured_at);
`

// New creates a Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Append(ctx context.Context, batch *storage.Batch) (int, error) {
	if batch.Empty() {
		return 0, nil
	}

	rows := make([][]any, 0, len(batch.Records))
	for _, r := range batch.Records {
		var followers *int64
		if r.Followers != nil {
			n := *r.Followers
			followers = &n
		}
		rows = append(rows, []any{
			r.ID, r.Topic, r.Name, r.Username, r.HandleURL, r.Description, followers, r.CapturedAt,
		})
	}

	copied, err := b.pool.CopyFrom(ctx,
		pgx.Identifier{"leads"},
		[]string{"id", "topic", "name", "username", "handle_url", "description", "followers", "captured_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: copy: %w", err)
	}

	return int(copied), nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.LeadRecord, error) {
	query := `SELECT id, topic, name, username, handle_url, description, followers, captured_at FROM leads WHERE 1=1`
	args := []any{}
	param := 1

	if filter.Topic != "" {
		query += fmt.Sprintf(` AND topic = $%d`, param)
		args = append(args, filter.Topic)
		param++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND captured_at >= $%d`, param)
		args = append(args, *filter.Since)
		param++
	}

	query += ` ORDER BY captured_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, param)
		args = append(args, filter.Limit)
		param++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, param)
		args = append(args, filter.Offset)
		param++
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	defer rows.Close()

	var results []*storage.LeadRecord
	for rows.Next() {
		var r storage.LeadRecord

		err := rows.Scan(
			&r.ID, &r.Topic, &r.Name, &r.Username, &r.HandleURL, &r.Description, &r.Followers, &r.CapturedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
