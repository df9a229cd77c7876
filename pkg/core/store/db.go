// Package store persists analysis runs in PostgreSQL.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Open connects to the database at url and verifies the connection.
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL not set")
	}

	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS ratio_runs (
	id         UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	errors     JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS ratio_records (
	run_id                  UUID NOT NULL REFERENCES ratio_runs(id) ON DELETE CASCADE,
	seq                     INTEGER NOT NULL,
	company                 TEXT NOT NULL,
	month                   TEXT NOT NULL,
	debt_to_equity          DOUBLE PRECISION,
	operating_profit_margin DOUBLE PRECISION,
	roce                    DOUBLE PRECISION,
	raw                     JSONB,
	PRIMARY KEY (run_id, seq)
);
`

// EnsureSchema creates the run tables when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
