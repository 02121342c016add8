package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the resolution history table.
const Schema = `
CREATE TABLE IF NOT EXISTS imagery_resolutions (
	id           UUID PRIMARY KEY,
	trigger      TEXT NOT NULL,
	requested    DATE NOT NULL,
	lookback     INTEGER NOT NULL,
	exhausted    BOOLEAN NOT NULL,
	fell_back    BOOLEAN NOT NULL,
	status       TEXT NOT NULL,
	sources      JSONB NOT NULL,
	resolved_at  TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS imagery_resolutions_created_at_idx
	ON imagery_resolutions (created_at DESC);
`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL history repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the history table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

// Append stores a new entry.
func (r *PostgresRepository) Append(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO imagery_resolutions (
			id, trigger, requested, lookback, exhausted, fell_back,
			status, sources, resolved_at, created_at
		) VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.Trigger,
		entry.Requested,
		entry.Lookback,
		entry.Exhausted,
		entry.FellBack,
		entry.Status,
		entry.Sources,
		entry.ResolvedAt,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// Get retrieves an entry by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Entry, error) {
	query := `
		SELECT
			id, trigger, to_char(requested, 'YYYY-MM-DD'), lookback,
			exhausted, fell_back, status, sources, resolved_at, created_at
		FROM imagery_resolutions
		WHERE id = $1
	`

	entry, err := scanEntry(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// List returns entries newest first.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) ([]*Entry, error) {
	query := `
		SELECT
			id, trigger, to_char(requested, 'YYYY-MM-DD'), lookback,
			exhausted, fell_back, status, sources, resolved_at, created_at
		FROM imagery_resolutions
		WHERE ($1 = '' OR trigger = $1)
		  AND (NOT $2 OR exhausted)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, opts.Trigger, opts.ExhaustedOnly, opts.EffectiveLimit())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID,
		&e.Trigger,
		&e.Requested,
		&e.Lookback,
		&e.Exhausted,
		&e.FellBack,
		&e.Status,
		&e.Sources,
		&e.ResolvedAt,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
