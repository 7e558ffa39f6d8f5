package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const beatmapColumnNames = `beatmap_id, parent_id, checksum, artist, title, version,
	 creator, ar, od, cs, hp, stars, bpm, max_combo, hit_length, total_length,
	 game_mode, status, frozen, updated_at`

// prefixColumns qualifies each column in a comma-separated list with a
// table alias for use in joined queries.
func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// beatmapColumns returns the beatmap column list qualified with the
// given table alias, in scanBeatmap order.
func beatmapColumns(prefix string) string {
	return prefixColumns(prefix, beatmapColumnNames)
}

// prefixedUserColumns returns the user column list qualified with the
// given table alias, in scanUser order.
func prefixedUserColumns(prefix string) string {
	return prefixColumns(prefix, userColumns)
}

// Executor abstracts the pool and a transaction for writes that may
// run inside the submission transaction.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DB wraps a pgx connection pool shared by all repositories.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a DB handle.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pgx pool.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// WithTx runs fn inside a transaction, committing on nil and rolling
// back on error.
func (d *DB) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, d.pool, fn)
}

// noRows reports the pgx no-rows condition without importing the
// sentinel everywhere.
func noRows(err error) bool {
	return err != nil && err.Error() == "no rows in result set"
}
