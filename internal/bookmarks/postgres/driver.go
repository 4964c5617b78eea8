// Package postgres is a PostgreSQL implementation of bookmarks.Store
// backed by pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koustreak/vdrive/internal/bookmarks"
	"github.com/koustreak/vdrive/internal/errs"
)

// Driver is safe for concurrent use by multiple goroutines.
type Driver struct {
	pool *pgxpool.Pool
	cfg  *bookmarks.Config
}

// New connects to PostgreSQL using the provided Config and returns a
// Driver. It pings the database and ensures the bookmark table exists
// before returning.
func New(ctx context.Context, cfg *bookmarks.Config) (*Driver, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create connection pool", err)
	}

	d := &Driver{pool: pool, cfg: cfg}

	if err := d.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := d.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return d, nil
}

// --- bookmarks.Store implementation ---

// Ping verifies the database is reachable by acquiring and releasing a
// connection.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool. Call when the application shuts down.
func (d *Driver) Close() {
	d.pool.Close()
}

// Add stores a bookmark for path, replacing any existing one.
func (d *Driver) Add(ctx context.Context, path, note string) error {
	const q = `
		INSERT INTO bookmarks (path, note, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (path) DO UPDATE SET note = EXCLUDED.note`

	ctx, cancel := d.queryContext(ctx)
	defer cancel()

	if _, err := d.pool.Exec(ctx, q, path, note); err != nil {
		return mapError(err, "failed to add bookmark")
	}
	return nil
}

// Remove deletes the bookmark for path. Removing a path that is not
// bookmarked is not an error.
func (d *Driver) Remove(ctx context.Context, path string) error {
	const q = `DELETE FROM bookmarks WHERE path = $1`

	ctx, cancel := d.queryContext(ctx)
	defer cancel()

	if _, err := d.pool.Exec(ctx, q, path); err != nil {
		return mapError(err, "failed to remove bookmark")
	}
	return nil
}

// List returns all bookmarks ordered by path.
func (d *Driver) List(ctx context.Context) ([]bookmarks.Record, error) {
	const q = `
		SELECT path, note, created_at
		FROM bookmarks
		ORDER BY path`

	ctx, cancel := d.queryContext(ctx)
	defer cancel()

	rows, err := d.pool.Query(ctx, q)
	if err != nil {
		return nil, mapError(err, "failed to list bookmarks")
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ForPaths returns the bookmarks among paths, keyed by path.
func (d *Driver) ForPaths(ctx context.Context, paths []string) (map[string]bookmarks.Record, error) {
	if len(paths) == 0 {
		return map[string]bookmarks.Record{}, nil
	}

	const q = `
		SELECT path, note, created_at
		FROM bookmarks
		WHERE path = ANY($1)`

	ctx, cancel := d.queryContext(ctx)
	defer cancel()

	rows, err := d.pool.Query(ctx, q, paths)
	if err != nil {
		return nil, mapError(err, "failed to fetch bookmarks")
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]bookmarks.Record, len(records))
	for _, rec := range records {
		byPath[rec.Path] = rec
	}
	return byPath, nil
}

// --- helpers ---

func (d *Driver) ensureTable(ctx context.Context) error {
	const q = `
		CREATE TABLE IF NOT EXISTS bookmarks (
			path       TEXT PRIMARY KEY,
			note       TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	if _, err := d.pool.Exec(ctx, q); err != nil {
		return mapError(err, "failed to ensure bookmark table")
	}
	return nil
}

func (d *Driver) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.cfg.QueryTimeout)
}

func scanRecords(rows pgx.Rows) ([]bookmarks.Record, error) {
	var records []bookmarks.Record
	for rows.Next() {
		var rec bookmarks.Record
		if err := rows.Scan(&rec.Path, &rec.Note, &rec.CreatedAt); err != nil {
			return nil, mapError(err, "failed to scan bookmark")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating bookmarks")
	}
	return records, nil
}

// --- error mapping ---

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := errs.ErrKindStoreFailed
		// Class 08 — connection errors
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			kind = errs.ErrKindConnectionFailed
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Fallthrough: connection-level errors (TLS, network, auth)
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
