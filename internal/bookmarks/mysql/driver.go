// Package mysql is a MySQL implementation of bookmarks.Store backed by
// database/sql and the go-sql-driver.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/koustreak/vdrive/internal/bookmarks"
	"github.com/koustreak/vdrive/internal/errs"
)

// Driver is safe for concurrent use by multiple goroutines.
type Driver struct {
	db  *sql.DB
	cfg *bookmarks.Config
}

// New opens a MySQL connection pool using the provided Config and returns
// a Driver. It pings the database and ensures the bookmark table exists
// before returning.
func New(ctx context.Context, cfg *bookmarks.Config) (*Driver, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid DSN", err)
	}

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := &Driver{db: db, cfg: cfg}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := d.ensureTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

// --- bookmarks.Store implementation ---

func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

func (d *Driver) Add(ctx context.Context, path, note string) error {
	const q = `
		INSERT INTO bookmarks (path, note)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE note = VALUES(note)`

	ctx, cancel := d.queryContext(ctx)
	defer cancel()

	if _, err := d.db.ExecContext(ctx, q, path, note); err != nil {
		return mapError(err, "failed to add bookmark")
	}
	return nil
}

func (d *Driver) Remove(ctx context.Context, path string) error {
	const q = `DELETE FROM bookmarks WHERE path = ?`

	ctx, cancel := d.queryContext(ctx)
	defer cancel()

	if _, err := d.db.ExecContext(ctx, q, path); err != nil {
		return mapError(err, "failed to remove bookmark")
	}
	return nil
}

func (d *Driver) List(ctx context.Context) ([]bookmarks.Record, error) {
	const q = `
		SELECT path, note, created_at
		FROM bookmarks
		ORDER BY path`

	ctx, cancel := d.queryContext(ctx)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, mapError(err, "failed to list bookmarks")
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (d *Driver) ForPaths(ctx context.Context, paths []string) (map[string]bookmarks.Record, error) {
	if len(paths) == 0 {
		return map[string]bookmarks.Record{}, nil
	}

	// database/sql has no array binding; expand one placeholder per path.
	placeholders := strings.Repeat("?,", len(paths))
	q := fmt.Sprintf(`
		SELECT path, note, created_at
		FROM bookmarks
		WHERE path IN (%s)`, placeholders[:len(placeholders)-1])

	args := make([]any, len(paths))
	for i, p := range paths {
		args[i] = p
	}

	ctx, cancel := d.queryContext(ctx)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, q, args...)
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
			path       VARCHAR(1024) PRIMARY KEY,
			note       TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`

	if _, err := d.db.ExecContext(ctx, q); err != nil {
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

func scanRecords(rows *sql.Rows) ([]bookmarks.Record, error) {
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

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errBadFieldError   = 1054
	errAccessDenied    = 1045
	errConnRefused     = 2003
	errUnknownDatabase = 1049
)

// mapError converts a MySQL driver error into an *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case errAccessDenied:
			return errs.Wrap(errs.ErrKindPermissionDenied, fmt.Sprintf("%s: %s", msg, mysqlErr.Message), err)
		case errConnRefused, errUnknownDatabase:
			return errs.Wrap(errs.ErrKindConnectionFailed, fmt.Sprintf("%s: %s", msg, mysqlErr.Message), err)
		case errBadFieldError:
			return errs.Wrap(errs.ErrKindStoreFailed, fmt.Sprintf("%s: %s", msg, mysqlErr.Message), err)
		}
		return errs.Wrap(errs.ErrKindStoreFailed, fmt.Sprintf("%s: %s", msg, mysqlErr.Message), err)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
