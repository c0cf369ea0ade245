// Package sqldb implements storage.Repository over database/sql. Backends
// whose drivers speak database/sql (sqlite, mssql, mysql, snowflake) describe
// their differences in Options and share this implementation.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"graph2sql/internal/ddl"
	"graph2sql/internal/storage"
)

// ExistsQuery returns the query and arguments that count tables named table
// in schema. The query must return a single integer.
type ExistsQuery func(schema, table string) (string, []any)

// Options describes one backend.
type Options struct {
	Driver      string // database/sql driver name
	DSN         string
	Schema      string
	Dialect     ddl.Dialect
	Placeholder storage.Placeholder
	Exists      ExistsQuery

	MaxOpenConns int
	PingTimeout  time.Duration // default 5s

	// Init runs once after the pool is opened (e.g. PRAGMA statements).
	Init []string
}

// Repository is a database/sql pool bound to one schema.
type Repository struct {
	db   *sql.DB
	opts Options
}

var _ storage.Repository = (*Repository)(nil)

// Open opens the pool, pings it, and runs opts.Init.
func Open(ctx context.Context, opts Options) (*Repository, error) {
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", opts.Driver)
	}
	if opts.Exists == nil || opts.Placeholder == nil {
		return nil, fmt.Errorf("%s: Exists and Placeholder are required", opts.Driver)
	}

	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", opts.Driver, err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	return open(ctx, db, opts)
}

// OpenDB wraps an already configured *sql.DB (e.g. one built from a
// driver.Connector).
func OpenDB(ctx context.Context, db *sql.DB, opts Options) (*Repository, error) {
	if opts.Exists == nil || opts.Placeholder == nil {
		return nil, fmt.Errorf("%s: Exists and Placeholder are required", opts.Driver)
	}
	return open(ctx, db, opts)
}

func open(ctx context.Context, db *sql.DB, opts Options) (*Repository, error) {
	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", opts.Driver, err)
	}

	for _, stmt := range opts.Init {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: init %q: %w", opts.Driver, stmt, err)
		}
	}
	return &Repository{db: db, opts: opts}, nil
}

// DB exposes the pool for tests and maintenance statements.
func (r *Repository) DB() *sql.DB { return r.db }

// Acquire reserves a dedicated connection.
func (r *Repository) Acquire(ctx context.Context) (storage.Session, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: acquire: %w", r.opts.Driver, err)
	}
	return &session{conn: conn, opts: &r.opts}, nil
}

// Dialect returns the backend's DDL dialect.
func (r *Repository) Dialect() ddl.Dialect { return r.opts.Dialect }

// Schema returns the configured schema.
func (r *Repository) Schema() string { return r.opts.Schema }

// Close closes the pool.
func (r *Repository) Close() { _ = r.db.Close() }

type session struct {
	conn *sql.Conn
	opts *Options
}

func (s *session) TableExists(ctx context.Context, schema, table string) (bool, error) {
	q, args := s.opts.Exists(schema, table)
	var n int64
	if err := s.conn.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("%s: table exists: %w", s.opts.Driver, err)
	}
	return n > 0, nil
}

func (s *session) Exec(ctx context.Context, stmt string) error {
	if strings.TrimSpace(stmt) == "" {
		return nil
	}
	if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s: exec: %w", s.opts.Driver, err)
	}
	return nil
}

func (s *session) Insert(ctx context.Context, schema, table string, columns, values []string) error {
	if len(columns) != len(values) {
		return fmt.Errorf("%s: insert: %d values for %d columns", s.opts.Driver, len(values), len(columns))
	}
	stmt := storage.InsertSQL(s.opts.Dialect, schema, table, columns, s.opts.Placeholder)
	if _, err := s.conn.ExecContext(ctx, stmt, storage.TextArgs(values)...); err != nil {
		return fmt.Errorf("%s: insert: %w", s.opts.Driver, err)
	}
	return nil
}

func (s *session) Release() { _ = s.conn.Close() }
