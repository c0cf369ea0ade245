// Package postgres implements a Postgres warehouse using pgx v5. Each
// Repository is a pgxpool bound to one schema; sessions are pooled
// connections acquired per table task.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"graph2sql/internal/ddl"
	"graph2sql/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN      string // connection string for pgxpool
	Schema   string // schema tables are created in; current_schema() when empty
	MaxConns int32  // pool size; pgxpool default when zero
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository opens and pings a pool and returns a Close function for
// cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: pgxpool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}

	closeFn := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, closeFn, nil
}

// Acquire checks a connection out of the pool.
func (r *Repository) Acquire(ctx context.Context) (storage.Session, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: acquire: %w", err)
	}
	return &session{conn: conn}, nil
}

// Dialect returns the Postgres DDL dialect.
func (r *Repository) Dialect() ddl.Dialect { return ddl.Postgres }

// Schema returns the configured schema.
func (r *Repository) Schema() string { return r.cfg.Schema }

type session struct {
	conn *pgxpool.Conn
}

const tableExistsSQL = `SELECT EXISTS (
  SELECT 1 FROM information_schema.tables
  WHERE table_schema = COALESCE(NULLIF($1::text, ''), current_schema()) AND table_name = $2::text
)`

func (s *session) TableExists(ctx context.Context, schema, table string) (bool, error) {
	var ok bool
	if err := s.conn.QueryRow(ctx, tableExistsSQL, schema, table).Scan(&ok); err != nil {
		return false, fmt.Errorf("postgres: table exists: %w", pgError(err))
	}
	return ok, nil
}

func (s *session) Exec(ctx context.Context, sql string) error {
	if _, err := s.conn.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", pgError(err))
	}
	return nil
}

func (s *session) Insert(ctx context.Context, schema, table string, columns, values []string) error {
	if len(columns) != len(values) {
		return fmt.Errorf("postgres: insert: %d values for %d columns", len(values), len(columns))
	}
	stmt := storage.InsertSQL(ddl.Postgres, schema, table, columns, storage.Dollar)
	if _, err := s.conn.Exec(ctx, stmt, storage.TextArgs(values)...); err != nil {
		return fmt.Errorf("postgres: insert: %w", pgError(err))
	}
	return nil
}

func (s *session) Release() { s.conn.Release() }

// pgError adds the server detail and SQLSTATE to err when available.
func pgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s, %s)", err, pgErr.Detail, pgErr.SQLState())
	}
	return err
}
