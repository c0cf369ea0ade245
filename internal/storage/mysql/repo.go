// Package mysql implements a MySQL warehouse using go-sql-driver/mysql over
// database/sql. MySQL schemas are databases, so vertex and edge tables are
// qualified with the configured database names.
package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"graph2sql/internal/ddl"
	"graph2sql/internal/storage"
	"graph2sql/internal/storage/sqldb"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN      string // go-sql-driver DSN, e.g. user:pw@tcp(host:3306)/graph
	Schema   string // database tables are created in; empty means DATABASE()
	MaxConns int
}

// Repository is a MySQL-backed storage.Repository.
type Repository struct {
	*sqldb.Repository
}

// normalizeDSN parses dsn and applies connection defaults.
func normalizeDSN(dsn string) (string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	if mc.Timeout == 0 {
		mc.Timeout = 10 * time.Second
	}
	mc.MultiStatements = false
	return mc.FormatDSN(), nil
}

// Options returns the sqldb options for cfg with an already normalized DSN.
func Options(cfg Config) sqldb.Options {
	return sqldb.Options{
		Driver:       "mysql",
		DSN:          cfg.DSN,
		Schema:       cfg.Schema,
		Dialect:      ddl.MySQL,
		Placeholder:  storage.QuestionMark,
		Exists:       tableExists,
		MaxOpenConns: cfg.MaxConns,
	}
}

func tableExists(schema, table string) (string, []any) {
	return `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE()) AND TABLE_NAME = ?`, []any{schema, table}
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dsn, err := normalizeDSN(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	cfg.DSN = dsn
	r, err := sqldb.Open(ctx, Options(cfg))
	if err != nil {
		return nil, nil, err
	}
	return &Repository{Repository: r}, r.Close, nil
}
