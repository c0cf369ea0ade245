// Package mssql implements a Microsoft SQL Server warehouse using go-mssqldb
// over database/sql. Rows are written with @pN parameters and DDL is guarded
// with OBJECT_ID since SQL Server has no CREATE TABLE IF NOT EXISTS.
package mssql

import (
	"context"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"graph2sql/internal/ddl"
	"graph2sql/internal/storage"
	"graph2sql/internal/storage/sqldb"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN      string
	Schema   string // empty means the login's default schema
	MaxConns int
}

// Repository is an MSSQL-backed storage.Repository.
type Repository struct {
	*sqldb.Repository
}

// Options returns the sqldb options for cfg.
func Options(cfg Config) sqldb.Options {
	return sqldb.Options{
		Driver:       "sqlserver",
		DSN:          cfg.DSN,
		Schema:       cfg.Schema,
		Dialect:      ddl.MSSQL,
		Placeholder:  storage.AtP,
		Exists:       tableExists,
		MaxOpenConns: cfg.MaxConns,
	}
}

func tableExists(schema, table string) (string, []any) {
	return `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_SCHEMA = COALESCE(NULLIF(@p1, ''), SCHEMA_NAME()) AND TABLE_NAME = @p2`, []any{schema, table}
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	r, err := sqldb.Open(ctx, Options(cfg))
	if err != nil {
		return nil, nil, err
	}
	return &Repository{Repository: r}, r.Close, nil
}
