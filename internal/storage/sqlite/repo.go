// Package sqlite implements a SQLite warehouse using modernc.org/sqlite over
// database/sql. SQLite has no schemas, so vertex and edge tables share one
// namespace, and a single connection is used to avoid SQLITE_BUSY under
// concurrent group workers.
package sqlite

import (
	"context"

	_ "modernc.org/sqlite"

	"graph2sql/internal/ddl"
	"graph2sql/internal/storage"
	"graph2sql/internal/storage/sqldb"
)

// Repository is a SQLite-backed storage.Repository.
type Repository struct {
	*sqldb.Repository
}

// Options returns the sqldb options for cfg.
func Options(cfg Config) sqldb.Options {
	init := []string{"PRAGMA busy_timeout = 5000;"}
	if cfg.ForeignKeys {
		init = append(init, "PRAGMA foreign_keys = ON;")
	}
	return sqldb.Options{
		Driver:       "sqlite",
		DSN:          cfg.DSN,
		Dialect:      ddl.SQLite,
		Placeholder:  storage.QuestionMark,
		Exists:       tableExists,
		MaxOpenConns: 1,
		Init:         init,
	}
}

func tableExists(_, table string) (string, []any) {
	return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", []any{table}
}

// NewRepository opens a SQLite database and returns a Repository plus a Close
// function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	r, err := sqldb.Open(ctx, Options(cfg))
	if err != nil {
		return nil, nil, err
	}
	return &Repository{Repository: r}, r.Close, nil
}
