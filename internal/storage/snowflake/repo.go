// Package snowflake implements a Snowflake warehouse using gosnowflake over
// database/sql. A DSN may be given directly or assembled from discrete
// account parameters.
package snowflake

import (
	"context"
	"fmt"
	"strings"

	sf "github.com/snowflakedb/gosnowflake"

	"graph2sql/internal/ddl"
	"graph2sql/internal/storage"
	"graph2sql/internal/storage/sqldb"
)

// Config holds Snowflake repository configuration.
type Config struct {
	DSN string

	Account   string
	User      string
	Password  string
	Database  string
	Warehouse string
	Role      string

	Schema   string
	MaxConns int
}

// Repository is a Snowflake-backed storage.Repository.
type Repository struct {
	*sqldb.Repository
}

// BuildDSN returns cfg.DSN when set, else a DSN assembled from the discrete
// parameters.
func BuildDSN(cfg Config) (string, error) {
	if strings.TrimSpace(cfg.DSN) != "" {
		return cfg.DSN, nil
	}
	if cfg.Account == "" || cfg.User == "" {
		return "", fmt.Errorf("snowflake: account and user are required when dsn is empty")
	}
	dsn, err := sf.DSN(&sf.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
		Role:      cfg.Role,
	})
	if err != nil {
		return "", fmt.Errorf("snowflake dsn: %w", err)
	}
	return dsn, nil
}

// Options returns the sqldb options for cfg with dsn already resolved.
func Options(cfg Config, dsn string) sqldb.Options {
	return sqldb.Options{
		Driver:       "snowflake",
		DSN:          dsn,
		Schema:       cfg.Schema,
		Dialect:      ddl.Snowflake,
		Placeholder:  storage.QuestionMark,
		Exists:       tableExists,
		MaxOpenConns: cfg.MaxConns,
	}
}

func tableExists(schema, table string) (string, []any) {
	return `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), CURRENT_SCHEMA()) AND TABLE_NAME = ?`, []any{schema, table}
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, nil, err
	}
	r, err := sqldb.Open(ctx, Options(cfg, dsn))
	if err != nil {
		return nil, nil, err
	}
	return &Repository{Repository: r}, r.Close, nil
}
