// Package storage contains warehouse-agnostic contracts and utilities: the
// Repository/Session interfaces every backend implements, a registry that
// maps a storage kind to its constructor, and the capped row loader.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"graph2sql/internal/ddl"
)

// Config is the backend-agnostic connection description. Backends read the
// fields they understand and ignore the rest.
type Config struct {
	Kind     string // postgres | sqlite | mssql | mysql | snowflake
	DSN      string
	Schema   string // schema (database for mysql) tables of this pool live in
	MaxConns int    // pool size; backend default when zero

	// Snowflake-style discrete parameters, used when DSN is empty.
	Account   string
	User      string
	Password  string
	Database  string
	Warehouse string
	Role      string

	// ForeignKeys enables foreign key enforcement where it is a connection
	// setting (sqlite).
	ForeignKeys bool
}

// Repository is a connection pool bound to one schema.
type Repository interface {
	// Acquire checks a session out of the pool. The caller must Release it.
	Acquire(ctx context.Context) (Session, error)
	// Dialect describes how DDL for this backend is rendered.
	Dialect() ddl.Dialect
	// Schema is the schema tables of this repository are created in.
	Schema() string
	Close()
}

// Session is a single warehouse connection. A Session is not safe for
// concurrent use.
type Session interface {
	// TableExists reports whether table exists in schema.
	TableExists(ctx context.Context, schema, table string) (bool, error)
	// Exec runs a statement that returns no rows (typically DDL).
	Exec(ctx context.Context, sql string) error
	// Insert writes one row. values are bound as text parameters aligned to
	// columns.
	Insert(ctx context.Context, schema, table string, columns, values []string) error
	// Release returns the session to its pool.
	Release()
}

// Factory opens a Repository for a storage kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. Backends call it
// from init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns a sorted snapshot of the registered kinds.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
