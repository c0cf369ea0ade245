package mssql

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"graph2sql/internal/storage"
)

func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var gotCfg Config
	closed := false
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{}, func() { closed = true }, nil
	}

	cfg := storage.Config{Kind: "mssql", DSN: "sqlserver://sa:pw@localhost:1433?database=graph", Schema: "EDGES", MaxConns: 4}
	repo, err := storage.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	want := Config{DSN: cfg.DSN, Schema: "EDGES", MaxConns: 4}
	if gotCfg != want {
		t.Fatalf("hook cfg = %+v, want %+v", gotCfg, want)
	}
	repo.Close()
	if !closed {
		t.Fatal("Close() did not invoke closeFn")
	}
}

func TestRegistrationPropagatesError(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	boom := errors.New("boom")
	newRepository = func(context.Context, Config) (*Repository, func(), error) { return nil, nil, boom }

	if _, err := storage.New(context.Background(), storage.Config{Kind: "mssql"}); !errors.Is(err, boom) {
		t.Fatalf("storage.New() error = %v, want %v", err, boom)
	}
}

func TestTableExistsQuery(t *testing.T) {
	q, args := tableExists("", "person")
	if !strings.Contains(q, "SCHEMA_NAME()") || !strings.Contains(q, "@p2") {
		t.Fatalf("query = %q", q)
	}
	if len(args) != 2 || args[0] != "" || args[1] != "person" {
		t.Fatalf("args = %v", args)
	}
}

func TestNewRepository_InvalidDSN(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://%zz"}); err == nil {
		t.Fatal("NewRepository() error = nil, want DSN error")
	}
}

// TestNewRepository_Live runs only when TEST_MSSQL_DSN points at a server.
func TestNewRepository_Live(t *testing.T) {
	dsn := os.Getenv("TEST_MSSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MSSQL_DSN not set")
	}
	ctx := context.Background()
	r, closeFn, err := NewRepository(ctx, Config{DSN: dsn})
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	defer closeFn()

	s, err := r.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer s.Release()
	if ok, err := s.TableExists(ctx, "", "graph2sql_missing_table"); err != nil || ok {
		t.Fatalf("TableExists() = (%v, %v), want (false, nil)", ok, err)
	}
}
