package sqldb

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"graph2sql/internal/ddl"
	"graph2sql/internal/storage"
)

func sqliteOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Driver:      "sqlite",
		DSN:         filepath.Join(t.TempDir(), "sqldb.db"),
		Dialect:     ddl.SQLite,
		Placeholder: storage.QuestionMark,
		Exists: func(_, table string) (string, []any) {
			return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", []any{table}
		},
		MaxOpenConns: 1,
	}
}

func TestOpenValidates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Options)
		wantSub string
	}{
		{name: "empty_dsn", mutate: func(o *Options) { o.DSN = " " }, wantSub: "DSN must not be empty"},
		{name: "no_exists", mutate: func(o *Options) { o.Exists = nil }, wantSub: "required"},
		{name: "bad_init", mutate: func(o *Options) { o.Init = []string{"NOT SQL"} }, wantSub: "init"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := sqliteOptions(t)
			tt.mutate(&opts)
			_, err := Open(context.Background(), opts)
			if err == nil || !strings.Contains(err.Error(), tt.wantSub) {
				t.Fatalf("Open() error = %v, want containing %q", err, tt.wantSub)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := Open(ctx, sqliteOptions(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer repo.Close()

	s, err := repo.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	exists, err := s.TableExists(ctx, "", "person")
	if err != nil || exists {
		t.Fatalf("TableExists before create = (%v, %v)", exists, err)
	}

	td := ddl.VertexTable(ddl.SQLite, "", "person", []string{"id", "name"})
	if _, err := storage.CreateTable(ctx, s, repo.Dialect(), td); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	exists, err = s.TableExists(ctx, "", "person")
	if err != nil || !exists {
		t.Fatalf("TableExists after create = (%v, %v)", exists, err)
	}

	if err := s.Insert(ctx, "", "person", []string{"id", "name"}, []string{"v1", "Ann"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := s.Insert(ctx, "", "person", []string{"id", "name"}, []string{"v1", "again"}); err == nil {
		t.Fatal("Insert(duplicate id) error = nil, want constraint error")
	}
	if err := s.Insert(ctx, "", "person", []string{"id"}, []string{"a", "b"}); err == nil {
		t.Fatal("Insert(mismatched) error = nil, want error")
	}

	// The pool holds one connection; it must be back in the pool after Release.
	s.Release()
	var n int
	if err := repo.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM "person"`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}

	s2, err := repo.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() after Release error = %v", err)
	}
	defer s2.Release()
	if exists, err := s2.TableExists(ctx, "", "person"); err != nil || !exists {
		t.Fatalf("TableExists on second session = (%v, %v)", exists, err)
	}
}
