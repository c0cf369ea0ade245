package migrate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"graph2sql/internal/datasource/file"
	"graph2sql/internal/ddl"
	"graph2sql/internal/document"
	"graph2sql/internal/index"
	"graph2sql/internal/logging"
	"graph2sql/internal/provision"
	"graph2sql/internal/schema"
	"graph2sql/internal/storage"
)

type fakeRepo struct {
	mu        sync.Mutex
	execErr   error
	insertErr error
	inserts   map[string]int
}

func (r *fakeRepo) Acquire(context.Context) (storage.Session, error) { return &fakeSession{repo: r}, nil }
func (r *fakeRepo) Dialect() ddl.Dialect                            { return ddl.Postgres }
func (r *fakeRepo) Schema() string                                  { return "VERTICES" }
func (r *fakeRepo) Close()                                          {}

type fakeSession struct{ repo *fakeRepo }

func (s *fakeSession) TableExists(context.Context, string, string) (bool, error) { return false, nil }
func (s *fakeSession) Exec(context.Context, string) error                        { return s.repo.execErr }
func (s *fakeSession) Insert(_ context.Context, _, table string, _, _ []string) error {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	if s.repo.insertErr != nil {
		return s.repo.insertErr
	}
	if s.repo.inserts == nil {
		s.repo.inserts = map[string]int{}
	}
	s.repo.inserts[table]++
	return nil
}
func (s *fakeSession) Release() {}

func TestRun_ProvisionPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		policy       provision.Policy
		wantInserted int
		wantSkipped  int
	}{
		{name: "fail-fast skips inserts", policy: provision.PolicyFailFast, wantInserted: 0, wantSkipped: 151},
		{name: "best-effort inserts anyway", policy: provision.PolicyBestEffort, wantInserted: 101, wantSkipped: 50},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			writeExport(t, root, nil)
			repo := &fakeRepo{execErr: errors.New("permission denied")}
			o := New(file.NewLocal(root), Options{
				Prefix: "export",
				Policy: tt.policy,
				Open:   func(context.Context, storage.Config) (storage.Repository, error) { return repo, nil },
				Logger: logging.Discard(),
			})

			res, err := o.Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Vertex.TablesFailed != 2 {
				t.Fatalf("TablesFailed = %d, want 2", res.Vertex.TablesFailed)
			}
			if res.Vertex.RowsInserted != tt.wantInserted || res.Vertex.RowsSkipped != tt.wantSkipped {
				t.Fatalf("rows inserted/skipped = %d/%d, want %d/%d",
					res.Vertex.RowsInserted, res.Vertex.RowsSkipped, tt.wantInserted, tt.wantSkipped)
			}
			g := groupByName(t, res.Vertex, "person")
			if !errors.Is(g.Err, ErrProvision) {
				t.Fatalf("person Err = %v, want ErrProvision", g.Err)
			}
			var ge *GroupError
			if !errors.As(g.Err, &ge) || ge.Phase != PhaseVertex || ge.Group != "person" {
				t.Fatalf("person Err = %#v, want *GroupError for vertex/person", g.Err)
			}
		})
	}
}

func TestRun_RowFailuresIsolated(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeExport(t, root, nil)
	repo := &fakeRepo{insertErr: errors.New("value too long")}
	o := New(file.NewLocal(root), Options{
		Prefix: "export",
		Open:   func(context.Context, storage.Config) (storage.Repository, error) { return repo, nil },
		Logger: logging.Discard(),
	})

	res, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Vertex.RowsFailed != 101 || res.Edge.RowsFailed != 4 {
		t.Fatalf("rows failed vertex/edge = %d/%d, want 101/4", res.Vertex.RowsFailed, res.Edge.RowsFailed)
	}
	if res.Vertex.TablesCreated != 2 || res.Edge.TablesCreated != 3 {
		t.Fatalf("tables created = %d/%d, want 2/3", res.Vertex.TablesCreated, res.Edge.TablesCreated)
	}
	if g := groupByName(t, res.Vertex, "person"); len(g.Errors) == 0 || g.Errors[0] == "" {
		t.Fatalf("person Errors = %v, want retained row errors", g.Errors)
	}
}

func TestResolveRefs(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Record("person", "p1")
	ix.Record("company", "c1")
	cols := schema.Columns{"id", "fromVertex", "toVertex"}

	tests := []struct {
		name string
		cols schema.Columns
		row  []string
		want provision.Refs
	}{
		{name: "both resolved", cols: cols, row: []string{"e", "p1", "c1"}, want: provision.Refs{From: "person", To: "company"}},
		{name: "unknown id", cols: cols, row: []string{"e", "zz", "c1"}, want: provision.Refs{To: "company"}},
		{name: "empty group", cols: cols, row: nil, want: provision.Refs{}},
		{name: "no endpoint columns", cols: schema.Columns{"id"}, row: []string{"e"}, want: provision.Refs{}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ResolveRefs(tt.cols, tt.row, ix); got != tt.want {
				t.Fatalf("ResolveRefs() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestShapeEdgeGroup_UnionAlignsBeforeRename(t *testing.T) {
	t.Parallel()

	ix := index.New()
	ix.Record("person", "p1")
	docs := []document.Document{
		document.New(
			document.Field{Name: "to", Value: document.Scalar("p1")},
			document.Field{Name: "id", Value: document.Scalar("e1")},
		),
		document.New(
			document.Field{Name: "id", Value: document.Scalar("e2")},
			document.Field{Name: "from", Value: document.Scalar("p1")},
		),
	}
	cols, rows, refs := shapeEdgeGroup(schema.StrategyUnion, ix, docs)
	if cols.Index("fromVertex") < 0 || cols.Index("toVertex") < 0 {
		t.Fatalf("columns = %v, want renamed endpoints", cols)
	}
	if got := rows[0][cols.Index("toVertex")]; got != "p1" {
		t.Fatalf("row[0] toVertex = %q, want p1", got)
	}
	if refs != (provision.Refs{To: "person"}) {
		t.Fatalf("refs = %+v, want to=person", refs)
	}
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	o := New(file.NewLocal(t.TempDir()), Options{Logger: logging.Discard()})
	o.running.Store(true)
	if _, err := o.Run(context.Background()); !errors.Is(err, ErrRunning) {
		t.Fatalf("Run() error = %v, want ErrRunning", err)
	}
}
