package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"graph2sql/internal/config"
	"graph2sql/internal/datasource/file"
	"graph2sql/internal/logging"
	"graph2sql/internal/migrate"
	"graph2sql/internal/provision"
	"graph2sql/internal/storage"
	_ "graph2sql/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	root := t.TempDir()
	files := map[string]string{
		"export/nodes/person-0001.json": `{"~id":"p1","~label":"person","name":"Ann"}` + "\n" +
			`{"~id":"p2","~label":"person","name":"Bob"}` + "\n",
		"export/edges/knows-0001.json": `{"~id":"e1","~from":"p1","~to":"p2","~label":"knows"}` + "\n",
	}
	for key, body := range files {
		path := filepath.Join(root, filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	m := config.Migration{
		Source:    config.Source{Kind: "file", Dir: root, Prefix: "export"},
		Warehouse: config.Warehouse{Kind: "sqlite", DSN: filepath.Join(t.TempDir(), "w.db")},
	}
	config.ApplyDefaults(&m)
	return New(Options{Migration: m, Logger: logging.Discard()})
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("GET /health = %d %q, want 200 OK", rec.Code, rec.Body.String())
	}
}

func TestExportThenQuery(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/migration/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /migration/export = %d: %s", rec.Code, rec.Body.String())
	}
	var res migrate.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.State != migrate.StateDone || res.Vertex.RowsInserted != 2 || res.Edge.RowsInserted != 1 {
		t.Fatalf("result = %+v", res)
	}

	rec = do(t, s, http.MethodGet, "/migration/tables/person/exists", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET exists = %d: %s", rec.Code, rec.Body.String())
	}
	var exists struct {
		Table  string `json:"table"`
		Exists bool   `json:"exists"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &exists); err != nil || exists.Table != "person" || !exists.Exists {
		t.Fatalf("exists body = %s (%v)", rec.Body.String(), err)
	}

	rec = do(t, s, http.MethodGet, "/migration/tables/ghost/exists", "")
	if !strings.Contains(rec.Body.String(), `"exists":false`) {
		t.Fatalf("GET ghost exists = %s, want exists false", rec.Body.String())
	}
}

func TestRefs(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t), http.MethodGet, "/migration/refs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /migration/refs = %d: %s", rec.Code, rec.Body.String())
	}
	var refs map[string]provision.Refs
	if err := json.Unmarshal(rec.Body.Bytes(), &refs); err != nil {
		t.Fatalf("decode refs: %v", err)
	}
	if got, want := refs["knows"], (provision.Refs{From: "person", To: "person"}); got != want {
		t.Fatalf("refs[knows] = %+v, want %+v", got, want)
	}
}

func TestPlan(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t), http.MethodGet, "/migration/plan", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /migration/plan = %d: %s", rec.Code, rec.Body.String())
	}
	var plan []migrate.PlannedTable
	if err := json.Unmarshal(rec.Body.Bytes(), &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if len(plan) != 2 || plan[0].Table != "person" || !strings.Contains(plan[0].SQL, "CREATE TABLE") {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestExport_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "malformed json", body: `{"kind":`, want: "Invalid request body"},
		{name: "unknown kind", body: `{"kind":"oracle"}`, want: "oneof"},
		{name: "config invalid", body: `{"vertex_schema":"X","edge_schema":"X","kind":"mysql","dsn":" "}`, want: "invalid migration configuration"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(t, newTestServer(t), http.MethodPost, "/migration/export", tt.body)
			if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), tt.want) {
				t.Fatalf("POST = %d %s, want 400 containing %q", rec.Code, rec.Body.String(), tt.want)
			}
		})
	}
}

func TestExport_Conflict(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.running.Store(true)
	rec := do(t, s, http.MethodPost, "/migration/export", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("POST while running = %d, want 409", rec.Code)
	}
}

func TestExport_ConnectionFailure(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.newOrc = func(_ context.Context, m config.Migration, logger *log.Logger) (*migrate.Orchestrator, error) {
		return migrate.New(file.NewLocal(m.Source.Dir), migrate.Options{
			Prefix: m.Source.Prefix,
			Open: func(context.Context, storage.Config) (storage.Repository, error) {
				return nil, errors.New("refused")
			},
			Logger: logger,
		}), nil
	}

	rec := do(t, s, http.MethodPost, "/migration/export", `{"kind":"postgres","dsn":"postgresql://nowhere/db"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("POST = %d, want 500: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Error  string          `json:"error"`
		Result *migrate.Result `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(body.Error, "refused") || body.Result == nil || body.Result.State != migrate.StateFailed {
		t.Fatalf("body = %+v", body)
	}
}
