package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"graph2sql/internal/config"
	"graph2sql/internal/datasource"
	"graph2sql/internal/datasource/file"
	"graph2sql/internal/datasource/s3ds"
	"graph2sql/internal/logging"
	"graph2sql/internal/metrics"
	"graph2sql/internal/metrics/datadog"
	"graph2sql/internal/metrics/prompush"
	"graph2sql/internal/provision"
	"graph2sql/internal/schema"
)

func resolved(t *testing.T, mutate func(m *config.Migration)) config.Migration {
	t.Helper()
	m := config.Migration{
		Job:       "job1",
		Source:    config.Source{Kind: "file", Dir: t.TempDir(), Prefix: "export"},
		Warehouse: config.Warehouse{Kind: "sqlite", DSN: "file:x.db", MaxConns: 3, ForeignKeys: true},
	}
	if mutate != nil {
		mutate(&m)
	}
	config.ApplyDefaults(&m)
	return m
}

func TestOpenStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st, err := OpenStore(context.Background(), config.Source{Kind: "file", Dir: dir})
	if err != nil {
		t.Fatalf("OpenStore(file) error = %v", err)
	}
	if _, ok := st.(*file.Local); !ok {
		t.Fatalf("OpenStore(file) = %T, want *file.Local", st)
	}

	for _, src := range []config.Source{
		{Kind: "file"},
		{Kind: "ftp"},
	} {
		if _, err := OpenStore(context.Background(), src); err == nil {
			t.Fatalf("OpenStore(%+v) error = nil, want error", src)
		}
	}
}

func TestOpenStore_S3(t *testing.T) {
	var got s3ds.Config
	orig := newS3Store
	newS3Store = func(_ context.Context, cfg s3ds.Config) (datasource.ObjectStore, error) {
		got = cfg
		return nil, errors.New("stub")
	}
	t.Cleanup(func() { newS3Store = orig })

	_, err := OpenStore(context.Background(), config.Source{
		Kind: "s3", Bucket: "b", Region: "eu-west-1", Endpoint: "http://minio:9000",
		AccessKey: "ak", SecretKey: "sk", PathStyle: true,
	})
	if err == nil || err.Error() != "stub" {
		t.Fatalf("OpenStore(s3) error = %v, want stub", err)
	}
	want := s3ds.Config{Bucket: "b", Region: "eu-west-1", Endpoint: "http://minio:9000", AccessKey: "ak", SecretKey: "sk", PathStyle: true}
	if got != want {
		t.Fatalf("s3ds config = %+v, want %+v", got, want)
	}
}

func TestMigrateOptions(t *testing.T) {
	t.Parallel()

	m := resolved(t, func(m *config.Migration) {
		m.Runtime.SchemaStrategy = "union-of-fields"
		m.Runtime.ProvisionPolicy = "best-effort"
		m.Runtime.TaskTimeout = config.Duration(time.Minute)
		m.Warehouse.VertexSchema = "V"
	})
	opts, err := MigrateOptions(m, logging.Discard())
	if err != nil {
		t.Fatalf("MigrateOptions() error = %v", err)
	}
	if opts.Strategy != schema.StrategyUnion || opts.Policy != provision.PolicyBestEffort {
		t.Fatalf("strategy/policy = %q/%q", opts.Strategy, opts.Policy)
	}
	if opts.Job != "job1" || opts.Prefix != "export" || opts.TaskTimeout != time.Minute {
		t.Fatalf("options = %+v", opts)
	}
	if opts.VertexSchema != "V" || opts.EdgeSchema != "EDGES" || opts.FetchWorkers != 100 {
		t.Fatalf("options schemas/workers = %+v", opts)
	}
	w := opts.Warehouse
	if w.Kind != "sqlite" || w.DSN != "file:x.db" || w.MaxConns != 3 || !w.ForeignKeys || w.Schema != "" {
		t.Fatalf("warehouse = %+v", w)
	}
}

func TestMigrateOptions_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(m *config.Migration)
	}{
		{name: "strategy", mutate: func(m *config.Migration) { m.Runtime.SchemaStrategy = "magic" }},
		{name: "policy", mutate: func(m *config.Migration) { m.Runtime.ProvisionPolicy = "retry" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := MigrateOptions(resolved(t, tt.mutate), nil); err == nil {
				t.Fatal("MigrateOptions() error = nil, want error")
			}
		})
	}
}

func TestNewOrchestrator(t *testing.T) {
	t.Parallel()

	o, err := NewOrchestrator(context.Background(), resolved(t, nil), logging.Discard())
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	if got := o.Options().Job; got != "job1" {
		t.Fatalf("Options().Job = %q, want job1", got)
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	if _, err := NewLogger(config.Log{Level: "debug", Format: "json"}); err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if _, err := NewLogger(config.Log{Format: "yaml"}); err == nil {
		t.Fatal("NewLogger(yaml) error = nil, want error")
	}
}

func TestSetupMetrics(t *testing.T) {
	var installed metrics.Backend
	orig := setBackend
	setBackend = func(b metrics.Backend) { installed = b }
	t.Cleanup(func() { setBackend = orig })

	tests := []struct {
		name string
		cfg  config.Metrics
		ok   func(b metrics.Backend) bool
	}{
		{name: "none", cfg: config.Metrics{Backend: "none"}, ok: func(b metrics.Backend) bool { return b == nil }},
		{name: "prometheus", cfg: config.Metrics{Backend: "prometheus", PushgatewayURL: "http://127.0.0.1:1"},
			ok: func(b metrics.Backend) bool { _, ok := b.(*prompush.Backend); return ok }},
		{name: "prometheus without url", cfg: config.Metrics{Backend: "prometheus"}, ok: func(b metrics.Backend) bool { return b == nil }},
		{name: "datadog", cfg: config.Metrics{Backend: "datadog", StatsdAddr: "127.0.0.1:8125"},
			ok: func(b metrics.Backend) bool { _, ok := b.(*datadog.Backend); return ok }},
		{name: "unknown", cfg: config.Metrics{Backend: "graphite"}, ok: func(b metrics.Backend) bool { return b == nil }},
	}
	for _, tt := range tests {
		installed = nil
		done := SetupMetrics("job1", tt.cfg, logging.Discard())
		if !tt.ok(installed) {
			t.Fatalf("%s: installed backend = %T", tt.name, installed)
		}
		done()
	}
}
