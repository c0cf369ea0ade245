// Package config defines the JSON-serializable configuration model for a
// migration and the layering that produces the effective configuration:
//
//  1. defaults,
//  2. a JSON config file,
//  3. variables from a .env file and the process environment,
//  4. command-line flags (applied by the caller).
//
// Example (trimmed):
//
//	{
//	  "job":       "graph-export",
//	  "source":    { "kind": "s3", "bucket": "exports", "prefix": "2024-06-01" },
//	  "warehouse": { "kind": "postgres", "dsn": "postgresql://...", "vertex_schema": "VERTICES" },
//	  "runtime":   { "vertex_workers": 50, "task_timeout": "10m" }
//	}
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Migration is the top-level object decoded from a config file.
type Migration struct {
	// Job names the migration in logs and metrics.
	Job string `json:"job"`

	Source    Source    `json:"source"`
	Warehouse Warehouse `json:"warehouse"`
	Runtime   Runtime   `json:"runtime"`
	Metrics   Metrics   `json:"metrics"`
	Server    Server    `json:"server"`
	Log       Log       `json:"log"`
}

// Source locates the graph export.
type Source struct {
	// Kind selects the object store: "s3" or "file".
	Kind string `json:"kind"`

	// Dir is the local root directory for the "file" kind.
	Dir string `json:"dir,omitempty"`

	Bucket       string `json:"bucket,omitempty"`
	Region       string `json:"region,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"` // S3-compatible endpoint (MinIO, localstack)
	AccessKey    string `json:"access_key,omitempty"`
	SecretKey    string `json:"secret_key,omitempty"`
	SessionToken string `json:"session_token,omitempty"`
	PathStyle    bool   `json:"path_style,omitempty"`

	// Prefix is the export folder inside the bucket or directory.
	Prefix       string `json:"prefix"`
	VertexFolder string `json:"vertex_folder"`
	EdgeFolder   string `json:"edge_folder"`
}

// Warehouse describes the relational target.
type Warehouse struct {
	// Kind selects the backend: postgres, sqlite, mssql, mysql or snowflake.
	Kind string `json:"kind"`
	DSN  string `json:"dsn,omitempty"`

	VertexSchema string `json:"vertex_schema"`
	EdgeSchema   string `json:"edge_schema"`

	// Snowflake account parameters, used when DSN is empty.
	Account   string `json:"account,omitempty"`
	User      string `json:"user,omitempty"`
	Password  string `json:"password,omitempty"`
	Database  string `json:"database,omitempty"`
	Warehouse string `json:"warehouse,omitempty"`
	Role      string `json:"role,omitempty"`

	MaxConns    int  `json:"max_conns,omitempty"`
	ForeignKeys bool `json:"foreign_keys,omitempty"` // sqlite only
}

// Runtime controls concurrency, row caps and the migration policies.
type Runtime struct {
	FetchWorkers    int      `json:"fetch_workers"`
	VertexWorkers   int      `json:"vertex_workers"`
	EdgeWorkers     int      `json:"edge_workers"`
	MaxRowsPerTable int      `json:"max_rows_per_table"`
	TaskTimeout     Duration `json:"task_timeout"`
	SchemaStrategy  string   `json:"schema_strategy"`
	ProvisionPolicy string   `json:"provision_policy"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "none", "prometheus" (Pushgateway) or "datadog".
	Backend        string `json:"backend"`
	PushgatewayURL string `json:"pushgateway_url,omitempty"`
	StatsdAddr     string `json:"statsd_addr,omitempty"`
	Namespace      string `json:"namespace,omitempty"`
}

// Server configures the HTTP surface.
type Server struct {
	Addr string `json:"addr"`
}

// Log configures the process logger.
type Log struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Duration is a time.Duration that decodes from a Go duration string ("10m")
// or from a number of seconds.
type Duration time.Duration

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// MarshalJSON encodes d as a duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler. null and "" leave d at zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*d = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var secs float64
		if err := json.Unmarshal(b, &secs); err != nil {
			return fmt.Errorf("duration: %s is neither a string nor a number", b)
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	*d = Duration(v)
	return nil
}

// Default values.
const (
	DefaultJob             = "graph2sql"
	DefaultSourceKind      = "s3"
	DefaultVertexFolder    = "nodes"
	DefaultEdgeFolder      = "edges"
	DefaultVertexSchema    = "VERTICES"
	DefaultEdgeSchema      = "EDGES"
	DefaultFetchWorkers    = 100
	DefaultVertexWorkers   = 50
	DefaultEdgeWorkers     = 50
	DefaultMaxRowsPerTable = 100
	DefaultTaskTimeout     = 10 * time.Minute
	DefaultSchemaStrategy  = "widest-sample"
	DefaultProvisionPolicy = "fail-fast"
	DefaultMetricsBackend  = "none"
	DefaultServerAddr      = ":8080"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Load decodes the JSON config file at path. An empty path yields a zero
// Migration.
func Load(path string) (Migration, error) {
	var m Migration
	if strings.TrimSpace(path) == "" {
		return m, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return m, nil
}

// LoadEnvFile loads variables from a .env file into the process environment
// without overriding variables that are already set. An empty path loads
// ./.env when present.
func LoadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto m. getenv is usually
// os.Getenv; unset or empty variables leave the current value.
func ApplyEnv(m *Migration, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	str := func(key string, cur *string) { *cur = pickString(getenv(key), *cur) }

	str("GRAPH2SQL_JOB", &m.Job)

	s := &m.Source
	str("GRAPH2SQL_SOURCE_KIND", &s.Kind)
	str("GRAPH2SQL_SOURCE_DIR", &s.Dir)
	str("GRAPH2SQL_S3_BUCKET", &s.Bucket)
	str("GRAPH2SQL_S3_PREFIX", &s.Prefix)
	str("AWS_REGION", &s.Region)
	str("AWS_ENDPOINT_URL", &s.Endpoint)
	str("AWS_ACCESS_KEY_ID", &s.AccessKey)
	str("AWS_SECRET_ACCESS_KEY", &s.SecretKey)
	str("AWS_SESSION_TOKEN", &s.SessionToken)
	s.PathStyle = getenvBool(getenv, "GRAPH2SQL_S3_PATH_STYLE", s.PathStyle)
	str("GRAPH2SQL_VERTEX_FOLDER", &s.VertexFolder)
	str("GRAPH2SQL_EDGE_FOLDER", &s.EdgeFolder)

	w := &m.Warehouse
	str("GRAPH2SQL_WAREHOUSE_KIND", &w.Kind)
	str("GRAPH2SQL_WAREHOUSE_DSN", &w.DSN)
	str("GRAPH2SQL_VERTEX_SCHEMA", &w.VertexSchema)
	str("GRAPH2SQL_EDGE_SCHEMA", &w.EdgeSchema)
	str("SNOWFLAKE_ACCOUNT", &w.Account)
	str("SNOWFLAKE_USER", &w.User)
	str("SNOWFLAKE_PASSWORD", &w.Password)
	str("SNOWFLAKE_DATABASE", &w.Database)
	str("SNOWFLAKE_WAREHOUSE", &w.Warehouse)
	str("SNOWFLAKE_ROLE", &w.Role)
	w.MaxConns = getenvInt(getenv, "GRAPH2SQL_MAX_CONNS", w.MaxConns)
	w.ForeignKeys = getenvBool(getenv, "GRAPH2SQL_FOREIGN_KEYS", w.ForeignKeys)

	r := &m.Runtime
	r.FetchWorkers = getenvInt(getenv, "GRAPH2SQL_FETCH_WORKERS", r.FetchWorkers)
	r.VertexWorkers = getenvInt(getenv, "GRAPH2SQL_VERTEX_WORKERS", r.VertexWorkers)
	r.EdgeWorkers = getenvInt(getenv, "GRAPH2SQL_EDGE_WORKERS", r.EdgeWorkers)
	r.MaxRowsPerTable = getenvInt(getenv, "GRAPH2SQL_MAX_ROWS_PER_TABLE", r.MaxRowsPerTable)
	if v := getenv("GRAPH2SQL_TASK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			r.TaskTimeout = Duration(d)
		}
	}
	str("GRAPH2SQL_SCHEMA_STRATEGY", &r.SchemaStrategy)
	str("GRAPH2SQL_PROVISION_POLICY", &r.ProvisionPolicy)

	str("GRAPH2SQL_METRICS_BACKEND", &m.Metrics.Backend)
	str("GRAPH2SQL_PUSHGATEWAY_URL", &m.Metrics.PushgatewayURL)
	str("GRAPH2SQL_STATSD_ADDR", &m.Metrics.StatsdAddr)

	str("GRAPH2SQL_SERVER_ADDR", &m.Server.Addr)
	str("GRAPH2SQL_LOG_LEVEL", &m.Log.Level)
	str("GRAPH2SQL_LOG_FORMAT", &m.Log.Format)
}

// ApplyDefaults fills zero-valued fields of m with the defaults.
func ApplyDefaults(m *Migration) {
	m.Job = pickString(m.Job, DefaultJob)

	m.Source.Kind = pickString(m.Source.Kind, DefaultSourceKind)
	m.Source.VertexFolder = pickString(m.Source.VertexFolder, DefaultVertexFolder)
	m.Source.EdgeFolder = pickString(m.Source.EdgeFolder, DefaultEdgeFolder)

	m.Warehouse.VertexSchema = pickString(m.Warehouse.VertexSchema, DefaultVertexSchema)
	m.Warehouse.EdgeSchema = pickString(m.Warehouse.EdgeSchema, DefaultEdgeSchema)

	r := &m.Runtime
	r.FetchWorkers = pickInt(r.FetchWorkers, DefaultFetchWorkers)
	r.VertexWorkers = pickInt(r.VertexWorkers, DefaultVertexWorkers)
	r.EdgeWorkers = pickInt(r.EdgeWorkers, DefaultEdgeWorkers)
	r.MaxRowsPerTable = pickInt(r.MaxRowsPerTable, DefaultMaxRowsPerTable)
	if r.TaskTimeout <= 0 {
		r.TaskTimeout = Duration(DefaultTaskTimeout)
	}
	r.SchemaStrategy = pickString(r.SchemaStrategy, DefaultSchemaStrategy)
	r.ProvisionPolicy = pickString(r.ProvisionPolicy, DefaultProvisionPolicy)

	m.Metrics.Backend = pickString(m.Metrics.Backend, DefaultMetricsBackend)
	m.Server.Addr = pickString(m.Server.Addr, DefaultServerAddr)
	m.Log.Level = pickString(m.Log.Level, DefaultLogLevel)
	m.Log.Format = pickString(m.Log.Format, DefaultLogFormat)
}

// Resolve loads path, overlays the environment and applies defaults.
func Resolve(path string, getenv func(string) string) (Migration, error) {
	m, err := Load(path)
	if err != nil {
		return m, err
	}
	ApplyEnv(&m, getenv)
	ApplyDefaults(&m)
	return m, nil
}

// ----------------------------------------------------------------------------
// Small helpers
// ----------------------------------------------------------------------------

// getenvInt reads an int from getenv, returning def when unset/invalid.
func getenvInt(getenv func(string) string, k string, def int) int {
	if s := getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// getenvBool reads a bool from getenv, returning def when unset/invalid.
func getenvBool(getenv func(string) string, k string, def bool) bool {
	if s := getenv(k); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

// pickString chooses 'a' unless it is blank, otherwise returns 'b'.
func pickString(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
