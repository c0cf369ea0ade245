// Package provision creates vertex and edge tables in a warehouse schema when
// they are missing.
package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"graph2sql/internal/ddl"
	"graph2sql/internal/logging"
	"graph2sql/internal/storage"
)

var (
	// ErrSchemaEmpty is reported when a group yields no columns.
	ErrSchemaEmpty = errors.New("schema inference yielded no columns")
	// ErrDDL wraps a CREATE TABLE that the warehouse rejected.
	ErrDDL = errors.New("table provisioning failed")
)

// Outcome is the result of provisioning one table.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeSkipped Outcome = "skipped" // table already existed
	OutcomeFailed  Outcome = "failed"
)

// Policy decides whether rows are loaded into a table whose provisioning
// failed.
type Policy string

const (
	PolicyFailFast   Policy = "fail-fast"
	PolicyBestEffort Policy = "best-effort"
)

// ParsePolicy maps a config value to a Policy. Empty selects PolicyFailFast.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyFailFast:
		return PolicyFailFast, nil
	case PolicyBestEffort:
		return PolicyBestEffort, nil
	default:
		return "", fmt.Errorf("provision: unknown policy %q (want %s|%s)", s, PolicyFailFast, PolicyBestEffort)
	}
}

// AllowInserts reports whether rows should be loaded after outcome o.
func (p Policy) AllowInserts(o Outcome) bool {
	return o != OutcomeFailed || p == PolicyBestEffort
}

// Refs names the vertex tables an edge table's endpoints point to. An empty
// field means the endpoint could not be resolved.
type Refs struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Provisioner renders and applies table DDL for one dialect.
type Provisioner struct {
	Dialect      ddl.Dialect
	VertexSchema string // referenced by edge foreign keys
	Logger       *log.Logger
}

// New returns a Provisioner.
func New(d ddl.Dialect, vertexSchema string, logger *log.Logger) *Provisioner {
	return &Provisioner{Dialect: d, VertexSchema: vertexSchema, Logger: logging.Or(logger)}
}

// Exists reports whether schema.table exists.
func (p *Provisioner) Exists(ctx context.Context, s storage.Session, schema, table string) (bool, error) {
	return s.TableExists(ctx, schema, table)
}

// EnsureVertexTable creates the vertex table schema.table unless it exists.
// The returned error is non-nil exactly when the outcome is OutcomeFailed.
func (p *Provisioner) EnsureVertexTable(ctx context.Context, s storage.Session, schema, table string, columns []string) (Outcome, error) {
	if len(columns) == 0 {
		return p.fail(schema, table, ErrSchemaEmpty)
	}
	return p.ensure(ctx, s, ddl.VertexTable(p.Dialect, schema, table, columns))
}

// EnsureEdgeTable creates the edge table schema.table unless it exists.
// columns must already carry fromVertex/toVertex names. Foreign keys are
// added for each non-empty ref.
func (p *Provisioner) EnsureEdgeTable(ctx context.Context, s storage.Session, schema, table string, columns []string, refs Refs) (Outcome, error) {
	if len(columns) == 0 {
		return p.fail(schema, table, ErrSchemaEmpty)
	}
	return p.ensure(ctx, s, ddl.EdgeTable(p.Dialect, schema, table, columns, p.VertexSchema, refs.From, refs.To))
}

func (p *Provisioner) ensure(ctx context.Context, s storage.Session, td ddl.TableDef) (Outcome, error) {
	logger := logging.Or(p.Logger)
	ok, err := p.Exists(ctx, s, td.Schema, td.Name)
	switch {
	case err != nil:
		// Guarded DDL; attempt it anyway.
		logger.Warn("table existence check failed", "schema", td.Schema, "table", td.Name, "err", err)
	case ok:
		logger.Info("table exists, skipping creation", "schema", td.Schema, "table", td.Name)
		return OutcomeSkipped, nil
	}

	stmt, err := storage.CreateTable(ctx, s, p.Dialect, td)
	if err != nil {
		return p.fail(td.Schema, td.Name, fmt.Errorf("%w: %w", ErrDDL, err))
	}
	logger.Info("table created", "schema", td.Schema, "table", td.Name, "fks", len(td.ForeignKeys))
	logger.Debug("ddl", "sql", stmt)
	return OutcomeCreated, nil
}

func (p *Provisioner) fail(schema, table string, err error) (Outcome, error) {
	logging.Or(p.Logger).Error("table provisioning failed", "schema", schema, "table", table, "err", err)
	return OutcomeFailed, err
}
