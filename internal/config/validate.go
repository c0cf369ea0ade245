// This file adds a lightweight linter/validator for Migration values. It
// performs static checks over an effective configuration and returns a list
// of issues (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding.
//
// Path is a dotted path into the config (e.g. "warehouse.kind",
// "runtime.task_timeout"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Path     string        `json:"path"`
	Message  string        `json:"message"`
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues contains at least one SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation of m, normally after ApplyDefaults.
// It does not mutate m.
func Validate(m Migration) []Issue {
	var issues []Issue

	if strings.TrimSpace(m.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateSource(m.Source)...)
	issues = append(issues, validateWarehouse(m.Warehouse)...)
	issues = append(issues, validateRuntime(m.Runtime)...)
	issues = append(issues, validateMetrics(m.Metrics)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	switch s.Kind {
	case "s3":
		if strings.TrimSpace(s.Bucket) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.bucket",
				Message:  "s3 source requires a bucket",
			})
		}
		if (s.AccessKey == "") != (s.SecretKey == "") {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.access_key",
				Message:  "access_key and secret_key must be set together",
			})
		}
		if s.Endpoint != "" {
			if u, err := url.Parse(s.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     "source.endpoint",
					Message:  fmt.Sprintf("endpoint %q is not an absolute URL", s.Endpoint),
				})
			}
		}
	case "file":
		if strings.TrimSpace(s.Dir) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.dir",
				Message:  "file source requires a non-empty dir",
			})
		}
	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q (want s3|file)", s.Kind),
		})
	}

	if s.VertexFolder != "" && s.VertexFolder == s.EdgeFolder {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.edge_folder",
			Message:  "vertex_folder and edge_folder must differ",
		})
	}
	return issues
}

func validateWarehouse(w Warehouse) []Issue {
	var issues []Issue

	if strings.TrimSpace(w.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "warehouse.kind",
			Message:  "warehouse.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"postgres":  {},
		"sqlite":    {},
		"mssql":     {},
		"mysql":     {},
		"snowflake": {},
	}
	if _, ok := known[w.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "warehouse.kind",
			Message:  fmt.Sprintf("unknown warehouse kind %q; ensure a matching backend is registered", w.Kind),
		})
	}

	if strings.TrimSpace(w.DSN) == "" {
		snowflakeParts := w.Kind == "snowflake" && w.Account != "" && w.User != ""
		if !snowflakeParts {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "warehouse.dsn",
				Message:  "warehouse.dsn must not be empty (snowflake may use account and user instead)",
			})
		}
	}

	if w.VertexSchema != "" && w.VertexSchema == w.EdgeSchema {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "warehouse.edge_schema",
			Message:  "vertex and edge schemas are the same; a vertex and an edge group with the same name will collide",
		})
	}
	if w.ForeignKeys && w.Kind != "sqlite" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "warehouse.foreign_keys",
			Message:  "foreign_keys only applies to sqlite; other warehouses enforce declared constraints themselves",
		})
	}
	if w.MaxConns < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "warehouse.max_conns",
			Message:  "max_conns must not be negative",
		})
	}
	return issues
}

func validateRuntime(r Runtime) []Issue {
	var issues []Issue

	for _, f := range []struct {
		path string
		v    int
	}{
		{"runtime.fetch_workers", r.FetchWorkers},
		{"runtime.vertex_workers", r.VertexWorkers},
		{"runtime.edge_workers", r.EdgeWorkers},
		{"runtime.max_rows_per_table", r.MaxRowsPerTable},
	} {
		if f.v < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     f.path,
				Message:  fmt.Sprintf("%s must not be negative", f.path[len("runtime."):]),
			})
		}
	}
	if r.TaskTimeout < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.task_timeout",
			Message:  "task_timeout must not be negative",
		})
	}

	switch r.SchemaStrategy {
	case "", "widest-sample", "union-of-fields":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.schema_strategy",
			Message:  fmt.Sprintf("unknown schema_strategy %q (want widest-sample|union-of-fields)", r.SchemaStrategy),
		})
	}
	switch r.ProvisionPolicy {
	case "", "fail-fast", "best-effort":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.provision_policy",
			Message:  fmt.Sprintf("unknown provision_policy %q (want fail-fast|best-effort)", r.ProvisionPolicy),
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
	case "prometheus":
		if m.PushgatewayURL == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prometheus backend requires pushgateway_url",
			})
		}
	case "datadog":
		if m.StatsdAddr == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.statsd_addr",
				Message:  "datadog backend requires statsd_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", m.Backend),
		})
	}
	return issues
}
