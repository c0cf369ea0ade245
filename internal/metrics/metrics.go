// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from a migration run.
//
// Calls go to a global, pluggable Backend that defaults to a no-op, so
// instrumentation is always safe even when no metrics system is configured.
// Concrete systems (Prometheus Pushgateway, DogStatsD) live in subpackages.
package metrics

import "time"

// Metric names emitted by the helpers below.
const (
	StepTotal    = "graph2sql_step_total"
	StepDuration = "graph2sql_step_duration_seconds"
	RowsTotal    = "graph2sql_rows_total"
	TablesTotal  = "graph2sql_tables_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of step and records its duration. Steps are
// phases ("vertex", "edge") or per-group tasks ("vertex_group", "edge_group").
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows increments the row counter for kind (inserted, skipped, failed).
func RecordRows(job, kind string, delta int) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordTables increments the table counter for outcome (created, skipped,
// failed).
func RecordTables(job, outcome string, delta int) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(TablesTotal, float64(delta), Labels{
		"job":     job,
		"outcome": outcome,
	})
}
