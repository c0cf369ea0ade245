package migrate

import (
	"time"

	"graph2sql/internal/provision"
	"graph2sql/internal/storage"
)

// State is the orchestrator lifecycle state.
type State string

const (
	StateIdle        State = "idle"
	StateVertexPhase State = "vertex_phase"
	StateEdgePhase   State = "edge_phase"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Result is the outcome of one Run.
type Result struct {
	Job        string      `json:"job"`
	State      State       `json:"state"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Vertex     PhaseResult `json:"vertex"`
	Edge       PhaseResult `json:"edge"`

	VertexIDs   int    `json:"vertex_ids"`   // distinct ids in the index
	IDConflicts int    `json:"id_conflicts"` // ids seen under more than one vertex table
	Error       string `json:"error,omitempty"`
}

// Failure is a source object that could not be read or parsed.
type Failure struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// PhaseResult aggregates one phase.
type PhaseResult struct {
	Files          int           `json:"files"`
	GroupCount     int           `json:"group_count"`
	TablesCreated  int           `json:"tables_created"`
	TablesSkipped  int           `json:"tables_skipped"`
	TablesFailed   int           `json:"tables_failed"`
	RowsInserted   int           `json:"rows_inserted"`
	RowsSkipped    int           `json:"rows_skipped"`
	RowsFailed     int           `json:"rows_failed"`
	SourceFailures []Failure     `json:"source_failures,omitempty"`
	Groups         []GroupResult `json:"groups"`
}

// GroupResult is the outcome of one group (one table).
type GroupResult struct {
	Name      string            `json:"name"`
	Documents int               `json:"documents"`
	Columns   []string          `json:"columns"`
	Outcome   provision.Outcome `json:"outcome"`
	Refs      *provision.Refs   `json:"refs,omitempty"`
	Inserted  int               `json:"inserted"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
	Errors    []string          `json:"errors,omitempty"` // first row errors
	Error     string            `json:"error,omitempty"`  // group-level failure

	Err error `json:"-"`
}

func (g *GroupResult) setErr(err error) {
	g.Err = err
	if err != nil {
		g.Error = err.Error()
	}
}

func (g *GroupResult) addStats(st storage.LoadStats) {
	g.Inserted += st.Inserted
	g.Skipped += st.Skipped
	g.Failed += st.Failed
	g.Errors = append(g.Errors, st.Errors...)
}

func (p *PhaseResult) add(g GroupResult) {
	p.GroupCount++
	switch g.Outcome {
	case provision.OutcomeCreated:
		p.TablesCreated++
	case provision.OutcomeSkipped:
		p.TablesSkipped++
	case provision.OutcomeFailed:
		p.TablesFailed++
	}
	p.RowsInserted += g.Inserted
	p.RowsSkipped += g.Skipped
	p.RowsFailed += g.Failed
	p.Groups = append(p.Groups, g)
}
