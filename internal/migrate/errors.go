package migrate

import (
	"errors"
	"fmt"

	"graph2sql/internal/provision"
)

// Error kinds. Use errors.Is to classify a failure.
var (
	ErrSourceRead  = errors.New("source read failed")
	ErrSchemaEmpty = provision.ErrSchemaEmpty
	ErrProvision   = provision.ErrDDL
	ErrRowInsert   = errors.New("row insert failed")
	ErrConnection  = errors.New("warehouse connection failed")

	// ErrRunning is returned by Run while another run of the same
	// Orchestrator is in progress.
	ErrRunning = errors.New("migration already running")
)

// Phase names a migration phase.
type Phase string

const (
	PhaseVertex Phase = "vertex"
	PhaseEdge   Phase = "edge"
)

// GroupError attributes a failure to one group of one phase.
type GroupError struct {
	Phase Phase
	Group string
	Err   error
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("%s group %s: %v", e.Phase, e.Group, e.Err)
}

func (e *GroupError) Unwrap() error { return e.Err }
