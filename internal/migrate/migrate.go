// Package migrate runs a graph export migration: vertex groups are loaded
// into tables of the vertex schema, then edge groups into tables of the edge
// schema with foreign keys to the vertex tables their endpoints resolve to.
//
// Only a failure to connect to the warehouse or to list a phase's folder
// aborts a run. Everything else is recorded per group in the Result and the
// run continues.
package migrate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"graph2sql/internal/datasource"
	"graph2sql/internal/grouper"
	"graph2sql/internal/index"
	"graph2sql/internal/logging"
	"graph2sql/internal/metrics"
	"graph2sql/internal/parser"
	"graph2sql/internal/provision"
	"graph2sql/internal/schema"
	"graph2sql/internal/storage"
)

// Defaults applied by New for zero-valued Options fields.
const (
	DefaultVertexFolder  = "nodes"
	DefaultEdgeFolder    = "edges"
	DefaultVertexWorkers = 50
	DefaultEdgeWorkers   = 50
	DefaultTaskTimeout   = 10 * time.Minute
	DefaultVertexSchema  = "VERTICES"
	DefaultEdgeSchema    = "EDGES"
)

// Options configures an Orchestrator.
type Options struct {
	Job string

	Prefix       string // export prefix inside the store
	VertexFolder string
	EdgeFolder   string

	FetchWorkers    int
	VertexWorkers   int
	EdgeWorkers     int
	MaxRowsPerTable int
	TaskTimeout     time.Duration

	Strategy schema.Strategy
	Policy   provision.Policy

	// Warehouse describes the connection; its Schema is replaced by
	// VertexSchema or EdgeSchema for each pool.
	Warehouse    storage.Config
	VertexSchema string
	EdgeSchema   string

	Parser parser.Parser // NDJSON when nil
	// Open opens a repository; storage.New when nil.
	Open   func(ctx context.Context, cfg storage.Config) (storage.Repository, error)
	Logger *log.Logger
}

func (o *Options) applyDefaults() {
	if o.Job == "" {
		o.Job = "graph2sql"
	}
	if o.VertexFolder == "" {
		o.VertexFolder = DefaultVertexFolder
	}
	if o.EdgeFolder == "" {
		o.EdgeFolder = DefaultEdgeFolder
	}
	if o.FetchWorkers <= 0 {
		o.FetchWorkers = grouper.DefaultWorkers
	}
	if o.VertexWorkers <= 0 {
		o.VertexWorkers = DefaultVertexWorkers
	}
	if o.EdgeWorkers <= 0 {
		o.EdgeWorkers = DefaultEdgeWorkers
	}
	if o.MaxRowsPerTable <= 0 {
		o.MaxRowsPerTable = storage.DefaultMaxRows
	}
	if o.TaskTimeout <= 0 {
		o.TaskTimeout = DefaultTaskTimeout
	}
	if o.Strategy == "" {
		o.Strategy = schema.StrategyWidest
	}
	if o.Policy == "" {
		o.Policy = provision.PolicyFailFast
	}
	if o.VertexSchema == "" {
		o.VertexSchema = DefaultVertexSchema
	}
	if o.EdgeSchema == "" {
		o.EdgeSchema = DefaultEdgeSchema
	}
	if o.Open == nil {
		o.Open = storage.New
	}
	o.Logger = logging.Or(o.Logger)
}

// Orchestrator drives migrations from one object store into one warehouse.
// It is safe for concurrent use; Run calls do not overlap.
type Orchestrator struct {
	store datasource.ObjectStore
	opts  Options
	log   *log.Logger

	running atomic.Bool
	mu      sync.Mutex
	state   State
}

// New returns an idle Orchestrator.
func New(store datasource.ObjectStore, opts Options) *Orchestrator {
	opts.applyDefaults()
	return &Orchestrator{store: store, opts: opts, log: opts.Logger, state: StateIdle}
}

// Options returns the effective options after defaults.
func (o *Orchestrator) Options() Options { return o.opts }

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.log.Debug("state", "state", s)
}

// Run executes the vertex phase and then the edge phase. The returned Result
// is non-nil whenever the run started; err is non-nil only when the run was
// aborted (State == StateFailed).
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunning
	}
	defer o.running.Store(false)

	res := &Result{Job: o.opts.Job, State: StateIdle, StartedAt: time.Now().UTC()}
	o.setState(StateIdle)
	fail := func(err error) (*Result, error) {
		o.setState(StateFailed)
		res.State = StateFailed
		res.Error = err.Error()
		res.FinishedAt = time.Now().UTC()
		o.log.Error("migration failed", "job", o.opts.Job, "err", err)
		return res, err
	}

	vrepo, err := o.openRepo(ctx, o.opts.VertexSchema)
	if err != nil {
		return fail(err)
	}
	defer vrepo.Close()
	erepo, err := o.openRepo(ctx, o.opts.EdgeSchema)
	if err != nil {
		return fail(err)
	}
	defer erepo.Close()

	ix := index.New()

	o.setState(StateVertexPhase)
	res.State = StateVertexPhase
	start := time.Now()
	vertex, err := o.vertexPhase(ctx, vrepo, ix)
	metrics.RecordStep(o.opts.Job, string(PhaseVertex), err, time.Since(start))
	res.Vertex = vertex
	if err != nil {
		return fail(err)
	}

	counts := ix.Counts()
	for _, t := range ix.Tables() {
		o.log.Info("vertex ids indexed", "table", t, "ids", counts[t])
	}
	res.VertexIDs = ix.Len()
	res.IDConflicts = ix.Conflicts()
	if res.IDConflicts > 0 {
		o.log.Warn("ids shared between vertex tables", "conflicts", res.IDConflicts)
	}

	o.setState(StateEdgePhase)
	res.State = StateEdgePhase
	start = time.Now()
	edge, err := o.edgePhase(ctx, erepo, vrepo.Schema(), ix)
	metrics.RecordStep(o.opts.Job, string(PhaseEdge), err, time.Since(start))
	res.Edge = edge
	if err != nil {
		return fail(err)
	}

	o.setState(StateDone)
	res.State = StateDone
	res.FinishedAt = time.Now().UTC()
	o.log.Info("migration done",
		"job", o.opts.Job,
		"vertex_tables", res.Vertex.GroupCount,
		"edge_tables", res.Edge.GroupCount,
		"rows", res.Vertex.RowsInserted+res.Edge.RowsInserted,
		"elapsed", res.FinishedAt.Sub(res.StartedAt).Truncate(time.Millisecond),
	)
	return res, nil
}

// TableExists reports whether table exists in the vertex schema.
func (o *Orchestrator) TableExists(ctx context.Context, table string) (bool, error) {
	repo, err := o.openRepo(ctx, o.opts.VertexSchema)
	if err != nil {
		return false, err
	}
	defer repo.Close()

	sess, err := repo.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer sess.Release()
	return sess.TableExists(ctx, repo.Schema(), table)
}

func (o *Orchestrator) openRepo(ctx context.Context, schemaName string) (storage.Repository, error) {
	cfg := o.opts.Warehouse
	cfg.Schema = schemaName
	repo, err := o.opts.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s schema %q: %w", ErrConnection, cfg.Kind, schemaName, err)
	}
	return repo, nil
}

// collect lists folder and groups its objects. A listing failure is returned
// as an error; per-object failures are recorded in pr.
func (o *Orchestrator) collect(ctx context.Context, folder string, pr *PhaseResult) (grouper.Groups, error) {
	prefix := datasource.JoinPrefix(o.opts.Prefix, folder)
	keys, err := o.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrSourceRead, prefix, err)
	}
	for _, k := range keys {
		if len(k) > 0 && k[len(k)-1] != '/' {
			pr.Files++
		}
	}
	o.log.Info("objects listed", "prefix", prefix, "files", pr.Files)

	groups, failures := grouper.Group(ctx, o.store, keys, prefix, grouper.Options{
		Workers:     o.opts.FetchWorkers,
		TaskTimeout: o.opts.TaskTimeout,
		Parser:      o.opts.Parser,
		Logger:      o.log,
	})
	for _, f := range failures {
		pr.SourceFailures = append(pr.SourceFailures, Failure{Key: f.Key, Error: f.Err.Error()})
	}
	return groups, nil
}

// runGroups runs task for every group on a pool of the given size and adds
// the results to pr in group-name order.
func (o *Orchestrator) runGroups(ctx context.Context, phase Phase, groups grouper.Groups, workers int, pr *PhaseResult, task func(ctx context.Context, name string) GroupResult) {
	names := groups.Names()
	results := make([]GroupResult, len(names))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(ctx, o.opts.TaskTimeout)
			defer cancel()

			start := time.Now()
			gr := task(tctx, name)
			metrics.RecordStep(o.opts.Job, string(phase)+"_group", gr.Err, time.Since(start))
			metrics.RecordTables(o.opts.Job, string(gr.Outcome), 1)
			metrics.RecordRows(o.opts.Job, "inserted", gr.Inserted)
			metrics.RecordRows(o.opts.Job, "skipped", gr.Skipped)
			metrics.RecordRows(o.opts.Job, "failed", gr.Failed)
			results[i] = gr
			return nil
		})
	}
	_ = g.Wait()

	for _, gr := range results {
		pr.add(gr)
	}
}
