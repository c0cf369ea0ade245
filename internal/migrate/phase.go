package migrate

import (
	"context"
	"fmt"

	"graph2sql/internal/ddl"
	"graph2sql/internal/document"
	"graph2sql/internal/grouper"
	"graph2sql/internal/index"
	"graph2sql/internal/provision"
	"graph2sql/internal/schema"
	"graph2sql/internal/storage"
)

func (o *Orchestrator) vertexPhase(ctx context.Context, repo storage.Repository, ix *index.Index) (PhaseResult, error) {
	var pr PhaseResult
	groups, err := o.collect(ctx, o.opts.VertexFolder, &pr)
	if err != nil {
		return pr, err
	}
	prov := provision.New(repo.Dialect(), repo.Schema(), o.log)

	o.runGroups(ctx, PhaseVertex, groups, o.opts.VertexWorkers, &pr, func(ctx context.Context, name string) GroupResult {
		return o.loadVertexGroup(ctx, repo, prov, ix, name, groups[name])
	})
	o.log.Info("vertex phase done", "groups", pr.GroupCount, "created", pr.TablesCreated, "inserted", pr.RowsInserted)
	return pr, nil
}

func (o *Orchestrator) edgePhase(ctx context.Context, repo storage.Repository, vertexSchema string, ix *index.Index) (PhaseResult, error) {
	var pr PhaseResult
	groups, err := o.collect(ctx, o.opts.EdgeFolder, &pr)
	if err != nil {
		return pr, err
	}
	prov := provision.New(repo.Dialect(), vertexSchema, o.log)

	o.runGroups(ctx, PhaseEdge, groups, o.opts.EdgeWorkers, &pr, func(ctx context.Context, name string) GroupResult {
		return o.loadEdgeGroup(ctx, repo, prov, ix, name, groups[name])
	})
	o.log.Info("edge phase done", "groups", pr.GroupCount, "created", pr.TablesCreated, "inserted", pr.RowsInserted)
	return pr, nil
}

// shapeVertexGroup infers the columns of a vertex group, renders every
// document as a row and records every id in ix, including ids of rows past
// the insert cap.
func shapeVertexGroup(strategy schema.Strategy, ix *index.Index, name string, docs []document.Document) (schema.Columns, [][]string) {
	cols := schema.Infer(docs, strategy)
	rows := alignRows(docs, cols, strategy)

	ix.Ensure(name)
	if id := cols.Index(ddl.IDColumn); id >= 0 {
		for _, r := range rows {
			ix.Record(name, r[id])
		}
	}
	return cols, rows
}

// shapeEdgeGroup infers and renames the columns of an edge group, renders
// its rows and resolves the endpoint refs from the first row.
func shapeEdgeGroup(strategy schema.Strategy, ix *index.Index, docs []document.Document) (schema.Columns, [][]string, provision.Refs) {
	inferred := schema.Infer(docs, strategy)
	// Align before renaming so name-based alignment sees the source names.
	rows := alignRows(docs, inferred, strategy)
	cols := schema.RenameEndpoints(inferred)

	var first []string
	if len(rows) > 0 {
		first = rows[0]
	}
	return cols, rows, ResolveRefs(cols, first, ix)
}

// ResolveRefs resolves the vertex tables a row's endpoints belong to. An
// endpoint whose column is missing or whose id is unknown resolves to "".
func ResolveRefs(cols schema.Columns, row []string, ix *index.Index) provision.Refs {
	owner := func(col string) string {
		i := cols.Index(col)
		if i < 0 || i >= len(row) {
			return ""
		}
		t, _ := ix.ResolveOwner(row[i])
		return t
	}
	return provision.Refs{From: owner(schema.FromVertex), To: owner(schema.ToVertex)}
}

func alignRows(docs []document.Document, cols schema.Columns, strategy schema.Strategy) [][]string {
	rows := make([][]string, len(docs))
	for i, d := range docs {
		rows[i] = schema.Align(d, cols, strategy)
	}
	return rows
}

func (o *Orchestrator) loadVertexGroup(ctx context.Context, repo storage.Repository, prov *provision.Provisioner, ix *index.Index, name string, docs []document.Document) GroupResult {
	cols, rows := shapeVertexGroup(o.opts.Strategy, ix, name, docs)
	gr := GroupResult{Name: name, Documents: len(docs), Columns: cols}
	o.load(ctx, repo, PhaseVertex, &gr, rows, func(sess storage.Session) (provision.Outcome, error) {
		return prov.EnsureVertexTable(ctx, sess, repo.Schema(), name, cols)
	})
	return gr
}

func (o *Orchestrator) loadEdgeGroup(ctx context.Context, repo storage.Repository, prov *provision.Provisioner, ix *index.Index, name string, docs []document.Document) GroupResult {
	cols, rows, refs := shapeEdgeGroup(o.opts.Strategy, ix, docs)
	gr := GroupResult{Name: name, Documents: len(docs), Columns: cols, Refs: &refs}
	if refs.From == "" || refs.To == "" {
		o.log.Warn("edge endpoint unresolved", "group", name, "from", refs.From, "to", refs.To)
	}
	o.load(ctx, repo, PhaseEdge, &gr, rows, func(sess storage.Session) (provision.Outcome, error) {
		return prov.EnsureEdgeTable(ctx, sess, repo.Schema(), name, cols, refs)
	})
	return gr
}

// load provisions the group's table on a pooled session and inserts its rows
// according to the provisioning policy.
func (o *Orchestrator) load(ctx context.Context, repo storage.Repository, phase Phase, gr *GroupResult, rows [][]string, ensure func(storage.Session) (provision.Outcome, error)) {
	sess, err := repo.Acquire(ctx)
	if err != nil {
		gr.Outcome = provision.OutcomeFailed
		gr.Skipped = len(rows)
		gr.setErr(&GroupError{Phase: phase, Group: gr.Name, Err: fmt.Errorf("%w: %w", ErrConnection, err)})
		o.log.Error("session acquire failed", "phase", phase, "group", gr.Name, "err", err)
		return
	}
	defer sess.Release()

	outcome, err := ensure(sess)
	gr.Outcome = outcome
	if err != nil {
		gr.setErr(&GroupError{Phase: phase, Group: gr.Name, Err: err})
	}
	if len(gr.Columns) == 0 || !o.opts.Policy.AllowInserts(outcome) {
		gr.Skipped = len(rows)
		o.log.Warn("inserts skipped", "phase", phase, "group", gr.Name, "rows", len(rows), "outcome", outcome)
		return
	}

	schemaName := repo.Schema()
	st, err := storage.LoadRows(ctx, gr.Name, rows, o.opts.MaxRowsPerTable, func(ctx context.Context, values []string) error {
		return sess.Insert(ctx, schemaName, gr.Name, gr.Columns, values)
	}, o.log)
	gr.addStats(st)
	if err != nil && gr.Err == nil {
		gr.setErr(&GroupError{Phase: phase, Group: gr.Name, Err: fmt.Errorf("%w: %w", ErrRowInsert, err)})
	}
}

// buildIndex groups the vertex folder and records every id the way Run does,
// without touching the warehouse.
func (o *Orchestrator) buildIndex(ctx context.Context) (*index.Index, error) {
	var pr PhaseResult
	groups, err := o.collect(ctx, o.opts.VertexFolder, &pr)
	if err != nil {
		return nil, err
	}
	ix := index.New()
	for _, name := range groups.Names() {
		shapeVertexGroup(o.opts.Strategy, ix, name, groups[name])
	}
	return ix, nil
}

func (o *Orchestrator) edgeGroups(ctx context.Context) (grouper.Groups, error) {
	var pr PhaseResult
	return o.collect(ctx, o.opts.EdgeFolder, &pr)
}
