package migrate

import (
	"context"
	"fmt"

	"graph2sql/internal/ddl"
	"graph2sql/internal/index"
	"graph2sql/internal/provision"
	"graph2sql/internal/schema"
)

// EdgeRefs resolves, for every edge group, the vertex tables its endpoints
// point to. It reads the export only: the index is built from every vertex
// document exactly as Run would build it, and no warehouse connection is
// opened.
func (o *Orchestrator) EdgeRefs(ctx context.Context) (map[string]provision.Refs, error) {
	ix, err := o.buildIndex(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := o.edgeGroups(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]provision.Refs, len(groups))
	for _, name := range groups.Names() {
		_, _, refs := shapeEdgeGroup(o.opts.Strategy, ix, groups[name])
		out[name] = refs
	}
	return out, nil
}

// PlannedTable is the DDL Run would issue for one group.
type PlannedTable struct {
	Phase   Phase           `json:"phase"`
	Table   string          `json:"table"`
	Columns []string        `json:"columns"`
	Refs    *provision.Refs `json:"refs,omitempty"`
	SQL     string          `json:"sql,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Plan renders the CREATE TABLE statements for every vertex and edge group in
// the configured warehouse dialect without connecting to the warehouse.
func (o *Orchestrator) Plan(ctx context.Context) ([]PlannedTable, error) {
	d, err := ddl.ByName(o.opts.Warehouse.Kind)
	if err != nil {
		return nil, err
	}

	var pr PhaseResult
	vgroups, err := o.collect(ctx, o.opts.VertexFolder, &pr)
	if err != nil {
		return nil, err
	}

	var plan []PlannedTable
	ix := index.New()
	for _, name := range vgroups.Names() {
		cols, _ := shapeVertexGroup(o.opts.Strategy, ix, name, vgroups[name])
		plan = append(plan, render(d, PhaseVertex, name, cols, nil, ddl.VertexTable(d, o.opts.VertexSchema, name, cols)))
	}

	egroups, err := o.edgeGroups(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range egroups.Names() {
		cols, _, refs := shapeEdgeGroup(o.opts.Strategy, ix, egroups[name])
		td := ddl.EdgeTable(d, o.opts.EdgeSchema, name, cols, o.opts.VertexSchema, refs.From, refs.To)
		plan = append(plan, render(d, PhaseEdge, name, cols, &refs, td))
	}
	return plan, nil
}

func render(d ddl.Dialect, phase Phase, name string, cols schema.Columns, refs *provision.Refs, td ddl.TableDef) PlannedTable {
	pt := PlannedTable{Phase: phase, Table: name, Columns: cols, Refs: refs}
	if len(cols) == 0 {
		pt.Error = ErrSchemaEmpty.Error()
		return pt
	}
	sql, err := ddl.BuildCreateTableSQL(d, td)
	if err != nil {
		pt.Error = fmt.Sprintf("render: %v", err)
		return pt
	}
	pt.SQL = sql
	return pt
}
