// Package schema infers the column set of a table from a group of documents
// and aligns documents to that column set.
//
// Default alignment is positional: value i of a document is written to column i,
// whatever the names are. Documents with fewer fields are padded with empty
// strings and documents with more fields are truncated. Repeated field names
// within a document keep only their first occurrence. Under the default
// strategy a document whose field order differs from the widest sample lands
// its values by position, not by name. StrategyUnion places values by name.
package schema

import (
	"fmt"
	"strings"

	"graph2sql/internal/document"
)

// Strategy selects how the column set is derived.
type Strategy string

const (
	// StrategyWidest uses the field names of the document with the most
	// fields. The first such document wins ties.
	StrategyWidest Strategy = "widest-sample"
	// StrategyUnion uses every field name seen, in first-seen order.
	StrategyUnion Strategy = "union-of-fields"
)

// ParseStrategy maps a config string to a Strategy. Empty means StrategyWidest.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.TrimSpace(s)) {
	case "", StrategyWidest:
		return StrategyWidest, nil
	case StrategyUnion:
		return StrategyUnion, nil
	default:
		return "", fmt.Errorf("schema: unknown strategy %q", s)
	}
}

// Columns is an ordered list of unique column names.
type Columns []string

// Index returns the position of name, matched case-insensitively, or -1.
func (c Columns) Index(name string) int {
	for i, col := range c {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

// Infer returns the column set for docs. An empty group yields an empty set.
func Infer(docs []document.Document, strategy Strategy) Columns {
	if len(docs) == 0 {
		return Columns{}
	}
	if strategy == StrategyUnion {
		return union(docs)
	}
	return widest(docs)
}

func widest(docs []document.Document) Columns {
	best, bestLen := 0, len(uniqueFields(docs[0]))
	for i := 1; i < len(docs); i++ {
		if n := len(uniqueFields(docs[i])); n > bestLen {
			best, bestLen = i, n
		}
	}
	return dedupe(docs[best].Names())
}

// uniqueFields returns the fields of doc without those whose name repeats an
// earlier field, such as a property "id" next to the cleaned "~id".
func uniqueFields(doc document.Document) []document.Field {
	out := make([]document.Field, 0, len(doc.Fields))
	seen := make(map[string]struct{}, len(doc.Fields))
	for _, f := range doc.Fields {
		if _, dup := seen[f.Name]; dup {
			continue
		}
		seen[f.Name] = struct{}{}
		out = append(out, f)
	}
	return out
}

func union(docs []document.Document) Columns {
	var names []string
	for _, d := range docs {
		names = append(names, d.Names()...)
	}
	return dedupe(names)
}

// dedupe keeps the first occurrence of each name.
func dedupe(names []string) Columns {
	seen := make(map[string]struct{}, len(names))
	out := make(Columns, 0, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Align renders doc as a row of exactly len(columns) text values.
//
// Under StrategyWidest the mapping is positional. Under StrategyUnion a value
// is placed by field name, since positions are not comparable across
// documents with different shapes.
//
// A field whose name repeats an earlier one in the same document is dropped
// before alignment, the same way the column set drops it, so the first
// occurrence wins and later values keep their own columns.
func Align(doc document.Document, columns Columns, strategy Strategy) []string {
	row := make([]string, len(columns))
	fields := uniqueFields(doc)
	if strategy == StrategyUnion {
		for _, f := range fields {
			if i := indexExact(columns, f.Name); i >= 0 {
				row[i] = f.Value.String()
			}
		}
		return row
	}
	for i := 0; i < len(columns) && i < len(fields); i++ {
		row[i] = fields[i].Value.String()
	}
	return row
}

func indexExact(columns Columns, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Endpoint column names after RenameEndpoints.
const (
	FromVertex = "fromVertex"
	ToVertex   = "toVertex"
)

// RenameEndpoints returns a copy of columns with "from" and "to" (any case)
// renamed to FromVertex and ToVertex. Positions are unchanged.
func RenameEndpoints(columns Columns) Columns {
	out := make(Columns, len(columns))
	for i, c := range columns {
		switch {
		case strings.EqualFold(c, "from"):
			out[i] = FromVertex
		case strings.EqualFold(c, "to"):
			out[i] = ToVertex
		default:
			out[i] = c
		}
	}
	return out
}
