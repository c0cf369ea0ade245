package storage

import (
	"fmt"
	"strings"

	"graph2sql/internal/ddl"
)

// Placeholder renders the bind marker for the i-th (zero-based) parameter.
type Placeholder func(i int) string

// Common placeholder styles.
var (
	QuestionMark Placeholder = func(int) string { return "?" }
	Dollar       Placeholder = func(i int) string { return fmt.Sprintf("$%d", i+1) }
	AtP          Placeholder = func(i int) string { return fmt.Sprintf("@p%d", i+1) }
)

// InsertSQL renders a single-row parameterized INSERT for the given table.
func InsertSQL(d ddl.Dialect, schema, table string, columns []string, ph Placeholder) string {
	cols := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.Quote(c)
		params[i] = ph(i)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		d.QualifiedName(schema, table),
		strings.Join(cols, ", "),
		strings.Join(params, ", "),
	)
}

// TextArgs converts values to driver arguments.
func TextArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
