// Package ddl defines a small model for table DDL and renders CREATE TABLE
// statements for the warehouses this module writes to.
//
// Identifiers are always quoted with the dialect's quote characters, so graph
// labels and property names keep their exact spelling and case.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders an idempotent CREATE TABLE statement for t.
//
// Rules:
//
//   - t.Name must be non-empty.
//
//   - Each column must have a non-empty Name and SQLType.
//
//   - A column is rendered as:
//
//     <Name> <SQLType> [NOT NULL]
//
//     where NOT NULL is added when Nullable == false.
//
//   - Columns with PrimaryKey == true are collected into a single
//     PRIMARY KEY (...) clause after the column list, followed by one
//     FOREIGN KEY (...) REFERENCES ... clause per foreign key.
//
// The statement is guarded according to d.Guard so re-running it against an
// existing table is harmless.
func BuildCreateTableSQL(d Dialect, t TableDef) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1+len(t.ForeignKeys))
	pks := make([]string, 0, 1)

	for _, c := range t.Columns {
		cname := strings.TrimSpace(c.Name)
		if cname == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", name)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", cname)
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(cname))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.Quote(cname))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	for _, fk := range t.ForeignKeys {
		if fk.Column == "" || fk.RefTable == "" || fk.RefColumn == "" {
			return "", fmt.Errorf("ddl: incomplete foreign key on table %s", name)
		}
		cols = append(cols, fmt.Sprintf(
			"FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.Quote(fk.Column),
			d.QualifiedName(fk.RefSchema, fk.RefTable),
			d.Quote(fk.RefColumn),
		))
	}

	fqn := d.QualifiedName(t.Schema, name)

	switch d.Guard {
	case GuardObjectID:
		return fmt.Sprintf(
			"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
			strings.ReplaceAll(fqn, "'", "''"),
			fqn,
			strings.Join(cols, ",\n    "),
		), nil
	default:
		return fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
			fqn,
			strings.Join(cols, ",\n  "),
		), nil
	}
}
