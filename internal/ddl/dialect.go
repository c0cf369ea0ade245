package ddl

import (
	"fmt"
	"strings"
)

// Guard is how a dialect makes CREATE TABLE idempotent.
type Guard int

const (
	// GuardIfNotExists emits CREATE TABLE IF NOT EXISTS.
	GuardIfNotExists Guard = iota
	// GuardObjectID wraps the statement in an IF OBJECT_ID(...) IS NULL block
	// (T-SQL has no IF NOT EXISTS for tables).
	GuardObjectID
)

// Dialect captures the differences between warehouses that matter for the
// tables this module creates.
type Dialect struct {
	Name     string
	KeyType  string // type of the id column and of foreign-key columns
	TextType string // type of every other column
	Schemas  bool   // whether table names are schema-qualified
	Guard    Guard
	open     string
	close    string
}

// Quote quotes a single identifier, doubling any embedded closing quote.
func (d Dialect) Quote(ident string) string {
	return d.open + strings.ReplaceAll(ident, d.close, d.close+d.close) + d.close
}

// QualifiedName returns the quoted, optionally schema-qualified table name.
func (d Dialect) QualifiedName(schema, table string) string {
	if d.Schemas && strings.TrimSpace(schema) != "" {
		return d.Quote(schema) + "." + d.Quote(table)
	}
	return d.Quote(table)
}

var (
	// Postgres renders "schema"."table" with CREATE TABLE IF NOT EXISTS.
	Postgres = Dialect{Name: "postgres", KeyType: "VARCHAR(255)", TextType: "TEXT", Schemas: true, open: `"`, close: `"`}
	// SQLite has no schemas in the warehouse sense; tables are unqualified.
	SQLite = Dialect{Name: "sqlite", KeyType: "TEXT", TextType: "TEXT", open: `"`, close: `"`}
	// MSSQL uses bracket quoting and an OBJECT_ID guard.
	MSSQL = Dialect{Name: "mssql", KeyType: "NVARCHAR(255)", TextType: "NVARCHAR(MAX)", Schemas: true, Guard: GuardObjectID, open: "[", close: "]"}
	// MySQL treats a schema as a database.
	MySQL = Dialect{Name: "mysql", KeyType: "VARCHAR(255)", TextType: "TEXT", Schemas: true, open: "`", close: "`"}
	// Snowflake quotes identifiers so lower-case graph labels keep their case.
	Snowflake = Dialect{Name: "snowflake", KeyType: "VARCHAR(255)", TextType: "TEXT", Schemas: true, open: `"`, close: `"`}
)

// ByName returns the built-in dialect for a storage kind.
func ByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	case "mssql", "sqlserver":
		return MSSQL, nil
	case "mysql":
		return MySQL, nil
	case "snowflake":
		return Snowflake, nil
	default:
		return Dialect{}, fmt.Errorf("ddl: unknown dialect %q", name)
	}
}
