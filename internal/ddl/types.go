package ddl

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, VARCHAR(255))
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
}

// ForeignKeyDef is a single-column reference to another table's column.
type ForeignKeyDef struct {
	Column    string
	RefSchema string // empty for dialects without schemas
	RefTable  string
	RefColumn string
}

// TableDef holds the table location and an ordered list of columns. Schema is
// ignored by dialects that do not qualify table names.
type TableDef struct {
	Schema      string
	Name        string
	Columns     []ColumnDef
	ForeignKeys []ForeignKeyDef
}
