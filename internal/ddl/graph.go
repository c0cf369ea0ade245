package ddl

import "strings"

// Column names with fixed meaning in graph tables.
const (
	IDColumn   = "id"
	FromColumn = "fromVertex"
	ToColumn   = "toVertex"
)

// VertexTable builds the definition of a vertex table. The first column named
// id (any case) becomes the primary key with the dialect's key type; every
// other column is nullable text.
func VertexTable(d Dialect, schema, table string, columns []string) TableDef {
	return TableDef{Schema: schema, Name: table, Columns: graphColumns(d, columns, false)}
}

// EdgeTable builds the definition of an edge table. columns must already have
// their endpoint names rewritten (see schema.RenameEndpoints). A foreign key
// from fromVertex (toVertex) to <vertexSchema>.<ref>(id) is added for each
// non-empty ref whose endpoint column is present.
func EdgeTable(d Dialect, schema, table string, columns []string, vertexSchema, fromRef, toRef string) TableDef {
	td := TableDef{Schema: schema, Name: table, Columns: graphColumns(d, columns, true)}
	refSchema := ""
	if d.Schemas {
		refSchema = vertexSchema
	}
	for _, fk := range []struct{ col, ref string }{{FromColumn, fromRef}, {ToColumn, toRef}} {
		if fk.ref == "" || !hasColumn(columns, fk.col) {
			continue
		}
		td.ForeignKeys = append(td.ForeignKeys, ForeignKeyDef{
			Column:    fk.col,
			RefSchema: refSchema,
			RefTable:  fk.ref,
			RefColumn: IDColumn,
		})
	}
	return td
}

func graphColumns(d Dialect, columns []string, edge bool) []ColumnDef {
	out := make([]ColumnDef, 0, len(columns))
	pkSet := false
	for _, name := range columns {
		switch {
		case !pkSet && strings.EqualFold(name, IDColumn):
			pkSet = true
			out = append(out, ColumnDef{Name: name, SQLType: d.KeyType, PrimaryKey: true})
		case edge && (name == FromColumn || name == ToColumn):
			out = append(out, ColumnDef{Name: name, SQLType: d.KeyType, Nullable: true})
		default:
			out = append(out, ColumnDef{Name: name, SQLType: d.TextType, Nullable: true})
		}
	}
	return out
}

func hasColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
