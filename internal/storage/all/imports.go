// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete storage backend to run,
// which in turn register their factories with the storage package.
//
// Importing this package makes the following storage kinds available:
//
//   - "postgres"  (graph2sql/internal/storage/postgres)
//   - "sqlite"    (graph2sql/internal/storage/sqlite)
//   - "mssql"     (graph2sql/internal/storage/mssql)
//   - "mysql"     (graph2sql/internal/storage/mysql)
//   - "snowflake" (graph2sql/internal/storage/snowflake)
//
// Typical usage:
//
//	import _ "graph2sql/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "postgres", DSN: dsn, Schema: "VERTICES"})
//
// A binary that needs only a subset of backends can import those packages
// directly instead.
package all

import (
	_ "graph2sql/internal/storage/mssql"
	_ "graph2sql/internal/storage/mysql"
	_ "graph2sql/internal/storage/postgres"
	_ "graph2sql/internal/storage/snowflake"
	_ "graph2sql/internal/storage/sqlite"
)
