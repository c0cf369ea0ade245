package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:graph.db?cache=shared"
	//   "graph.db" (interpreted by the driver)
	DSN string

	// ForeignKeys turns on PRAGMA foreign_keys. Off by default: edge rows may
	// reference vertices past the per-table row cap.
	ForeignKeys bool
}
