package storage

import (
	"context"
	"fmt"

	"graph2sql/internal/ddl"
)

// CreateTable renders td for d and applies it through s. It returns the
// statement it ran so callers can log or report it.
func CreateTable(ctx context.Context, s Session, d ddl.Dialect, td ddl.TableDef) (string, error) {
	stmt, err := ddl.BuildCreateTableSQL(d, td)
	if err != nil {
		return "", fmt.Errorf("render DDL: %w", err)
	}
	if err := s.Exec(ctx, stmt); err != nil {
		return stmt, fmt.Errorf("apply DDL: %w", err)
	}
	return stmt, nil
}
