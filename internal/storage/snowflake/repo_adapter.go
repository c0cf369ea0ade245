// This adapter wires the Snowflake backend into the storage-agnostic factory.
package snowflake

import (
	"context"

	"graph2sql/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

func init() {
	storage.Register("snowflake", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:       cfg.DSN,
			Account:   cfg.Account,
			User:      cfg.User,
			Password:  cfg.Password,
			Database:  cfg.Database,
			Warehouse: cfg.Warehouse,
			Role:      cfg.Role,
			Schema:    cfg.Schema,
			MaxConns:  cfg.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
}

type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close closes the underlying connection pool.
func (w *wrappedRepo) Close() { w.closeFn() }
