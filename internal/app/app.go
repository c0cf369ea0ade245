// Package app turns a resolved config.Migration into the collaborators the
// CLI and the HTTP server share: the object store, the orchestrator options,
// the logger and the metrics backend. It depends on storage-agnostic
// interfaces only; backends are registered by blank imports in the caller.
package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"graph2sql/internal/config"
	"graph2sql/internal/datasource"
	"graph2sql/internal/datasource/file"
	"graph2sql/internal/datasource/s3ds"
	"graph2sql/internal/logging"
	"graph2sql/internal/metrics"
	"graph2sql/internal/metrics/datadog"
	"graph2sql/internal/metrics/prompush"
	"graph2sql/internal/migrate"
	"graph2sql/internal/provision"
	"graph2sql/internal/schema"
	"graph2sql/internal/storage"
)

// Test seams.
var (
	newS3Store = func(ctx context.Context, cfg s3ds.Config) (datasource.ObjectStore, error) {
		st, err := s3ds.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	setBackend = metrics.SetBackend
)

// NewLogger builds the process logger from the log section.
func NewLogger(l config.Log) (*log.Logger, error) {
	return logging.New(logging.Options{Level: l.Level, Format: l.Format})
}

// OpenStore returns the object store the source section describes.
func OpenStore(ctx context.Context, src config.Source) (datasource.ObjectStore, error) {
	switch src.Kind {
	case "file":
		if src.Dir == "" {
			return nil, fmt.Errorf("app: file source requires dir")
		}
		return file.NewLocal(src.Dir), nil
	case "s3", "":
		return newS3Store(ctx, s3ds.Config{
			Bucket:       src.Bucket,
			Region:       src.Region,
			Endpoint:     src.Endpoint,
			AccessKey:    src.AccessKey,
			SecretKey:    src.SecretKey,
			SessionToken: src.SessionToken,
			PathStyle:    src.PathStyle,
		})
	default:
		return nil, fmt.Errorf("app: unsupported source.kind=%s", src.Kind)
	}
}

// WarehouseConfig maps the warehouse section onto the storage factory
// config. Schema is left empty; the orchestrator sets it per pool.
func WarehouseConfig(w config.Warehouse) storage.Config {
	return storage.Config{
		Kind:        w.Kind,
		DSN:         w.DSN,
		MaxConns:    w.MaxConns,
		Account:     w.Account,
		User:        w.User,
		Password:    w.Password,
		Database:    w.Database,
		Warehouse:   w.Warehouse,
		Role:        w.Role,
		ForeignKeys: w.ForeignKeys,
	}
}

// MigrateOptions maps m onto orchestrator options.
func MigrateOptions(m config.Migration, logger *log.Logger) (migrate.Options, error) {
	strategy, err := schema.ParseStrategy(m.Runtime.SchemaStrategy)
	if err != nil {
		return migrate.Options{}, fmt.Errorf("app: %w", err)
	}
	policy, err := provision.ParsePolicy(m.Runtime.ProvisionPolicy)
	if err != nil {
		return migrate.Options{}, fmt.Errorf("app: %w", err)
	}
	return migrate.Options{
		Job:             m.Job,
		Prefix:          m.Source.Prefix,
		VertexFolder:    m.Source.VertexFolder,
		EdgeFolder:      m.Source.EdgeFolder,
		FetchWorkers:    m.Runtime.FetchWorkers,
		VertexWorkers:   m.Runtime.VertexWorkers,
		EdgeWorkers:     m.Runtime.EdgeWorkers,
		MaxRowsPerTable: m.Runtime.MaxRowsPerTable,
		TaskTimeout:     m.Runtime.TaskTimeout.D(),
		Strategy:        strategy,
		Policy:          policy,
		Warehouse:       WarehouseConfig(m.Warehouse),
		VertexSchema:    m.Warehouse.VertexSchema,
		EdgeSchema:      m.Warehouse.EdgeSchema,
		Logger:          logger,
	}, nil
}

// NewOrchestrator opens the store and builds an orchestrator for m.
func NewOrchestrator(ctx context.Context, m config.Migration, logger *log.Logger) (*migrate.Orchestrator, error) {
	store, err := OpenStore(ctx, m.Source)
	if err != nil {
		return nil, err
	}
	opts, err := MigrateOptions(m, logger)
	if err != nil {
		return nil, err
	}
	return migrate.New(store, opts), nil
}

// SetupMetrics installs the configured metrics backend and returns a func
// that flushes it. A backend that fails to initialize leaves the nop
// backend in place; the error is logged, not returned.
func SetupMetrics(job string, cfg config.Metrics, logger *log.Logger) func() {
	logger = logging.Or(logger)
	flush := func() {
		if err := metrics.Flush(); err != nil {
			logger.Warn("metrics flush", "err", err)
		}
	}

	switch cfg.Backend {
	case "prometheus", "pushgateway":
		b, err := prompush.NewBackend(job, cfg.PushgatewayURL)
		if err != nil {
			logger.Warn("metrics: prometheus backend disabled", "err", err)
			return func() {}
		}
		setBackend(b)
		logger.Info("metrics", "backend", "prometheus", "url", cfg.PushgatewayURL, "job", job)
		return flush

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       cfg.StatsdAddr,
			Namespace:  cfg.Namespace,
			GlobalTags: []string{"job:" + job},
		})
		if err != nil {
			logger.Warn("metrics: datadog backend disabled", "err", err)
			return func() {}
		}
		setBackend(b)
		logger.Info("metrics", "backend", "datadog", "addr", cfg.StatsdAddr, "job", job)
		return func() {
			flush()
			if err := b.Close(); err != nil {
				logger.Warn("metrics close", "err", err)
			}
		}

	case "", "none":
		logger.Debug("metrics disabled")
	default:
		logger.Warn("metrics: unknown backend; metrics disabled", "backend", cfg.Backend)
	}
	return func() {}
}
