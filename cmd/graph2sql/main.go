// Command graph2sql migrates a graph export (NDJSON vertices and edges in an
// object store) into a relational warehouse.
//
// Configuration is layered: defaults, the JSON config file, .env and the
// process environment, then the flags below.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"graph2sql/internal/app"
	"graph2sql/internal/config"
	"graph2sql/internal/server"

	// register all backends with the storage factory.
	_ "graph2sql/internal/storage/all"
)

type flags struct {
	configPath     string
	envFile        string
	logLevel       string
	logFormat      string
	metricsBackend string
	pushgatewayURL string
	statsdAddr     string

	warehouseKind string
	dsn           string
	prefix        string
	sourceDir     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Getenv).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "graph2sql",
		Short:         "Migrate a graph export into a relational warehouse",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "migration config JSON path")
	pf.StringVar(&f.envFile, "env-file", "", ".env file to load (default ./.env when present)")
	pf.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&f.logFormat, "log-format", "", "log format (text, json, logfmt)")
	pf.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend (none, prometheus, datadog)")
	pf.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL")
	pf.StringVar(&f.statsdAddr, "statsd-addr", "", "DogStatsD address")
	pf.StringVar(&f.warehouseKind, "warehouse", "", "warehouse kind (postgres, sqlite, mssql, mysql, snowflake)")
	pf.StringVar(&f.dsn, "dsn", "", "warehouse DSN")
	pf.StringVar(&f.prefix, "prefix", "", "export prefix inside the bucket or directory")
	pf.StringVar(&f.sourceDir, "source-dir", "", "read the export from a local directory instead of S3")

	root.AddCommand(
		migrateCmd(f, getenv),
		tableExistsCmd(f, getenv),
		refsCmd(f, getenv),
		planCmd(f, getenv),
		serveCmd(f, getenv),
		validateCmd(f, getenv),
	)
	return root
}

// resolve builds the effective configuration and logger. It fails on
// configuration errors and logs warnings.
func resolve(f *flags, getenv func(string) string) (config.Migration, *log.Logger, error) {
	if err := config.LoadEnvFile(f.envFile); err != nil {
		return config.Migration{}, nil, err
	}
	m, err := config.Load(f.configPath)
	if err != nil {
		return m, nil, err
	}
	config.ApplyEnv(&m, getenv)
	f.apply(&m)
	config.ApplyDefaults(&m)

	logger, err := app.NewLogger(m.Log)
	if err != nil {
		return m, nil, err
	}
	issues := config.Validate(m)
	for _, iss := range issues {
		if iss.Severity == config.SeverityError {
			logger.Error("config", "path", iss.Path, "msg", iss.Message)
		} else {
			logger.Warn("config", "path", iss.Path, "msg", iss.Message)
		}
	}
	if config.HasErrors(issues) {
		return m, logger, fmt.Errorf("configuration is invalid: %d issue(s)", len(issues))
	}
	return m, logger, nil
}

func (f *flags) apply(m *config.Migration) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&m.Log.Level, f.logLevel)
	set(&m.Log.Format, f.logFormat)
	set(&m.Metrics.Backend, f.metricsBackend)
	set(&m.Metrics.PushgatewayURL, f.pushgatewayURL)
	set(&m.Metrics.StatsdAddr, f.statsdAddr)
	set(&m.Warehouse.Kind, f.warehouseKind)
	set(&m.Warehouse.DSN, f.dsn)
	set(&m.Source.Prefix, f.prefix)
	if f.sourceDir != "" {
		m.Source.Kind = "file"
		m.Source.Dir = f.sourceDir
	}
}

func migrateCmd(f *flags, getenv func(string) string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run the vertex and edge phases and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, logger, err := resolve(f, getenv)
			if err != nil {
				return err
			}
			flush := app.SetupMetrics(m.Job, m.Metrics, logger)
			defer flush()

			o, err := app.NewOrchestrator(cmd.Context(), m, logger)
			if err != nil {
				return err
			}
			res, runErr := o.Run(cmd.Context())
			if res != nil {
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			}
			return runErr
		},
	}
}

func tableExistsCmd(f *flags, getenv func(string) string) *cobra.Command {
	return &cobra.Command{
		Use:   "table-exists <table>",
		Short: "Report whether a table exists in the vertex schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, logger, err := resolve(f, getenv)
			if err != nil {
				return err
			}
			o, err := app.NewOrchestrator(cmd.Context(), m, logger)
			if err != nil {
				return err
			}
			ok, err := o.TableExists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
}

func refsCmd(f *flags, getenv func(string) string) *cobra.Command {
	return &cobra.Command{
		Use:   "refs",
		Short: "Print the endpoint tables each edge group resolves to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, logger, err := resolve(f, getenv)
			if err != nil {
				return err
			}
			o, err := app.NewOrchestrator(cmd.Context(), m, logger)
			if err != nil {
				return err
			}
			refs, err := o.EdgeRefs(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), refs)
		},
	}
}

func planCmd(f *flags, getenv func(string) string) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the DDL a migration would issue, without connecting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, logger, err := resolve(f, getenv)
			if err != nil {
				return err
			}
			o, err := app.NewOrchestrator(cmd.Context(), m, logger)
			if err != nil {
				return err
			}
			plan, err := o.Plan(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), plan)
		},
	}
}

func serveCmd(f *flags, getenv func(string) string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the migration routes over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, logger, err := resolve(f, getenv)
			if err != nil {
				return err
			}
			if addr != "" {
				m.Server.Addr = addr
			}
			flush := app.SetupMetrics(m.Job, m.Metrics, logger)
			defer flush()

			return server.New(server.Options{Migration: m, Logger: logger}).Start(cmd.Context(), m.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8080)")
	return cmd
}

func validateCmd(f *flags, getenv func(string) string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := resolve(f, getenv)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: job=%s warehouse=%s\n", m.Job, m.Warehouse.Kind)
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
