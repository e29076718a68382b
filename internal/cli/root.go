// Package cli implements the dbproc command line tool.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/ignaciocaff/dbproc"
	"github.com/ignaciocaff/dbproc/internal/config"
	"github.com/ignaciocaff/dbproc/internal/logging"
)

// Version is set at build time.
var Version = "0.1.0"

// openDB is replaced in tests.
var openDB = sqlx.Open

type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "dbproc",
		Short: "Inspect and call stored functions and procedures",
		Long: `dbproc lists the stored functions and procedures of a MySQL, PostgreSQL
or Oracle schema and calls them with positional or named arguments.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./dbproc.yaml)")
	flags.String("driver", "", "database/sql driver name (mysql, pgx, postgres, oracle)")
	flags.String("dsn", "", "data source name")
	flags.String("schema", "", "schema to inspect (default: the connection's current schema)")
	flags.String("prefix", "", "prefix prepended to routine names on lookup")
	flags.String("log-level", "", "log level (trace|debug|info|warn|error|disabled)")
	flags.StringP("output", "o", "", "output format (table|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("driver", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"mysql", "pgx", "postgres", "oracle"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newDescribeCommand())
	rootCmd.AddCommand(newCallCommand())
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func getConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{LogLevel: config.DefaultLogLevel, Output: config.DefaultOutput}
}

// wrap opens the configured database and wraps it. The returned func
// closes the connection.
func wrap(cmd *cobra.Command) (*dbproc.Wrapper, func(), error) {
	cfg := getConfig(cmd.Context())
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := logging.NewWithComponent(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
		Output: cmd.ErrOrStderr(),
	}, "cli")

	db, err := openDB(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s connection: %w", cfg.Driver, err)
	}
	cleanup := func() { _ = db.Close() }

	w, err := dbproc.Wrap(cmd.Context(), db,
		dbproc.WithSchema(cfg.Schema),
		dbproc.WithPrefix(cfg.Prefix),
		dbproc.WithLogger(logger),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Debug().Str("dialect", w.Dialect()).Str("schema", w.Schema()).Msg("connected")
	return w, cleanup, nil
}
