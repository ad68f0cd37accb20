package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"schemameta/config"
	"schemameta/db"
)

const (
	channelSQLite   = "sqlite"
	channelPostgres = "postgres"
	defaultSchema   = "public"
)

func main() {
	var channel, source, schema, out, logLevel string

	rootCmd := &cobra.Command{
		Use:          "dump_ddl",
		Short:        "Write the DDL of a live database to a file for generate_metadata",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := config.NewLogger(logLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ddl, err := dump(cmd.Context(), logger, channel, source, schema)
			if err != nil {
				return err
			}
			if ddl == "" {
				logger.Warnw("no tables found", "channel", channel, "source", source)
			}
			if out == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), ddl)
				return err
			}
			if err := afero.WriteFile(afero.NewOsFs(), out, []byte(ddl), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			logger.Infow("ddl written", "path", out, "bytes", len(ddl))
			return nil
		},
	}

	rootCmd.Flags().StringVar(&channel, "channel", channelSQLite, "Source database kind: sqlite or postgres")
	rootCmd.Flags().StringVar(&source, "source", "", "SQLite file path or Postgres connection string")
	rootCmd.Flags().StringVar(&schema, "schema", defaultSchema, "Postgres schema to dump")
	rootCmd.Flags().StringVar(&out, "out", "", "Output file (default stdout)")
	rootCmd.Flags().StringVar(&logLevel, "log_level", "info", "Log level")
	_ = rootCmd.MarkFlagRequired("source")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func dump(ctx context.Context, logger *zap.SugaredLogger, channel, source, schema string) (string, error) {
	switch channel {
	case channelSQLite:
		gdb, err := db.OpenSQLiteSource(afero.NewOsFs(), source)
		if err != nil {
			return "", err
		}
		logger.Debugw("dumping sqlite schema", "path", source)
		return db.DumpSQLiteDDL(ctx, gdb)
	case channelPostgres:
		pool, err := db.OpenPostgres(ctx, source)
		if err != nil {
			return "", err
		}
		defer pool.Close()
		logger.Debugw("dumping postgres schema", "schema", schema)
		return db.DumpPostgresDDL(ctx, pool, schema)
	default:
		return "", fmt.Errorf("unknown channel %q, want %s or %s", channel, channelSQLite, channelPostgres)
	}
}
