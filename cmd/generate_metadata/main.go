package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"schemameta/config"
	"schemameta/db"
	"schemameta/metadata"
	"schemameta/plugins/llm"
)

const defaultEnvFile = ".env"

func main() {
	v := viper.New()
	rootCmd, err := newRootCmd(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate_metadata: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logFailure(v, err)
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the command with its flags bound into v. Errors are
// returned, never printed; main reports them once through logFailure.
func newRootCmd(v *viper.Viper) (*cobra.Command, error) {
	var configFile string
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "generate_metadata",
		Short: "Generate per-table metadata files from a schema DDL using an LLM",
		Long: `generate_metadata sends the DDL of one database to a language model and
writes one {database}_{table}.txt file per METADATA block in the answer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			if err := config.ReadFile(v, configFile); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	flags := rootCmd.Flags()
	flags.String(config.KeyDBName, "", "Name of the database the DDL describes")
	flags.String(config.KeyDDLFile, "", "Path to the file holding the DDL")
	flags.String(config.KeyChannel, config.DefaultChannel, "Data source channel, e.g. sqlite")
	flags.String(config.KeyOutputDir, config.DefaultOutputDir, "Directory for the generated metadata files")
	flags.String(config.KeyProvider, config.ProviderBedrock, "Model provider: bedrock, anthropic or http")
	flags.String(config.KeyModelID, "", "Model identifier (defaults per provider)")
	flags.String(config.KeyRegion, config.DefaultRegion, "AWS region for the bedrock provider")
	flags.String(config.KeyEndpoint, "", "Messages endpoint URL for the http provider")
	flags.Int(config.KeyMaxTokens, config.DefaultMaxTokens, "Maximum tokens in the model answer")
	flags.Int(config.KeyMaxDDLBytes, config.DefaultMaxDDLBytes, "Largest DDL accepted in bytes, 0 for no limit")
	flags.String(config.KeyDDLSizePolicy, config.SizePolicyReject, "What to do with an oversized DDL: reject or truncate")
	flags.String(config.KeyOnParseError, config.ParsePolicyAbort, "What to do with a malformed record: abort or skip")
	flags.Duration(config.KeyTimeout, 0, "Timeout for the model call, 0 for none")
	flags.String(config.KeyHistoryDB, "", "SQLite file recording runs and audit events (optional)")
	flags.String(config.KeyLogLevel, "info", "Log level: debug, info, warn or error")
	flags.StringVar(&configFile, "config", "", "YAML config file")
	flags.StringVar(&envFile, "env_file", defaultEnvFile, "Dotenv file loaded before reading the environment")

	if err := rootCmd.MarkFlagRequired(config.KeyDBName); err != nil {
		return nil, err
	}
	if err := rootCmd.MarkFlagRequired(config.KeyDDLFile); err != nil {
		return nil, err
	}

	config.SetDefaults(v)
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	if err := config.BindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	return rootCmd, nil
}

// logFailure is the single place a failed run is reported.
func logFailure(v *viper.Viper, err error) {
	logger, lerr := config.NewLogger(v.GetString(config.KeyLogLevel))
	if lerr != nil {
		logger, lerr = config.NewLogger("info")
		if lerr != nil {
			fmt.Fprintf(os.Stderr, "generate_metadata: %v\n", err)
			return
		}
	}
	logger.Errorw("generate_metadata failed", "error", err)
	_ = logger.Sync()
}

func run(cmd *cobra.Command, cfg config.Config) error {
	ctx := cmd.Context()

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	invoker, err := llm.New(ctx, cfg)
	if err != nil {
		return err
	}

	var history metadata.RunRecorder
	if cfg.HistoryDB != "" {
		gdb, err := db.BootstrapSQLite(cfg.HistoryDB)
		if err != nil {
			return err
		}
		store := db.NewSQLStore(gdb)
		if err := store.Ping(ctx); err != nil {
			return err
		}
		history = store
		logger.Debugw("recording run history", "path", cfg.HistoryDB)
	}

	gen := &metadata.Generator{
		Config:  cfg,
		FS:      afero.NewOsFs(),
		Invoker: invoker,
		History: history,
		Logger:  logger,
		Out:     cmd.OutOrStdout(),
	}
	res, err := gen.Run(ctx)
	if err != nil {
		return fmt.Errorf("run %s: %w", res.RunID, err)
	}
	logger.Infow("metadata generated",
		"run_id", res.RunID,
		"written", len(res.Written),
		"skipped", len(res.Skipped),
		"output_dir", cfg.OutputDir,
	)
	return nil
}
