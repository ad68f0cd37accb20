package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"schemameta/db"
	"schemameta/model"
)

const defaultLimit = 20

func main() {
	var historyDB, runID string
	var limit int

	rootCmd := &cobra.Command{
		Use:          "run_history",
		Short:        "Show generate_metadata runs recorded in a history database",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(cmd.Context(), afero.NewOsFs(), cmd.OutOrStdout(), historyDB, runID, limit)
		},
	}

	rootCmd.Flags().StringVar(&historyDB, "history_db", "", "SQLite history file written by generate_metadata")
	rootCmd.Flags().StringVar(&runID, "run", "", "Show the audit trail of one run")
	rootCmd.Flags().IntVar(&limit, "limit", defaultLimit, "Number of runs to list, 0 for all")
	_ = rootCmd.MarkFlagRequired("history_db")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// report opens the history file read side, checks it answers and renders
// either the run list or one run's audit trail.
func report(ctx context.Context, fsys afero.Fs, w io.Writer, historyDB, runID string, limit int) error {
	gdb, err := db.OpenSQLiteSource(fsys, historyDB)
	if err != nil {
		return err
	}
	store := db.NewSQLStore(gdb)
	if err := store.Ping(ctx); err != nil {
		return err
	}
	if runID != "" {
		return showRun(w, store, runID)
	}
	return listRuns(w, store, limit)
}

func listRuns(w io.Writer, store db.Store, limit int) error {
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Database", "Provider", "Status", "Written", "Skipped", "Error"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.RunID,
			r.CreatedAt.Format(time.DateTime),
			r.DatabaseName,
			r.Provider,
			r.Status,
			r.RecordsWritten,
			r.RecordsSkipped,
			r.Error,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "", fmt.Sprintf("%d run(s)", len(runs))})
	t.Render()
	return nil
}

func showRun(w io.Writer, store db.Store, runID string) error {
	run, err := store.GetRun(runID)
	if errors.Is(err, db.ErrRunNotFound) {
		return fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return err
	}
	logs, err := store.ListAuditLogs(runID)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("%s  %s  %s  %s", run.RunID, run.DatabaseName, run.ModelID, statusLabel(run))
	t.AppendHeader(table.Row{"Time", "Action", "Table", "Path", "Message"})
	for _, l := range logs {
		t.AppendRow(table.Row{l.CreatedAt.Format(time.TimeOnly), l.Action, l.TableName, l.Path, l.Message})
	}
	t.Render()
	return nil
}

func statusLabel(run *model.Run) string {
	if run.FinishedAt == nil {
		return string(run.Status)
	}
	return fmt.Sprintf("%s in %s", run.Status, run.FinishedAt.Sub(run.CreatedAt).Round(time.Millisecond))
}
