package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/meldbuild/internal/history"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history [document]",
		Short: "List recorded runs",
		Long: `List the runs recorded in the run history database, newest first. Runs
are recorded while history.enabled is set. Given a document, only its runs
are listed.`,
		Example: `  meldbuild history
  meldbuild history notes/report.md --limit 5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Show at most this many runs (0 = all)")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string, opts *HistoryOptions) error {
	var path, doc string
	if len(args) == 1 {
		cc, cleanup, err := NewCommandContext(cmd, args[0])
		if err != nil {
			return err
		}
		defer cleanup()
		path, doc = cc.Cfg.History.Path, cc.Doc
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err := getConfig(cmd.Context(), cwd)
		if err != nil {
			return err
		}
		path = cfg.History.Path
	}

	if _, err := os.Stat(path); err != nil {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No run history at %s\n", filepath.Clean(path))
		return nil
	}

	runs := history.NewSQLiteStore(nil)
	if err := runs.Open(path); err != nil {
		return err
	}
	defer func() { _ = runs.Close() }()

	list, err := runs.ListRuns(cmd.Context(), doc, opts.Limit)
	if err != nil {
		return err
	}

	td := tableData{Title: "Runs", Columns: []string{"Run", "Document", "Group", "Status", "Started", "Duration", "Error"}}
	for _, r := range list {
		duration := ""
		if r.CompletedAt != nil {
			duration = r.Duration().Round(time.Millisecond).String()
		}
		td.Rows = append(td.Rows, []string{
			r.ID, r.Document, r.Group, string(r.Status),
			r.StartedAt.Local().Format(time.DateTime), duration, r.Error,
		})
	}
	return renderTables(cmd.OutOrStdout(), outputFormat(cmd), td)
}
