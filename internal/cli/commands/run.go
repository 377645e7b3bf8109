package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/meldbuild/internal/compiler"
	"github.com/leapstack-labs/meldbuild/internal/history"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Group  string
	Button int
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <document>",
		Short: "Run the script blocks of a document",
		Long: `Compile a Markdown document and run its script blocks.

Script blocks are fenced blocks in a script language whose first parameter
is the activation tag. With --group only blocks carrying that tag as well
are run. --button runs the way the N-th run button of the document's
toolbar does.`,
		Example: `  # Run every script block
  meldbuild run notes/report.md

  # Run only the blocks tagged "publish"
  meldbuild run notes/report.md --group publish

  # Run what the second toolbar button runs
  meldbuild run notes/report.md --button 2`,
		Aliases: []string{"build"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Group, "group", "g", "", "Run only blocks tagged with this run group")
	cmd.Flags().IntVarP(&opts.Button, "button", "b", 0, "Run as the N-th toolbar run button (1-based)")
	cmd.MarkFlagsMutuallyExclusive("group", "button")

	return cmd
}

func runRun(cmd *cobra.Command, docArg string, opts *RunOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, docArg)
	if err != nil {
		return err
	}
	defer cleanup()

	group := opts.Group
	if opts.Button > 0 {
		op, err := cc.Compiler.Compile(cmd.Context(), cc.Doc, "")
		if err != nil {
			return err
		}
		button, err := runButton(op.Toolbar, opts.Button)
		if err != nil {
			return err
		}
		group = button.RunGroup()
	}

	return runDocument(cmd.Context(), cc, group)
}

// runDocument compiles the document afresh and runs it, recording the run
// when run history is enabled.
func runDocument(ctx context.Context, cc *CommandContext, group string) error {
	op, err := cc.Compiler.Compile(ctx, cc.Doc, group)
	if err != nil {
		return err
	}
	if cc.History == nil || !op.HasCode() {
		return op.Run(ctx)
	}

	if _, err := cc.History.CreateRun(ctx, op.RunID, cc.Doc, group); err != nil {
		cc.Logger.Warn("run history unavailable", slog.String("error", err.Error()))
		return op.Run(ctx)
	}

	runErr := op.Run(ctx)
	status, msg := history.RunStatusCompleted, ""
	switch {
	case ctx.Err() != nil:
		status, msg = history.RunStatusCancelled, ctx.Err().Error()
	case runErr != nil:
		status, msg = history.RunStatusFailed, runErr.Error()
	}
	if err := cc.History.CompleteRun(context.WithoutCancel(ctx), op.RunID, status, msg); err != nil {
		cc.Logger.Warn("record run result", slog.String("run_id", op.RunID), slog.String("error", err.Error()))
	}
	return runErr
}

// runButton returns the n-th run button, counting from 1.
func runButton(buttons []compiler.Button, n int) (compiler.Button, error) {
	seen := 0
	for _, b := range buttons {
		if b.ID != compiler.ButtonRun {
			continue
		}
		seen++
		if seen == n {
			return b, nil
		}
	}
	return compiler.Button{}, fmt.Errorf("the toolbar has %d run button(s), no button %d", seen, n)
}
