package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/meldbuild/internal/watch"
)

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Group    string
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <document>",
		Short: "Run a document every time it is saved",
		Long: `Run the document once, then again whenever it changes on disk. Runs never
overlap, and edits a run makes to its own document do not start another
run. Script errors are reported and watching continues. Stop with Ctrl+C.`,
		Example: `  meldbuild watch notes/report.md --group draft`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Group, "group", "g", "", "Run only blocks tagged with this run group")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", watch.DefaultDebounce, "Wait this long after a change before running")

	return cmd
}

func runWatch(cmd *cobra.Command, docArg string, opts *WatchOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, docArg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintf(cc.Out, "Watching %s (Ctrl+C to stop)\n", cc.DocPath)
	w := watch.New(cc.DocPath, func(ctx context.Context) error {
		return runDocument(ctx, cc, opts.Group)
	}, watch.WithDebounce(opts.Debounce), watch.WithLogger(cc.Logger))
	return w.Watch(ctx)
}
