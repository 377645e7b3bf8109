package commands

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/meldbuild/internal/markers"
)

// MarkersOptions holds options for the markers commands.
type MarkersOptions struct {
	Target      string
	KeepUnknown bool
}

// NewMarkersCommand creates the markers command and its set subcommand.
func NewMarkersCommand() *cobra.Command {
	opts := &MarkersOptions{}

	cmd := &cobra.Command{
		Use:   "markers <document>",
		Short: "List the marker regions of a document",
		Long: `List every marker region (%%name=%%value%%=name%%) of a document, or of the
file given with --target, in document order. Delimiters come from the
markers section of the configuration.`,
		Example: `  meldbuild markers notes/report.md
  meldbuild markers notes/report.md --target notes/summary.md -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarkersList(cmd, args[0], opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Target, "target", "", "File holding the markers (default: the document)")

	set := &cobra.Command{
		Use:   "set <document> name=value...",
		Short: "Rewrite marker values",
		Long: `Stage name=value pairs and apply them to the target file. A bare name
clears that marker. Markers that are not named are cleared as well unless
--keep-unknown is given.`,
		Example: `  meldbuild markers set notes/report.md total=42 updated=2024-05-01
  meldbuild markers set notes/report.md status=done --keep-unknown`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarkersSet(cmd, args[0], args[1:], opts)
		},
	}
	set.Flags().BoolVar(&opts.KeepUnknown, "keep-unknown", false, "Leave markers that are not named untouched")
	cmd.AddCommand(set)

	return cmd
}

// newMarkerEngine builds a marker engine for the document, retargeted when
// a target path was given.
func newMarkerEngine(cc *CommandContext, target string) (*markers.Engine, error) {
	eng := markers.New(cc.Store, cc.Doc,
		markers.WithDelimiters(cc.Cfg.Markers),
		markers.WithLogger(cc.Logger),
	)
	if target != "" {
		abs, err := filepath.Abs(target)
		if err != nil {
			return nil, err
		}
		rel, err := cc.Store.Rel(abs)
		if err != nil {
			return nil, fmt.Errorf("target is outside the store root: %w", err)
		}
		eng.TargetFile(rel)
	}
	return eng, nil
}

func runMarkersList(cmd *cobra.Command, docArg string, opts *MarkersOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, docArg)
	if err != nil {
		return err
	}
	defer cleanup()

	eng, err := newMarkerEngine(cc, opts.Target)
	if err != nil {
		return err
	}
	values, err := eng.Fetch(cmd.Context())
	if err != nil {
		return err
	}

	td := tableData{Title: "Markers in " + eng.Target(), Columns: []string{"Pos", "Name", "Value"}}
	for _, v := range values {
		td.Rows = append(td.Rows, []string{strconv.Itoa(v.Pos), v.Name, v.Value})
	}
	return renderTables(cc.Out, outputFormat(cmd), td)
}

func runMarkersSet(cmd *cobra.Command, docArg string, assignments []string, opts *MarkersOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, docArg)
	if err != nil {
		return err
	}
	defer cleanup()

	eng, err := newMarkerEngine(cc, opts.Target)
	if err != nil {
		return err
	}
	for _, a := range assignments {
		name, value := parseAssignment(a)
		if name == "" {
			return fmt.Errorf("invalid assignment %q: want name=value", a)
		}
		eng.Set(name, value)
	}

	changes, err := eng.Apply(cmd.Context(), !opts.KeepUnknown)
	if err != nil {
		return err
	}

	td := tableData{Title: "Changes in " + eng.Target(), Columns: []string{"Pos", "Name", "Old", "New"}}
	for _, c := range changes {
		td.Rows = append(td.Rows, []string{strconv.Itoa(c.Pos), c.Name, c.Old, c.New})
	}
	return renderTables(cc.Out, outputFormat(cmd), td)
}

// parseAssignment splits "name=value". A bare name yields a nil value.
func parseAssignment(s string) (string, *string) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok {
		return name, nil
	}
	return name, &value
}
