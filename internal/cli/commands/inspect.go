package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/meldbuild/internal/parser"
	"github.com/leapstack-labs/meldbuild/pkg/core"
)

// Block roles shown by inspect.
const (
	roleRunnable   = "runnable"
	roleConsumable = "consumable"
	roleToolbar    = "toolbar"
)

// InspectOptions holds options for the inspect command.
type InspectOptions struct {
	Group   string
	Dataset string
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	opts := &InspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <document>",
		Short: "Show the datasets and code blocks of a document",
		Long: `Parse a document and list what a run would see: the datasets built from
its tables and CSV blocks, and every code block with the role it plays
(runnable script, consumable by ctx.blocks, or toolbar).`,
		Example: `  # Summarise a document
  meldbuild inspect notes/report.md

  # Show the rows of one dataset as Markdown
  meldbuild inspect notes/report.md --dataset people -o markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Group, "group", "g", "", "Classify blocks for this run group")
	cmd.Flags().StringVarP(&opts.Dataset, "dataset", "d", "", "Show the rows of this dataset")

	return cmd
}

func runInspect(cmd *cobra.Command, docArg string, opts *InspectOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, docArg)
	if err != nil {
		return err
	}
	defer cleanup()

	op, err := cc.Compiler.Compile(cmd.Context(), cc.Doc, opts.Group)
	if err != nil {
		return err
	}

	if opts.Dataset != "" {
		ds, ok := op.Data.Get(opts.Dataset)
		if !ok {
			return fmt.Errorf("no dataset named %q (have: %s)", opts.Dataset, strings.Join(op.Data.Names(), ", "))
		}
		return renderTables(cc.Out, outputFormat(cmd), datasetTable(core.Normalize(opts.Dataset), ds))
	}

	datasets := tableData{Title: "Datasets", Columns: []string{"Name", "Columns", "Rows"}}
	for _, name := range op.Data.Names() {
		ds, _ := op.Data.Get(name)
		datasets.Rows = append(datasets.Rows, []string{name, strings.Join(ds.Columns, ", "), strconv.Itoa(ds.Len())})
	}

	blocks := tableData{Title: "Code blocks", Columns: []string{"#", "Name", "Language", "Params", "Role"}}
	_, all := parser.New(op.Document.Name).Parse(op.Document.Text)
	for i, b := range all {
		blocks.Rows = append(blocks.Rows, []string{
			strconv.Itoa(i + 1),
			b.Name,
			b.Info.Language,
			strings.Join(b.Info.Params, " "),
			blockRole(cc, b, opts.Group),
		})
	}

	return renderTables(cc.Out, outputFormat(cmd), datasets, blocks)
}

func blockRole(cc *CommandContext, b core.NamedCodeBlock, group string) string {
	switch {
	case cc.Compiler.IsRunnable(b.Info, group):
		return roleRunnable
	case cc.Compiler.IsConsumable(b.Info, group):
		return roleConsumable
	default:
		return roleToolbar
	}
}

// datasetTable lays out the rows of ds under its columns.
func datasetTable(name string, ds *core.DataSet) tableData {
	td := tableData{Title: name, Columns: ds.Columns}
	for _, row := range ds.Rows {
		cells := make([]string, len(ds.Columns))
		for i, col := range ds.Columns {
			if v, ok := row.Get(col); ok {
				cells[i] = v.String()
			}
		}
		td.Rows = append(td.Rows, cells)
	}
	return td
}
