package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/meldbuild/internal/template"
	"github.com/leapstack-labs/meldbuild/pkg/core"
)

// RenderOptions holds options for the render command.
type RenderOptions struct {
	Dataset string
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render <document> <block>",
		Short: "Render a template block of a document",
		Long: `Render a consumable code block as a template, the way ctx.render does.
The block is chosen by its section name or by its 1-based position among
the consumable blocks. With --dataset the template data is that dataset's
rows as a list of dicts.`,
		Example: `  # Render the block under the "Summary" heading
  meldbuild render notes/report.md Summary

  # Render the first consumable block against the people table
  meldbuild render notes/report.md 1 --dataset people`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Dataset, "dataset", "d", "", "Dataset to render against")

	return cmd
}

func runRender(cmd *cobra.Command, docArg, blockRef string, opts *RenderOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, docArg)
	if err != nil {
		return err
	}
	defer cleanup()

	op, err := cc.Compiler.Compile(cmd.Context(), cc.Doc, "")
	if err != nil {
		return err
	}
	block, err := findBlock(op.Consumable, blockRef)
	if err != nil {
		return err
	}

	var data any
	if opts.Dataset != "" {
		ds, ok := op.Data.Get(opts.Dataset)
		if !ok {
			return fmt.Errorf("no dataset named %q", opts.Dataset)
		}
		data = records(ds)
	}

	out, err := template.NewEngine(template.WithEngineLogger(cc.Logger)).Render(block.Name, block.Content, data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cc.Out, out)
	return err
}

// findBlock picks a block by 1-based position or by name, ignoring case.
func findBlock(blocks []core.NamedCodeBlock, ref string) (core.NamedCodeBlock, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(blocks) {
			return core.NamedCodeBlock{}, fmt.Errorf("block %d out of range: the document has %d consumable block(s)", n, len(blocks))
		}
		return blocks[n-1], nil
	}
	for _, b := range blocks {
		if strings.EqualFold(b.Name, ref) {
			return b, nil
		}
	}
	return core.NamedCodeBlock{}, fmt.Errorf("no consumable block named %q", ref)
}

// records converts ds into template data.
func records(ds *core.DataSet) []any {
	out := make([]any, 0, ds.Len())
	for _, row := range ds.Rows {
		rec := make(map[string]any, row.Len())
		for _, k := range row.Keys() {
			v, _ := row.Get(k)
			rec[k] = v.Any()
		}
		out = append(out, rec)
	}
	return out
}
