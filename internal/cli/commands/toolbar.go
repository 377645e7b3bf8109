package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/meldbuild/internal/compiler"
)

// NewToolbarCommand creates the toolbar command.
func NewToolbarCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "toolbar <document>",
		Short: "List the toolbar buttons of a document",
		Long: `List the buttons declared in the document's toolbar blocks. Run buttons are
numbered for use with "meldbuild run --button N".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd, args[0])
			if err != nil {
				return err
			}
			defer cleanup()

			op, err := cc.Compiler.Compile(cmd.Context(), cc.Doc, "")
			if err != nil {
				return err
			}

			td := tableData{Title: "Toolbar", Columns: []string{"Button", "ID", "Label", "Params"}}
			n := 0
			for _, b := range op.Toolbar {
				num := ""
				if b.ID == compiler.ButtonRun {
					n++
					num = strconv.Itoa(n)
				}
				td.Rows = append(td.Rows, []string{num, b.ID, b.Label, strings.Join(b.Params, " | ")})
			}
			return renderTables(cc.Out, outputFormat(cmd), td)
		},
	}
}
