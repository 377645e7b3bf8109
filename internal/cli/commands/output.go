package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// Output formats accepted by --output.
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// OutputFormats lists the values accepted by --output.
var OutputFormats = []string{FormatTable, FormatMarkdown, FormatCSV, FormatJSON}

// outputFormat reads the --output flag, defaulting to a table.
func outputFormat(cmd *cobra.Command) string {
	if f := cmd.Flags().Lookup("output"); f != nil && f.Value.String() != "" {
		return f.Value.String()
	}
	return FormatTable
}

// tableData is one titled table of cells.
type tableData struct {
	Title   string     `json:"title,omitempty"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// renderTables writes tables in the requested format.
func renderTables(w io.Writer, format string, tables ...tableData) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tables)
	case FormatTable, FormatMarkdown, FormatCSV:
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	for i, td := range tables {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		t := table.NewWriter()
		t.SetStyle(table.StyleLight)
		if td.Title != "" && format == FormatTable {
			t.SetTitle(td.Title)
		}
		header := make(table.Row, len(td.Columns))
		for j, c := range td.Columns {
			header[j] = c
		}
		t.AppendHeader(header)
		for _, r := range td.Rows {
			row := make(table.Row, len(r))
			for j, c := range r {
				row[j] = c
			}
			t.AppendRow(row)
		}

		var out string
		switch format {
		case FormatMarkdown:
			if td.Title != "" {
				out = "### " + td.Title + "\n\n"
			}
			out += t.RenderMarkdown()
		case FormatCSV:
			out = t.RenderCSV()
		default:
			out = t.Render()
		}
		_, _ = fmt.Fprintln(w, out)
		if format == FormatTable {
			_, _ = fmt.Fprintf(w, "(%d rows)\n", len(td.Rows))
		}
	}
	return nil
}
