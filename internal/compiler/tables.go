package compiler

import (
	"errors"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	starctx "github.com/leapstack-labs/meldbuild/internal/starlark"
	"github.com/leapstack-labs/meldbuild/pkg/core"
)

var errTableArgs = errors.New("invalid args for markdown table")

func (rc *runContext) mdModule() starlark.Value {
	return &starlarkstruct.Module{
		Name: "md",
		Members: starlark.StringDict{
			"table":     starlark.NewBuiltin("table", tableBuiltin),
			"from_html": starlark.NewBuiltin("from_html", fromHTMLBuiltin),
		},
	}
}

// fromHTMLBuiltin implements md.from_html(html), converting an HTML
// fragment to Markdown.
func fromHTMLBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var html string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "html", &html); err != nil {
		return nil, err
	}
	out, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.String(out), nil
}

// tableBuiltin implements md.table(dataset) and md.table(headings, rows).
func tableBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var first starlark.Value
	var second starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "data", &first, "rows?", &second); err != nil {
		return nil, err
	}

	if ds, ok := first.(*starctx.DataSet); ok {
		headings, rows := datasetCells(ds.Unwrap())
		return starlark.String(MarkdownTable(headings, rows)), nil
	}

	headings := textList(first)
	if _, ok := first.(starlark.Iterable); !ok || second == starlark.None {
		return nil, errTableArgs
	}
	rowsIter, ok := second.(starlark.Iterable)
	if !ok {
		return nil, errTableArgs
	}

	var rows [][]string
	it := rowsIter.Iterate()
	defer it.Done()
	var row starlark.Value
	for it.Next(&row) {
		rows = append(rows, textList(row))
	}
	return starlark.String(MarkdownTable(headings, rows)), nil
}

func datasetCells(ds *core.DataSet) ([]string, [][]string) {
	rows := make([][]string, 0, ds.Len())
	for _, r := range ds.Rows {
		cells := make([]string, len(ds.Columns))
		for i, col := range ds.Columns {
			if v, ok := r.Get(col); ok {
				cells[i] = starctx.ToText(starctx.ValueToStarlark(v))
			}
		}
		rows = append(rows, cells)
	}
	return ds.Columns, rows
}

// MarkdownTable renders a pipe table surrounded by blank lines. A heading
// starting with "<" is left aligned, ">" right aligned and any other heading
// centred.
func MarkdownTable(headings []string, rows [][]string) string {
	var header, format strings.Builder
	header.WriteByte('|')
	format.WriteByte('|')
	for _, h := range headings {
		left, right := ":", ":"
		switch {
		case strings.HasPrefix(h, "<"):
			right = " "
			h = h[1:]
		case strings.HasPrefix(h, ">"):
			left = " "
			h = h[1:]
		}
		header.WriteString(" " + h + " |")
		format.WriteString(left + strings.Repeat("-", len(h)) + right + "|")
	}

	lines := []string{"", header.String(), format.String()}
	for _, r := range rows {
		lines = append(lines, "| "+strings.Join(r, " | ")+" |")
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}
