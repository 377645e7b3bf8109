package parser

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/meldbuild/pkg/core"
)

// delimiterCell matches one cell of a delimiter row such as ":--" or "--:".
var delimiterCell = regexp.MustCompile(`^:?-+:?$`)

// parseTable converts Markdown table lines into a DataSet. The first line is
// the header; delimiter rows and rows still wrapped in pipes after stripping
// are skipped.
func parseTable(lines []string) *core.DataSet {
	var rows []string
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		rows = append(rows, stripPipes(l))
	}
	if len(rows) == 0 {
		return core.NewDataSet(nil)
	}

	ds := core.NewDataSet(strings.Split(rows[0], "|"))
	for _, row := range rows[1:] {
		if strings.HasPrefix(row, "---") || isDelimiterRow(row) {
			continue
		}
		if strings.HasPrefix(row, "|") && strings.HasSuffix(row, "|") {
			continue
		}
		ds.AppendCells(coerceCells(strings.Split(row, "|")))
	}
	return ds
}

func isDelimiterRow(row string) bool {
	for _, cell := range strings.Split(row, "|") {
		if !delimiterCell.MatchString(strings.TrimSpace(cell)) {
			return false
		}
	}
	return true
}

// stripPipes trims a table line and removes one leading and one trailing pipe.
func stripPipes(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	return strings.TrimSpace(line)
}

func coerceCells(cells []string) []core.Value {
	values := make([]core.Value, len(cells))
	for i, c := range cells {
		values[i] = CoerceValue(c)
	}
	return values
}

// ParseCSV parses comma separated text. The first non-blank line is the
// header; blank lines are skipped. Empty input yields an empty DataSet.
func ParseCSV(text string) *core.DataSet {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return core.NewDataSet(nil)
	}

	ds := core.NewDataSet(strings.Split(lines[0], ","))
	for _, l := range lines[1:] {
		ds.AppendCells(coerceCells(strings.Split(l, ",")))
	}
	return ds
}
