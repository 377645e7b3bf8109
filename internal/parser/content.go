package parser

import (
	"strings"

	"github.com/leapstack-labs/meldbuild/pkg/core"
)

// ApplyDocumentContent scans a raw Markdown blob line by line and merges its
// tables into collection and its code blocks into blocks. Tables before any
// heading are stored under name. Blocks are appended only when p.Accept
// allows them.
func (p *Parser) ApplyDocumentContent(name, text string, collection *core.DataSetCollection, blocks *[]core.NamedCodeBlock) {
	lines := strings.Split(text, "\n")
	heading := ""

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if marker := openingFence(line); marker != "" {
			start := i
			i++
			for i < len(lines) && !isClosingFence(lines[i], marker) {
				i++
			}
			end := min(i+1, len(lines))
			block, ok := parseFence(lines[start:end], orDefault(heading, name))
			if ok && (p.Accept == nil || p.Accept(block)) {
				*blocks = append(*blocks, block)
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "#"):
			heading = headingText(line)
		case strings.HasPrefix(line, "|"):
			start := i
			for i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), "|") {
				i++
			}
			collection.Put(orDefault(heading, name), parseTable(lines[start:i]))
			i--
		}
	}
}

// openingFence returns the fence characters that open a code block on line,
// or "". A fence without a language still hides its body from the scan.
func openingFence(line string) string {
	if m := fencePattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return bareFencePattern.FindString(line)
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
