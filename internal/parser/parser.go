// Package parser extracts typed datasets and classified code blocks from
// Markdown documents.
package parser

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/meldbuild/internal/document"
	"github.com/leapstack-labs/meldbuild/pkg/core"
)

// fencePattern is the code fence activation grammar: fence characters,
// optional whitespace, a language token and optional parameter tokens.
var fencePattern = regexp.MustCompile("^([`~]+)\\s*([\\w-]+)(\\s+.*)?$")

// bareFencePattern matches the fence characters of any opening fence,
// including one with no language or an info string outside the grammar.
var bareFencePattern = regexp.MustCompile("^(`{3,}|~{3,})")

// Parser turns document sections into datasets and code blocks.
// The zero value is ready to use.
type Parser struct {
	// DocumentName is used as the dataset name for tables and the block name
	// for code that appear before any heading.
	DocumentName string

	// Accept filters blocks collected by ApplyDocumentContent.
	// A nil Accept keeps every block.
	Accept func(core.NamedCodeBlock) bool
}

// New creates a Parser for the named document.
func New(documentName string) *Parser {
	return &Parser{DocumentName: documentName}
}

// Parse scans text once and returns both its datasets and code blocks.
func (p *Parser) Parse(text string) (*core.DataSetCollection, []core.NamedCodeBlock) {
	sections := document.Sections(text)
	return p.ExtractDataSets(sections, text), p.ExtractCodeBlocks(sections, text)
}

// ExtractDataSets builds a dataset for every table section, named after the
// nearest preceding heading. A later table under the same name replaces the
// earlier one.
func (p *Parser) ExtractDataSets(sections []document.Section, text string) *core.DataSetCollection {
	collection := core.NewDataSetCollection()
	heading := ""
	for _, sec := range sections {
		switch sec.Type {
		case document.SectionHeading:
			heading = headingText(sec.Slice(text))
		case document.SectionTable:
			lines := strings.Split(sec.Slice(text), "\n")
			collection.Put(p.nameOr(heading), parseTable(lines))
		}
	}
	return collection
}

// ExtractCodeBlocks returns the non-empty fenced code blocks in document
// order. When languages is non-empty only blocks whose language is in the
// list (case-insensitive) are kept.
func (p *Parser) ExtractCodeBlocks(sections []document.Section, text string, languages ...string) []core.NamedCodeBlock {
	var blocks []core.NamedCodeBlock
	heading := ""
	for _, sec := range sections {
		switch sec.Type {
		case document.SectionHeading:
			heading = headingText(sec.Slice(text))
		case document.SectionCode:
			lines := strings.Split(sec.Slice(text), "\n")
			block, ok := parseFence(lines, p.nameOr(heading))
			if !ok || !languageAllowed(block.Info.Language, languages) {
				continue
			}
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func (p *Parser) nameOr(heading string) string {
	if heading != "" {
		return heading
	}
	return p.DocumentName
}

// ParseFenceInfo parses an opening fence line into its metadata.
func ParseFenceInfo(line string) (core.CodeBlockInfo, bool) {
	m := fencePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return core.CodeBlockInfo{}, false
	}
	return core.CodeBlockInfo{
		Language: strings.ToLower(m[2]),
		Params:   strings.Fields(m[3]),
	}, true
}

// parseFence builds a block from the lines of a fenced section. The closing
// fence line is optional.
func parseFence(lines []string, name string) (core.NamedCodeBlock, bool) {
	if len(lines) == 0 {
		return core.NamedCodeBlock{}, false
	}
	info, ok := ParseFenceInfo(lines[0])
	if !ok {
		return core.NamedCodeBlock{}, false
	}
	marker := fencePattern.FindStringSubmatch(strings.TrimSpace(lines[0]))[1]

	body := lines[1:]
	if n := len(body); n > 0 && isClosingFence(body[n-1], marker) {
		body = body[:n-1]
	}
	content := strings.Join(body, "\n")
	if strings.TrimSpace(content) == "" {
		return core.NamedCodeBlock{}, false
	}
	return core.NamedCodeBlock{Info: info, Name: name, Content: content}, true
}

func isClosingFence(line, marker string) bool {
	line = strings.TrimSpace(line)
	return strings.HasPrefix(line, marker) && strings.Trim(line, marker[:1]) == ""
}

func languageAllowed(lang string, languages []string) bool {
	if len(languages) == 0 {
		return true
	}
	for _, l := range languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// headingText returns the title of a heading section: the first line with
// ATX '#' markers removed.
func headingText(section string) string {
	line, _, _ := strings.Cut(section, "\n")
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "#")
	line = strings.TrimRight(strings.TrimSpace(line), "#")
	return strings.TrimSpace(line)
}
