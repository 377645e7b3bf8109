// Package document splits Markdown text into the top-level sections the
// parser works on: headings, tables and fenced code blocks.
package document

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// SectionType identifies the kind of a Section.
type SectionType int

// SectionType constants.
const (
	SectionHeading SectionType = iota
	SectionTable
	SectionCode
)

func (t SectionType) String() string {
	switch t {
	case SectionHeading:
		return "heading"
	case SectionTable:
		return "table"
	case SectionCode:
		return "code"
	default:
		return "unknown"
	}
}

// Section is a byte range [Start, End) into the scanned text. Ranges always
// begin at a line start and end at a line end (before the newline) or at the
// end of the text.
type Section struct {
	Type  SectionType
	Start int
	End   int
}

// Slice returns the section text.
func (s Section) Slice(src string) string {
	return src[s.Start:s.End]
}

var engine = goldmark.New(goldmark.WithExtensions(extension.Table))

// Sections returns the top-level headings, tables and fenced code blocks of
// src in document order. Constructs nested inside lists or block quotes are
// not reported.
func Sections(src string) []Section {
	source := []byte(src)
	root := engine.Parser().Parse(text.NewReader(source))

	var sections []Section
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		var (
			sec Section
			ok  bool
		)
		switch n.Kind() {
		case ast.KindHeading:
			sec, ok = headingSection(n, source)
		case extast.KindTable:
			sec, ok = tableSection(n, source)
		case ast.KindFencedCodeBlock:
			sec, ok = fenceSection(n.(*ast.FencedCodeBlock), source)
		}
		if ok {
			sections = append(sections, sec)
		}
	}
	return sections
}

func headingSection(n ast.Node, src []byte) (Section, bool) {
	lines := n.Lines()
	if lines.Len() == 0 {
		return Section{}, false
	}
	start := lineStart(src, lines.At(0).Start)
	end := lineEnd(src, lines.At(lines.Len()-1).Start)

	// setext underline
	if next := end + 1; next < len(src) {
		under := bytes.TrimSpace(src[next:lineEnd(src, next)])
		if len(under) > 0 && (allBytes(under, '=') || allBytes(under, '-')) {
			end = lineEnd(src, next)
		}
	}
	return Section{Type: SectionHeading, Start: start, End: end}, true
}

func tableSection(n ast.Node, src []byte) (Section, bool) {
	lo, hi := -1, -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			if lo < 0 || t.Segment.Start < lo {
				lo = t.Segment.Start
			}
			if t.Segment.Stop > hi {
				hi = t.Segment.Stop
			}
		}
		return ast.WalkContinue, nil
	})
	if lo < 0 {
		return Section{}, false
	}

	start := lineStart(src, lo)
	end := lineEnd(src, max(hi-1, lo))

	// rows made only of empty cells carry no text segments
	for next := end + 1; next < len(src); next = end + 1 {
		line := bytes.TrimSpace(src[next:lineEnd(src, next)])
		if len(line) == 0 || line[0] != '|' {
			break
		}
		end = lineEnd(src, next)
	}
	return Section{Type: SectionTable, Start: start, End: end}, true
}

func fenceSection(n *ast.FencedCodeBlock, src []byte) (Section, bool) {
	lines := n.Lines()

	var start int
	switch {
	case n.Info != nil:
		start = lineStart(src, n.Info.Segment.Start)
	case lines.Len() > 0:
		first := lineStart(src, lines.At(0).Start)
		if first == 0 {
			return Section{}, false
		}
		start = lineStart(src, first-1)
	default:
		return Section{}, false
	}

	end := lineEnd(src, start)
	if lines.Len() > 0 {
		last := lines.At(lines.Len() - 1)
		end = lineEnd(src, max(last.Stop-1, last.Start))
	}

	fence := fenceMarker(src[start:lineEnd(src, start)])
	if next := end + 1; next < len(src) {
		closing := bytes.TrimSpace(src[next:lineEnd(src, next)])
		if len(fence) > 0 && bytes.HasPrefix(closing, fence) && allBytes(closing, fence[0]) {
			end = lineEnd(src, next)
		}
	}
	return Section{Type: SectionCode, Start: start, End: end}, true
}

// fenceMarker returns the run of fence characters that opens line.
func fenceMarker(line []byte) []byte {
	line = bytes.TrimLeft(line, " \t")
	if len(line) == 0 || (line[0] != '`' && line[0] != '~') {
		return nil
	}
	i := 0
	for i < len(line) && line[i] == line[0] {
		i++
	}
	return line[:i]
}

func lineStart(src []byte, pos int) int {
	if pos > len(src) {
		pos = len(src)
	}
	if i := bytes.LastIndexByte(src[:pos], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

func lineEnd(src []byte, pos int) int {
	if pos >= len(src) {
		return len(src)
	}
	if i := bytes.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i
	}
	return len(src)
}

func allBytes(b []byte, c byte) bool {
	for _, x := range b {
		if x != c {
			return false
		}
	}
	return true
}
