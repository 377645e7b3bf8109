package core

import "slices"

// ParamSkip excludes a block from the runnable set.
const ParamSkip = "skip"

// CodeBlockInfo is the metadata parsed from an opening code fence.
type CodeBlockInfo struct {
	// Language is the lower-cased language token.
	Language string
	// Params are the whitespace separated tokens after the language.
	// The first one is conventionally the activation tag.
	Params []string
}

// FirstParam returns the first parameter or "".
func (i CodeBlockInfo) FirstParam() string {
	if len(i.Params) == 0 {
		return ""
	}
	return i.Params[0]
}

// HasParam reports whether p is one of the parameters.
func (i CodeBlockInfo) HasParam(p string) bool {
	return slices.Contains(i.Params, p)
}

// NamedCodeBlock is a fenced code block with its metadata and the name of the
// section it appears in.
type NamedCodeBlock struct {
	Info CodeBlockInfo
	// Name is the nearest preceding heading text, else the document name.
	Name string
	// Content is the block body without the fence lines.
	Content string
}
