package core

import (
	"path/filepath"
	"strings"
)

// Document is a source document loaded for one compile.
type Document struct {
	// Path is the document path as understood by the file store.
	Path string
	// Name is the base file name without extension.
	Name string
	// Text is the full document content.
	Text string
}

// NewDocument builds a Document, deriving Name from path.
func NewDocument(path, text string) Document {
	base := filepath.Base(path)
	return Document{
		Path: path,
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
		Text: text,
	}
}

// Dir returns the folder containing the document.
func (d Document) Dir() string {
	return filepath.Dir(d.Path)
}
