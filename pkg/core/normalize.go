package core

import (
	"regexp"
	"strings"
)

var nonWordPattern = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Normalize converts a heading, column header or file name into the identifier
// used as a dataset or column key: trimmed, non-word characters replaced by '_'
// and lower-cased. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = nonWordPattern.ReplaceAllString(s, "_")
	return strings.TrimSpace(strings.ToLower(s))
}
