package template

import (
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tokText tokenKind = iota
	tokExpr           // {{ ... }}
	tokStmt           // {* ... *}
)

type token struct {
	kind tokenKind
	val  string // text as is; expression and statement bodies trimmed
	at   Pos
}

// lex splits the text of block into literal text, expression and statement
// tokens.
func lex(src, block string) ([]token, error) {
	var toks []token
	line, col := 1, 1
	consume := func(s string) {
		for _, r := range s {
			if r == '\n' {
				line++
				col = 1
			} else {
				col++
			}
		}
	}

	for src != "" {
		at := Pos{Block: block, Line: line, Column: col}

		open := nextOpening(src)
		if open != 0 {
			text := src
			if open > 0 {
				text = src[:open]
			}
			toks = append(toks, token{kind: tokText, val: text, at: at})
			consume(text)
			src = src[len(text):]
			continue
		}

		kind, what, closer := tokExpr, "expression", "}}"
		if src[1] == '*' {
			kind, what, closer = tokStmt, "statement", "*}"
		}
		end := closing(src[2:], kind)
		if end < 0 {
			return nil, syntaxErrorf(at, "unclosed %s: missing '%s'", what, closer)
		}
		toks = append(toks, token{kind: kind, val: strings.TrimSpace(src[2 : 2+end]), at: at})
		whole := src[:2+end+2]
		consume(whole)
		src = src[len(whole):]
	}
	return toks, nil
}

// nextOpening returns the index of the first "{{" or "{*" in s, or -1.
func nextOpening(s string) int {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '{' && (s[i+1] == '{' || s[i+1] == '*') {
			return i
		}
	}
	return -1
}

// closing returns the index of the delimiter ending a token body, or -1.
// Braces opened inside an expression (dict literals) must close before "}}"
// ends it.
func closing(s string, kind tokenKind) int {
	if kind == tokStmt {
		return strings.Index(s, "*}")
	}
	depth := 0
	for i := 0; i < len(s); {
		if depth == 0 && strings.HasPrefix(s[i:], "}}") {
			return i
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '{':
			depth++
		case r == '}' && depth > 0:
			depth--
		}
		i += size
	}
	return -1
}
