package template

import (
	"errors"
	"fmt"
)

// Sentinels matched by every *Error through errors.Is.
var (
	ErrSyntax = errors.New("template syntax error")
	ErrRender = errors.New("template render error")
)

// Error is a template failure at a position of the rendered block. Cause
// holds the Starlark error when an expression failed.
type Error struct {
	Pos   Pos
	Msg   string
	Cause error

	kind error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Pos, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Is reports whether target is the error's kind sentinel.
func (e *Error) Is(target error) bool { return target == e.kind }

func (e *Error) Unwrap() error { return e.Cause }

func syntaxErrorf(at Pos, format string, args ...any) *Error {
	return &Error{Pos: at, Msg: fmt.Sprintf(format, args...), kind: ErrSyntax}
}

func renderError(at Pos, msg string, cause error) *Error {
	return &Error{Pos: at, Msg: msg, Cause: cause, kind: ErrRender}
}
