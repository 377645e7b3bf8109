package starlark

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Location is a 1-based line and column inside a script.
type Location struct {
	Line   int
	Column int
}

// Locate finds where err happened inside the script named filename. Runtime
// errors use the innermost call frame belonging to the script, syntax and
// resolve errors their own position. As a last resort the error text is
// searched for "filename:line:col".
func Locate(err error, filename string) (Location, bool) {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		for i := len(evalErr.CallStack) - 1; i >= 0; i-- {
			pos := evalErr.CallStack[i].Pos
			if pos.Filename() == filename && pos.Line > 0 {
				return Location{Line: int(pos.Line), Column: int(pos.Col)}, true
			}
		}
	}

	var synErr syntax.Error
	if errors.As(err, &synErr) && synErr.Pos.Line > 0 {
		return Location{Line: int(synErr.Pos.Line), Column: int(synErr.Pos.Col)}, true
	}

	var resolveErrs resolve.ErrorList
	if errors.As(err, &resolveErrs) && len(resolveErrs) > 0 && resolveErrs[0].Pos.Line > 0 {
		pos := resolveErrs[0].Pos
		return Location{Line: int(pos.Line), Column: int(pos.Col)}, true
	}

	pattern := regexp.MustCompile(regexp.QuoteMeta(filename) + `:(\d+):(\d+)`)
	if m := pattern.FindStringSubmatch(err.Error()); m != nil {
		line, _ := strconv.Atoi(m[1])
		col, _ := strconv.Atoi(m[2])
		return Location{Line: line, Column: col}, true
	}
	return Location{}, false
}

// Message returns the error text without position prefixes or backtraces.
func Message(err error) string {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Msg
	}
	var synErr syntax.Error
	if errors.As(err, &synErr) {
		return synErr.Msg
	}
	var resolveErrs resolve.ErrorList
	if errors.As(err, &resolveErrs) && len(resolveErrs) > 0 {
		return resolveErrs[0].Msg
	}
	return err.Error()
}

// Backtrace returns the interpreter backtrace for runtime errors, or "".
func Backtrace(err error) string {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Backtrace()
	}
	return ""
}

// EvalError represents an error during Starlark expression evaluation.
type EvalError struct {
	File    string
	Line    int
	Expr    string
	Message string
	Cause   error
}

func (e *EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: error evaluating %q: %s", e.File, e.Line, e.Expr, e.Message)
	}
	return fmt.Sprintf("%s: error evaluating %q: %s", e.File, e.Expr, e.Message)
}

func (e *EvalError) Unwrap() error { return e.Cause }
