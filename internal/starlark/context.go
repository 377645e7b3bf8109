package starlark

import (
	"fmt"
	"maps"
	"sync"

	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	starlarktime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// ExecutionContext provides the globals for template expression evaluation.
//
// When Data is a dict with string keys, each entry is also a global, so a
// template can write {{ title }} as well as {{ data["title"] }}.
type ExecutionContext struct {
	// Data is the value passed to render. Accessible as: data
	Data starlark.Value

	// Helpers are helper functions such as format_number.
	// Helpers shadow data entries with the same name.
	Helpers starlark.StringDict

	// globals is the combined set of all globals for execution
	globals starlark.StringDict

	// mu protects globals during initialization
	mu sync.RWMutex
}

// NewExecutionContext creates a new execution context over data.
func NewExecutionContext(data starlark.Value, opts ...ContextOption) *ExecutionContext {
	if data == nil {
		data = starlark.None
	}
	ctx := &ExecutionContext{
		Data:    data,
		Helpers: make(starlark.StringDict),
	}
	for _, opt := range opts {
		opt(ctx)
	}
	ctx.buildGlobals()
	return ctx
}

// buildGlobals constructs the combined globals dict.
func (ctx *ExecutionContext) buildGlobals() {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	ctx.globals = Predeclared(ctx.Data)
	maps.Copy(ctx.globals, ctx.Helpers)
}

// Globals returns the combined globals dictionary for Starlark execution.
func (ctx *ExecutionContext) Globals() starlark.StringDict {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	return ctx.globals
}

// AddHelpers adds helper functions to the context.
// Returns error if a helper name conflicts with a builtin.
func (ctx *ExecutionContext) AddHelpers(helpers starlark.StringDict) error {
	for name := range helpers {
		if reserved[name] {
			return fmt.Errorf("helper %q conflicts with builtin", name)
		}
	}

	ctx.mu.Lock()
	maps.Copy(ctx.Helpers, helpers)
	ctx.mu.Unlock()

	ctx.buildGlobals()
	return nil
}

// EvalExpr evaluates a single Starlark expression and returns the result.
// This is used for {{ expr }} template expressions.
func (ctx *ExecutionContext) EvalExpr(expr string, filename string, line int) (starlark.Value, error) {
	return ctx.EvalExprWithLocals(expr, filename, line, nil)
}

// EvalExprWithLocals evaluates a Starlark expression with additional local variables.
// This is used for expressions inside loops where loop variables need to be in scope.
func (ctx *ExecutionContext) EvalExprWithLocals(expr string, filename string, line int, locals starlark.StringDict) (starlark.Value, error) {
	thread := ctx.newThread(filename)

	// Combine globals with locals (locals take precedence)
	globals := ctx.Globals()
	if len(locals) > 0 {
		combined := make(starlark.StringDict, len(globals)+len(locals))
		maps.Copy(combined, globals)
		maps.Copy(combined, locals)
		globals = combined
	}

	result, err := starlark.EvalOptions(&syntax.FileOptions{}, thread, filename, expr, globals)
	if err != nil {
		return nil, &EvalError{
			File:    filename,
			Line:    line,
			Expr:    expr,
			Message: Message(err),
			Cause:   err,
		}
	}

	return result, nil
}

// EvalExprString evaluates a Starlark expression and returns the string result.
// This is the typical use case for template expressions.
func (ctx *ExecutionContext) EvalExprString(expr string, filename string, line int) (string, error) {
	return ctx.EvalExprStringWithLocals(expr, filename, line, nil)
}

// EvalExprStringWithLocals evaluates a Starlark expression with local variables and returns the string result.
func (ctx *ExecutionContext) EvalExprStringWithLocals(expr string, filename string, line int, locals starlark.StringDict) (string, error) {
	result, err := ctx.EvalExprWithLocals(expr, filename, line, locals)
	if err != nil {
		return "", err
	}
	return ToText(result), nil
}

// ToText renders a value for output: strings verbatim, None as "", times in
// RFC 3339 and everything else by its Starlark representation.
func ToText(v starlark.Value) string {
	switch val := v.(type) {
	case starlark.String:
		return string(val)
	case starlark.NoneType:
		return ""
	case starlarktime.Time:
		return val.String()
	default:
		return v.String()
	}
}

// newThread creates a new Starlark thread for execution.
func (ctx *ExecutionContext) newThread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, _ string) {
			// Template execution should not print
		},
	}
}

// ContextOption is a functional option for configuring ExecutionContext.
type ContextOption func(*ExecutionContext)

// WithHelpers sets the helpers for the context.
func WithHelpers(helpers starlark.StringDict) ContextOption {
	return func(ctx *ExecutionContext) {
		maps.Copy(ctx.Helpers, helpers)
	}
}

// reserved names cannot be used as helper names.
var reserved = map[string]bool{
	"data": true,
	"json": true,
	"math": true,
	"time": true,
}

// Predeclared returns the base globals for template execution: data, the
// string-keyed entries of data when it is a dict, and the json, math and
// time modules.
func Predeclared(data starlark.Value) starlark.StringDict {
	globals := starlark.StringDict{}
	if dict, ok := data.(*starlark.Dict); ok {
		for _, item := range dict.Items() {
			if key, ok := item[0].(starlark.String); ok && isIdentifier(string(key)) {
				globals[string(key)] = item[1]
			}
		}
	}
	maps.Copy(globals, StdlibModules())
	globals["data"] = data
	return globals
}

// StdlibModules returns the Starlark library modules exposed to scripts and
// templates.
func StdlibModules() starlark.StringDict {
	return starlark.StringDict{
		"json": json.Module,
		"math": math.Module,
		"time": starlarktime.Module,
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
