package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/leapstack-labs/meldbuild/internal/markers"
	"github.com/leapstack-labs/meldbuild/internal/parser"
	"github.com/leapstack-labs/meldbuild/internal/runlog"
	starctx "github.com/leapstack-labs/meldbuild/internal/starlark"
	"github.com/leapstack-labs/meldbuild/pkg/core"
)

// runContext is the state behind the ctx value of one run.
type runContext struct {
	op      *RunOperation
	c       *Compiler
	logger  *runlog.Logger
	markers *markers.Engine
	// includes parses documents pulled in with io.include.
	includes *parser.Parser
}

func newRunContext(_ context.Context, op *RunOperation, logger *runlog.Logger) *runContext {
	c := op.c
	rc := &runContext{
		op:     op,
		c:      c,
		logger: logger,
		markers: markers.New(c.store, op.Document.Path,
			markers.WithLogger(logger.Logger),
			markers.WithDelimiters(c.opts.Delimiters)),
	}
	rc.includes = &parser.Parser{
		Accept: func(b core.NamedCodeBlock) bool { return c.IsConsumable(b.Info, op.RunGroup) },
	}
	return rc
}

// value builds the ctx struct scripts see.
func (rc *runContext) value() starlark.Value {
	members := starlark.StringDict{
		"source":  starlark.String(rc.op.Source),
		"data":    starctx.NewCollection(rc.op.Data),
		"blocks":  starctx.NewBlocks(&rc.op.Consumable),
		"log":     starlark.NewBuiltin("log", rc.log),
		"logger":  rc.loggerModule(),
		"render":  starlark.NewBuiltin("render", rc.render),
		"asserts": rc.assertsModule(),
		"ui":      rc.uiModule(),
		"io":      rc.ioModule(),
		"markers": rc.markersModule(),
		"md":      rc.mdModule(),
		"dv":      rc.dvModule(),
	}
	for name, mod := range starctx.StdlibModules() {
		members[name] = mod
	}
	return starlarkstruct.FromStringDict(starlark.String("ctx"), members)
}

// path resolves a script supplied path against the document folder.
func (rc *runContext) path(p string) string {
	return rc.c.store.ResolveRelative(rc.op.Document.Dir(), p)
}

func (rc *runContext) log(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	msg, attrs := logEntry(args)
	rc.logger.Info(msg, attrs...)
	return starlark.None, nil
}

func (rc *runContext) loggerModule() starlark.Value {
	level := func(name string, lvl slog.Level) *starlark.Builtin {
		return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			if len(kwargs) > 0 {
				return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
			}
			msg, attrs := logEntry(args)
			rc.logger.Log(starctx.ThreadContext(thread), lvl, msg, attrs...)
			return starlark.None, nil
		})
	}

	return &starlarkstruct.Module{
		Name: "logger",
		Members: starlark.StringDict{
			"info":  level("info", slog.LevelInfo),
			"error": level("error", slog.LevelError),
			"set_file": starlark.NewBuiltin("set_file", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var name starlark.Value = starlark.None
				clear := true
				if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name?", &name, "clear?", &clear); err != nil {
					return nil, err
				}
				file := ""
				if s, ok := starlark.AsString(name); ok && s != "" {
					file = rc.path(s)
				}
				if err := rc.logger.SetFile(file, clear); err != nil {
					return nil, err
				}
				return starlark.None, nil
			}),
		},
	}
}

// logEntry splits log arguments into a message made of the plain values and
// attributes made of the dicts and collections.
func logEntry(args starlark.Tuple) (string, []any) {
	var parts []string
	var attrs []any
	for i, arg := range args {
		switch v := arg.(type) {
		case *starlark.Dict:
			for _, item := range v.Items() {
				attrs = append(attrs, slog.Any(starctx.ToText(item[0]), goValue(item[1])))
			}
		case *starlark.List, starlark.Tuple, *starlark.Set, *starctx.DataSet, *starctx.Row, *starctx.Collection, *starlarkstruct.Struct:
			attrs = append(attrs, slog.Any(fmt.Sprintf("arg%d", i), goValue(v)))
		default:
			parts = append(parts, starctx.ToText(v))
		}
	}
	return strings.Join(parts, " "), attrs
}

// goValue converts v for structured output, falling back to its string form.
func goValue(v starlark.Value) any {
	switch val := v.(type) {
	case *starctx.DataSet:
		return datasetRecords(val.Unwrap())
	case *starctx.Row:
		return v.String()
	}
	if gv, err := starctx.StarlarkToGo(v); err == nil {
		return gv
	}
	return v.String()
}

func datasetRecords(ds *core.DataSet) []map[string]any {
	records := make([]map[string]any, 0, ds.Len())
	for _, row := range ds.Rows {
		rec := make(map[string]any, row.Len())
		for _, k := range row.Keys() {
			v, _ := row.Get(k)
			rec[k] = v.Any()
		}
		records = append(records, rec)
	}
	return records
}

func (rc *runContext) render(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var tmpl starlark.Value
	var data starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "template", &tmpl, "data?", &data); err != nil {
		return nil, err
	}

	var name, text string
	switch t := tmpl.(type) {
	case starlark.String:
		text = string(t)
	case *starctx.Block:
		name, text = t.Unwrap().Name, t.Unwrap().Content
	default:
		return starlark.String(""), nil
	}

	out, err := rc.c.renderer.Render(name, text, data)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return starlark.String(out), nil
}
