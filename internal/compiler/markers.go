package compiler

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	starctx "github.com/leapstack-labs/meldbuild/internal/starlark"
)

func (rc *runContext) markersModule() starlark.Value {
	e := rc.markers
	delimiters := func(define func(prefix, suffix string)) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
		return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var prefix, suffix string
			if err := starlark.UnpackArgs(b.Name(), args, kwargs, "prefix", &prefix, "suffix", &suffix); err != nil {
				return nil, err
			}
			define(prefix, suffix)
			return starlark.None, nil
		}
	}

	return &starlarkstruct.Module{
		Name: "markers",
		Members: starlark.StringDict{
			"define_mark_start": starlark.NewBuiltin("define_mark_start", delimiters(e.DefineMarkStart)),
			"define_mark_end":   starlark.NewBuiltin("define_mark_end", delimiters(e.DefineMarkEnd)),

			"target_file": starlark.NewBuiltin("target_file", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var p starlark.Value = starlark.None
				if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path?", &p); err != nil {
					return nil, err
				}
				s, _ := starlark.AsString(p)
				e.TargetFile(s)
				return starlark.None, nil
			}),

			"clear": starlark.NewBuiltin("clear", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
					return nil, err
				}
				e.Clear()
				return starlark.None, nil
			}),

			"set": starlark.NewBuiltin("set", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var name string
				var value starlark.Value = starlark.None
				if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "value", &value); err != nil {
					return nil, err
				}
				if value == starlark.None {
					e.Set(name, nil)
				} else {
					text := starctx.ToText(value)
					e.Set(name, &text)
				}
				return starlark.None, nil
			}),

			"fetch": starlark.NewBuiltin("fetch", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
					return nil, err
				}
				values, err := e.Fetch(starctx.ThreadContext(thread))
				if err != nil {
					return nil, fmt.Errorf("%s: %w", b.Name(), err)
				}
				list := make([]starlark.Value, len(values))
				for i, v := range values {
					list[i] = starlarkstruct.FromStringDict(starlark.String("marker_value"), starlark.StringDict{
						"pos":   starlark.MakeInt(v.Pos),
						"name":  starlark.String(v.Name),
						"value": starlark.String(v.Value),
					})
				}
				return starlark.NewList(list), nil
			}),

			"apply": starlark.NewBuiltin("apply", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				clearUnknown := true
				if err := starlark.UnpackArgs(b.Name(), args, kwargs, "clear_unknown?", &clearUnknown); err != nil {
					return nil, err
				}
				changes, err := e.Apply(starctx.ThreadContext(thread), clearUnknown)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", b.Name(), err)
				}
				list := make([]starlark.Value, len(changes))
				for i, c := range changes {
					list[i] = starlarkstruct.FromStringDict(starlark.String("marker_change"), starlark.StringDict{
						"pos":  starlark.MakeInt(c.Pos),
						"name": starlark.String(c.Name),
						"old":  starlark.String(c.Old),
						"new":  starlark.String(c.New),
					})
				}
				return starlark.NewList(list), nil
			}),
		},
	}
}
