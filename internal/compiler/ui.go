package compiler

import (
	"fmt"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	starctx "github.com/leapstack-labs/meldbuild/internal/starlark"
)

func (rc *runContext) uiModule() starlark.Value {
	return &starlarkstruct.Module{
		Name: "ui",
		Members: starlark.StringDict{
			"notice":  starlark.NewBuiltin("notice", rc.notice),
			"message": starlark.NewBuiltin("message", rc.message),
			"ask":     starlark.NewBuiltin("ask", rc.ask),
		},
	}
}

// notice(message, timeout=5) shows a transient message; timeout is seconds.
func (rc *runContext) notice(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var msg starlark.Value
	var timeout starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "message", &msg, "timeout?", &timeout); err != nil {
		return nil, err
	}
	d := rc.c.opts.NoticeTimeout
	if f, ok := starlark.AsFloat(timeout); ok {
		d = time.Duration(f * float64(time.Second))
	}
	rc.c.prompt.Notice(starctx.ToText(msg), d)
	return starlark.None, nil
}

// message(title_or_message, message=None) shows a blocking message. With one
// argument it is the message and the title is empty.
func (rc *runContext) message(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var first starlark.Value
	var second starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "title_or_message", &first, "message?", &second); err != nil {
		return nil, err
	}
	title, body := "", starctx.ToText(first)
	if second != starlark.None {
		title, body = body, starctx.ToText(second)
	}
	if err := rc.c.prompt.ShowMessage(starctx.ThreadContext(thread), title, body); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, nil
}

// ask(title_or_question, question_or_options=None, options=None) returns the
// answer or None when dismissed. A list as second argument makes the first
// the question and the list the options.
func (rc *runContext) ask(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var first starlark.String
	var second starlark.Value = starlark.None
	var third starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"title_or_question", &first, "question_or_options?", &second, "options?", &third); err != nil {
		return nil, err
	}

	title, question := "", string(first)
	var options []string
	switch v := second.(type) {
	case starlark.NoneType:
	case starlark.String:
		title, question = question, string(v)
		options = textList(third)
	default:
		options = textList(v)
	}

	answer, ok, err := rc.c.prompt.Ask(starctx.ThreadContext(thread), title, question, options)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	if !ok {
		return starlark.None, nil
	}
	return starlark.String(answer), nil
}

// textList converts an iterable to its elements' text; other values give nil.
func textList(v starlark.Value) []string {
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil
	}
	var out []string
	it := iterable.Iterate()
	defer it.Done()
	var item starlark.Value
	for it.Next(&item) {
		out = append(out, starctx.ToText(item))
	}
	return out
}

func (rc *runContext) assertsModule() starlark.Value {
	return &starlarkstruct.Module{
		Name: "asserts",
		Members: starlark.StringDict{
			"is_defined": rc.check("is_defined", 1, func(v []starlark.Value) (bool, string, error) {
				return v[0] != starlark.None, "Value is not defined", nil
			}),
			"is_true": rc.check("is_true", 1, func(v []starlark.Value) (bool, string, error) {
				return bool(v[0].Truth()), "Value was expected to be truthy", nil
			}),
			"is_false": rc.check("is_false", 1, func(v []starlark.Value) (bool, string, error) {
				return !bool(v[0].Truth()), "Value was expected to be falsy", nil
			}),
			"eq": rc.check("eq", 2, func(v []starlark.Value) (bool, string, error) {
				eq, err := looselyEqual(v[0], v[1])
				return eq, fmt.Sprintf("Expected: '%s' but got '%s'", starctx.ToText(v[0]), starctx.ToText(v[1])), err
			}),
			"neq": rc.check("neq", 2, func(v []starlark.Value) (bool, string, error) {
				eq, err := looselyEqual(v[0], v[1])
				return !eq, "Values are equal", err
			}),
		},
	}
}

// check builds an assertion taking n values and an optional label. A failed
// check shows a blocking message and then fails the script.
func (rc *runContext) check(name string, n int, pass func([]starlark.Value) (bool, string, error)) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		values := make([]starlark.Value, n)
		var label string
		pairs := make([]any, 0, 2*n+2)
		for i := range values {
			key := "value"
			if n == 2 {
				key = [2]string{"expected", "actual"}[i]
			}
			pairs = append(pairs, key, &values[i])
		}
		pairs = append(pairs, "label?", &label)
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, pairs...); err != nil {
			return nil, err
		}

		ok, msg, err := pass(values)
		if err != nil {
			return nil, err
		}
		if ok {
			return starlark.None, nil
		}

		title := "❗ Assert Failed"
		if label != "" {
			title += " - " + label
		}
		if err := rc.c.prompt.ShowMessage(starctx.ThreadContext(thread), title, msg); err != nil {
			rc.logger.Error("show assertion message", "error", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrAssertion, msg)
	})
}

// looselyEqual compares values with ==. Values of different types that are
// not equal that way are equal when their text forms are, so "1" equals 1.
func looselyEqual(x, y starlark.Value) (bool, error) {
	eq, err := starlark.Equal(x, y)
	if err != nil || eq || x.Type() == y.Type() {
		return eq, err
	}
	if _, isNone := x.(starlark.NoneType); isNone {
		return false, nil
	}
	if _, isNone := y.(starlark.NoneType); isNone {
		return false, nil
	}
	return starctx.ToText(x) == starctx.ToText(y), nil
}
