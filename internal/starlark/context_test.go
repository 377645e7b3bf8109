package starlark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func newTestData() *starlark.Dict {
	data := starlark.NewDict(2)
	_ = data.SetKey(starlark.String("title"), starlark.String("Weekly"))
	_ = data.SetKey(starlark.String("items"), starlark.NewList([]starlark.Value{starlark.MakeInt(1), starlark.MakeInt(2)}))
	_ = data.SetKey(starlark.String("not an identifier"), starlark.True)
	return data
}

func TestNewExecutionContext(t *testing.T) {
	ctx := NewExecutionContext(newTestData())
	require.NotNil(t, ctx, "NewExecutionContext returned nil")

	globals := ctx.Globals()

	// Check all expected globals are present
	for _, key := range []string{"data", "title", "items", "json", "math", "time"} {
		_, ok := globals[key]
		assert.True(t, ok, "global %q not found", key)
	}
	_, ok := globals["not an identifier"]
	assert.False(t, ok)
}

func TestNewExecutionContext_NonDictData(t *testing.T) {
	ctx := NewExecutionContext(starlark.String("plain"))

	result, err := ctx.EvalExprString(`data + "!"`, "test.md", 1)
	require.NoError(t, err)
	assert.Equal(t, "plain!", result)

	ctx = NewExecutionContext(nil)
	result, err = ctx.EvalExprString(`data`, "test.md", 1)
	require.NoError(t, err)
	assert.Equal(t, "", result)
}

func TestExecutionContext_EvalExpr(t *testing.T) {
	ctx := NewExecutionContext(newTestData())

	tests := []struct {
		name    string
		expr    string
		want    string
		wantErr bool
	}{
		{
			name: "simple string",
			expr: `"hello"`,
			want: "hello",
		},
		{
			name: "data entry as global",
			expr: `title`,
			want: "Weekly",
		},
		{
			name: "data access",
			expr: `data["title"]`,
			want: "Weekly",
		},
		{
			name: "conditional expression",
			expr: `"many" if len(items) > 1 else "one"`,
			want: "many",
		},
		{
			name: "arithmetic",
			expr: `str(1 + 2)`,
			want: "3",
		},
		{
			name: "json module",
			expr: `json.encode(items)`,
			want: "[1,2]",
		},
		{
			name:    "undefined variable",
			expr:    `undefined_var`,
			wantErr: true,
		},
		{
			name:    "syntax error",
			expr:    `if`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ctx.EvalExprString(tt.expr, "test.md", 1)

			if tt.wantErr {
				assert.Error(t, err, "expected error")
				return
			}

			require.NoError(t, err, "unexpected error")
			assert.Equal(t, tt.want, result, "EvalExprString()")
		})
	}
}

func TestExecutionContext_EvalExprWithLocals(t *testing.T) {
	ctx := NewExecutionContext(newTestData())

	result, err := ctx.EvalExprStringWithLocals(`title + ":" + str(x)`, "test.md", 3, starlark.StringDict{
		"x":     starlark.MakeInt(7),
		"title": starlark.String("local"),
	})
	require.NoError(t, err)
	assert.Equal(t, "local:7", result, "locals take precedence")
}

func TestExecutionContext_AddHelpers(t *testing.T) {
	ctx := NewExecutionContext(newTestData())

	helpers := starlark.StringDict{
		"shout": starlark.NewBuiltin("shout", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			return starlark.String(args[0].(starlark.String) + "!"), nil
		}),
	}

	require.NoError(t, ctx.AddHelpers(helpers), "AddHelpers() error")

	result, err := ctx.EvalExprString(`shout(title)`, "test.md", 1)
	require.NoError(t, err)
	assert.Equal(t, "Weekly!", result)
}

func TestExecutionContext_AddHelpers_ConflictWithBuiltin(t *testing.T) {
	ctx := NewExecutionContext(nil)

	for _, name := range []string{"data", "json", "math", "time"} {
		t.Run(name, func(t *testing.T) {
			err := ctx.AddHelpers(starlark.StringDict{name: starlark.String("conflict")})
			assert.Error(t, err, "expected error for conflicting helper name %q", name)
		})
	}
}

func TestNewExecutionContext_WithHelpers(t *testing.T) {
	ctx := NewExecutionContext(nil, WithHelpers(starlark.StringDict{"answer": starlark.MakeInt(42)}))

	result, err := ctx.EvalExprString(`answer`, "test.md", 1)
	require.NoError(t, err)
	assert.Equal(t, "42", result)
}

func TestEvalError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  EvalError
		want string
	}{
		{
			name: "with line",
			err: EvalError{
				File:    "report.md",
				Line:    10,
				Expr:    "undefined",
				Message: "undefined variable",
			},
			want: `report.md:10: error evaluating "undefined": undefined variable`,
		},
		{
			name: "without line",
			err: EvalError{
				File:    "report.md",
				Expr:    "bad",
				Message: "syntax error",
			},
			want: `report.md: error evaluating "bad": syntax error`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error(), "Error()")
		})
	}
}
