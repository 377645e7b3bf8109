package template

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	starctx "github.com/leapstack-labs/meldbuild/internal/starlark"
)

func newTestContext() *starctx.ExecutionContext {
	owner := starlark.NewDict(2)
	_ = owner.SetKey(starlark.String("name"), starlark.String("Ann"))
	_ = owner.SetKey(starlark.String("email"), starlark.String("ann@example.com"))

	data := starlark.NewDict(3)
	_ = data.SetKey(starlark.String("status"), starlark.String("draft"))
	_ = data.SetKey(starlark.String("title"), starlark.String("Weekly"))
	_ = data.SetKey(starlark.String("owner"), owner)

	ctx := starctx.NewExecutionContext(data)
	_ = ctx.AddHelpers(Helpers())
	return ctx
}

func TestRenderer_Expressions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "# Weekly report", "# Weekly report"},
		{"simple expression", `# {{ title }} report`, "# Weekly report"},
		{"multiple expressions", `{{ title }}/{{ status }}`, "Weekly/draft"},
		{"dict access", `{{ owner["name"] }}`, "Ann"},
		{"data global", `{{ data["title"] }}`, "Weekly"},
		{"string concatenation", `{{ owner["name"] + " <" + owner["email"] + ">" }}`, "Ann <ann@example.com>"},
		{"integer expression", `{{ 1 + 2 }}`, "3"},
		{"boolean expression", `{{ True }}`, "True"},
		{"none renders empty", `[{{ None }}]`, "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := RenderString(tt.input, "note.md", newTestContext())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRenderer_ForLoop(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		containsAll []string
	}{
		{
			name:     "inline loop",
			input:    `{* for x in [1, 2, 3]: *}{{ x }}{* endfor *}`,
			expected: "123",
		},
		{
			name:     "empty loop",
			input:    `before{* for x in []: *}{{ x }}{* endfor *}after`,
			expected: "beforeafter",
		},
		{
			name: "loop with list",
			input: `Columns:
{* for col in ["id", "name", "email"]: *}
- {{ col }}
{* endfor *}`,
			containsAll: []string{"- id", "- name", "- email"},
		},
		{
			name: "nested loop",
			input: `{* for i in [0, 1, 2]: *}
{* for j in [0, 1]: *}
({{ i }}, {{ j }})
{* endfor *}
{* endfor *}`,
			containsAll: []string{"(0, 0)", "(0, 1)", "(1, 0)", "(1, 1)", "(2, 0)", "(2, 1)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := RenderString(tt.input, "note.md", newTestContext())
			require.NoError(t, err)

			if tt.expected != "" {
				assert.Equal(t, tt.expected, result)
			}
			for _, s := range tt.containsAll {
				assert.Contains(t, result, s)
			}
		})
	}
}

func TestRenderer_IfStatement(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"if true", `{* if status == "draft": *}DRAFT{* endif *}`, "DRAFT"},
		{"if false", `{* if status == "final": *}FINAL{* endif *}`, ""},
		{"if-else true branch", `{* if status == "draft": *}DRAFT{* else: *}OTHER{* endif *}`, "DRAFT"},
		{"if-else false branch", `{* if status == "final": *}FINAL{* else: *}OTHER{* endif *}`, "OTHER"},
		{"if-elif-else", `{* if status == "final": *}FINAL{* elif status == "draft": *}DRAFT{* else: *}OTHER{* endif *}`, "DRAFT"},
		{"nested for-if", `{* for x in [1, 2, 3]: *}{* if x > 1: *}{{ x }}{* endif *}{* endfor *}`, "23"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := RenderString(tt.input, "note.md", newTestContext())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRenderer_TruthyFalsy(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		expected  string
	}{
		{"True", `True`, "yes"},
		{"False", `False`, "no"},
		{"1", `1`, "yes"},
		{"0", `0`, "no"},
		{"empty string", `""`, "no"},
		{"non-empty string", `"hello"`, "yes"},
		{"empty list", `[]`, "no"},
		{"non-empty list", `[1]`, "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := `{* if ` + tt.condition + `: *}yes{* else: *}no{* endif *}`
			result, err := RenderString(input, "note.md", newTestContext())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRenderer_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"undefined variable", "ok\n  {{ undefined_variable }}", "Card:2:3: expression failed"},
		{"undefined iterator", `{* for x in undefined: *}{{ x }}{* endfor *}`, "Card:1:1: for iterator failed"},
		{"undefined condition", `{* if True *}{* endif *}{* if undefined: *}yes{* endif *}`, "Card:1:25: condition failed"},
		{"non-iterable for", `{* for x in 42: *}{{ x }}{* endfor *}`, "Card:1:1: for: int is not iterable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RenderString(tt.input, "Card", newTestContext())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRender)

			var tmplErr *Error
			require.ErrorAs(t, err, &tmplErr)
			assert.Equal(t, "Card", tmplErr.Pos.Block)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRenderer_Helpers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"default places", `{{ format_number(3.14159) }}`, "3.14"},
		{"decimal places", `{{ format_number(2, decimal_places=3) }}`, "2.000"},
		{"dp alias", `{{ format_number(2.4, dp=0) }}`, "2"},
		{"grouping", `{{ format_number(1234567.891, grouping=True) }}`, "1,234,567.89"},
		{"string number", `{{ format_number("7.1", 1) }}`, "7.1"},
		{"date string", `{{ format_date("2024-01-05") }}`, "2024-01-05"},
		{"date pattern", `{{ format_date("2024-01-05T15:04:00Z", "d MMM yyyy h:mm A") }}`, "5 Jan 2024 3:04 PM"},
		{"date literal text", `{{ format_date("2024-03-09", "[Week of] MMMM d") }}`, "Week of March 9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := RenderString(tt.input, "note.md", newTestContext())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFormatDate_Tokens(t *testing.T) {
	ts := time.Date(2023, time.December, 3, 0, 7, 9, 0, time.UTC)
	assert.Equal(t, "23-12-03 12:07:09 am", FormatDate(ts, "yy-MM-dd hh:mm:ss a"))
	assert.Equal(t, "3/12/2023 0:7:9", FormatDate(ts, "d/M/yyyy H:m:s"))
}

func TestEngine_Render(t *testing.T) {
	engine := NewEngine()

	out, err := engine.Render("People", `{* for p in people: *}{{ p["name"] }} is {{ p["age"] }}
{* endfor *}`, map[string]any{
		"people": []any{
			map[string]any{"name": "Ann", "age": 30},
			map[string]any{"name": "Bob", "age": 41},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ann is 30\nBob is 41\n", out)

	out, err = engine.Render("", "plain {{ data }}", "value")
	require.NoError(t, err)
	assert.Equal(t, "plain value", out)

	_, err = engine.Render("Card", "{{ broken", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyntax)
	assert.True(t, strings.HasPrefix(err.Error(), "Card:1:1: unclosed expression"))
}
