package compiler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/meldbuild/internal/index"
	"github.com/leapstack-labs/meldbuild/internal/prompt"
	"github.com/leapstack-labs/meldbuild/internal/store"
	"github.com/leapstack-labs/meldbuild/internal/testutil"
	"github.com/leapstack-labs/meldbuild/pkg/core"
)

type fixture struct {
	store  *store.MemStore
	prompt *prompt.Headless
	c      *Compiler
}

func newFixture(t *testing.T, files map[string]string, answers []string, opts ...Option) *fixture {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	f := &fixture{
		store:  store.NewMem(files),
		prompt: prompt.NewHeadless(logger, answers...),
	}
	f.c = New(f.store, f.prompt, append([]Option{WithConsole(logger.Handler())}, opts...)...)
	return f
}

func (f *fixture) run(t *testing.T, path, runGroup string) error {
	t.Helper()
	op, err := f.c.Compile(context.Background(), path, runGroup)
	require.NoError(t, err)
	return op.Run(context.Background())
}

func TestClassification(t *testing.T) {
	c := New(store.NewMem(nil), nil)

	tests := []struct {
		name       string
		info       core.CodeBlockInfo
		runGroup   string
		runnable   bool
		consumable bool
	}{
		{"activated script", core.CodeBlockInfo{Language: "starlark", Params: []string{"meld-build"}}, "", true, false},
		{"python alias", core.CodeBlockInfo{Language: "py", Params: []string{"meld-build"}}, "", true, false},
		{"tag not first", core.CodeBlockInfo{Language: "starlark", Params: []string{"draft", "meld-build"}}, "", false, true},
		{"no tag", core.CodeBlockInfo{Language: "starlark"}, "", false, true},
		{"skipped", core.CodeBlockInfo{Language: "starlark", Params: []string{"meld-build", "skip"}}, "", false, true},
		{"in run group", core.CodeBlockInfo{Language: "star", Params: []string{"meld-build", "publish"}}, "publish", true, false},
		{"outside run group", core.CodeBlockInfo{Language: "star", Params: []string{"meld-build", "draft"}}, "publish", false, true},
		{"other language", core.CodeBlockInfo{Language: "text", Params: []string{"meld-build"}}, "", false, true},
		{"toolbar", core.CodeBlockInfo{Language: "meld-build-toolbar"}, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.runnable, c.IsRunnable(tt.info, tt.runGroup))
			assert.Equal(t, tt.consumable, c.IsConsumable(tt.info, tt.runGroup))
		})
	}
}

func TestClassification_ConfiguredLanguagesIgnoreCase(t *testing.T) {
	c := New(store.NewMem(nil), nil, WithOptions(Options{
		ScriptLanguages: []string{"Starlark"},
		ToolbarLanguage: "Meld-Toolbar",
	}))
	doc := core.NewDocument("a.md", "~~~STARLARK meld-build\nx = 1\n~~~\n\n~~~Meld-Toolbar\nrun=Go\n~~~\n")

	op := c.CompileDocument(doc, "")
	require.Len(t, op.Runnable, 1)
	assert.Empty(t, op.Consumable)
	assert.Equal(t, []Button{{ID: ButtonRun, Label: "Go", Params: []string{}}}, op.Toolbar)
}

func TestCompileDocument(t *testing.T) {
	c := New(store.NewMem(nil), nil)
	doc := core.NewDocument("notes/build.md", `# Setup

~~~starlark meld-build
a = 1
b = 2
~~~

~~~json
{"k": 1}
~~~

## Finish

~~~starlark meld-build skip
ignored = True
~~~

~~~py meld-build
c = 3
~~~

~~~meld-build-toolbar
run|publish=Publish
~~~
`)

	op := c.CompileDocument(doc, "")

	assert.True(t, op.HasCode())
	assert.Equal(t, "a = 1\nb = 2\nc = 3", op.Source)
	assert.Equal(t, []SourceSpan{
		{Block: "Setup", StartLine: 1, EndLine: 2},
		{Block: "Finish", StartLine: 3, EndLine: 3},
	}, op.Spans)

	require.Len(t, op.Consumable, 2)
	assert.Equal(t, "json", op.Consumable[0].Info.Language)
	assert.Equal(t, "ignored = True", op.Consumable[1].Content)

	assert.Equal(t, []Button{{ID: "run", Label: "Publish", Params: []string{"publish"}}}, op.Toolbar)

	span, ok := op.BlockAt(3)
	require.True(t, ok)
	assert.Equal(t, "Finish", span.Block)
	_, ok = op.BlockAt(4)
	assert.False(t, ok)
}

func TestRun_NoRunnableCode(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.md": "# A\n\n~~~starlark meld-build draft\nx = 1\n~~~\n",
		"b.md": "# B\n\n~~~starlark\ny = 2\n~~~\n",
	}, nil)

	require.NoError(t, f.run(t, "a.md", "publish"))
	require.NoError(t, f.run(t, "b.md", ""))

	assert.Equal(t, []string{
		`No script blocks were found marked with "meld-build" in run group "publish"`,
		`No script blocks were found marked with "meld-build"`,
	}, f.prompt.Notices())
}

func TestCompile_MissingDocument(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.c.Compile(context.Background(), "missing.md", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.md")
}

func TestRun_EndToEnd(t *testing.T) {
	doc := `# Team

| Name | Age |
|------|-----|
| Ann  | 34  |
| Bob  | 27  |

## Card

~~~text
{* for p in data: *}- {{ p.name }} ({{ p.age }})
{* endfor *}
~~~

Summary: %%count=%%0%%=count%%

~~~starlark meld-build
people = ctx.data.team
ctx.markers.set("count", len(people))
changes = ctx.markers.apply()
card = ctx.blocks.find("Card")
ctx.io.output("out/team.md", ctx.render(card, people))
ctx.asserts.eq(2, len(people), "people")
ctx.asserts.eq("34", people[0].age)
ctx.asserts.is_defined(card)
ctx.log("changed", len(changes))
~~~
`
	f := newFixture(t, map[string]string{"notes/team.md": doc}, nil)

	require.NoError(t, f.run(t, "notes/team.md", ""))

	files := f.store.Files()
	assert.Contains(t, files["notes/team.md"], "Summary: %%count=%%2%%=count%%")
	assert.Contains(t, files["notes/out/team.md"], "- Ann (34)")
	assert.Contains(t, files["notes/out/team.md"], "- Bob (27)")
	assert.Empty(t, f.prompt.Messages())
}

func TestRun_ErrorRelay(t *testing.T) {
	doc := "# Broken\n\n~~~starlark meld-build\na = 1\nb = 2\nc = 3\nx = ctx.data.missing.rows\nd = 4\ne = 5\n~~~\n"
	f := newFixture(t, map[string]string{"broken.md": doc}, nil)

	err := f.run(t, "broken.md", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScript)
	assert.NotErrorIs(t, err, ErrAssertion)

	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 4, se.Line)
	assert.Equal(t, "Broken", se.Block)
	assert.Contains(t, se.Message, "missing")

	lines := splitNonEmpty(se.Excerpt)
	require.Len(t, lines, 6)
	assert.Equal(t, "   2: b = 2", lines[0])
	assert.Equal(t, "   3: c = 3", lines[1])
	assert.Equal(t, "   4: x = ctx.data.missing.rows", lines[2])
	assert.Contains(t, lines[3], "^--- "+se.Message)
	assert.Equal(t, "   5: d = 4", lines[4])
	assert.Equal(t, "   6: e = 5", lines[5])

	notices := f.prompt.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, "RUNTIME ERROR\n"+se.Excerpt+"\nSee the log for more details", notices[0])
}

func TestRun_SyntaxError(t *testing.T) {
	f := newFixture(t, map[string]string{"s.md": "~~~starlark meld-build\nok = 1\nif :\n~~~\n"}, nil)

	err := f.run(t, "s.md", "")
	var se *ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Line)
	assert.Equal(t, "s", se.Block)
}

func TestRun_AssertionFailure(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.md": "~~~starlark meld-build\nctx.asserts.is_true(1 > 2, \"ordering\")\n~~~\n",
	}, nil)

	err := f.run(t, "a.md", "")
	assert.ErrorIs(t, err, ErrScript)
	assert.ErrorIs(t, err, ErrAssertion)
	assert.Equal(t, []prompt.Message{{
		Title: "❗ Assert Failed - ordering",
		Body:  "Value was expected to be truthy",
	}}, f.prompt.Messages())
}

func TestAsserts(t *testing.T) {
	tests := []struct {
		name  string
		call  string
		fails string
	}{
		{"is_defined passes", `ctx.asserts.is_defined(0)`, ""},
		{"is_defined fails", `ctx.asserts.is_defined(None)`, "Value is not defined"},
		{"is_false passes", `ctx.asserts.is_false("")`, ""},
		{"is_false fails", `ctx.asserts.is_false([1])`, "Value was expected to be falsy"},
		{"eq loose", `ctx.asserts.eq("1", 1)`, ""},
		{"eq int float", `ctx.asserts.eq(2, 2.0)`, ""},
		{"eq fails", `ctx.asserts.eq("a", "b")`, "Expected: 'a' but got 'b'"},
		{"neq passes", `ctx.asserts.neq(1, 2)`, ""},
		{"neq fails", `ctx.asserts.neq("x", "x")`, "Values are equal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]string{"a.md": "~~~starlark meld-build\n" + tt.call + "\n~~~\n"}, nil)
			err := f.run(t, "a.md", "")
			if tt.fails == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrAssertion)
			require.Len(t, f.prompt.Messages(), 1)
			assert.Equal(t, "❗ Assert Failed", f.prompt.Messages()[0].Title)
			assert.Equal(t, tt.fails, f.prompt.Messages()[0].Body)
		})
	}
}

func TestRun_UI(t *testing.T) {
	script := `
color = ctx.ui.ask("Pick", ["red", "blue"])
size = ctx.ui.ask("Sizes", "Which size?", ["s", "m"])
ctx.ui.notice("picked " + color, timeout=1)
ctx.ui.message("Done", "all good")
ctx.ui.message("plain")
ctx.io.output("answers.txt", "%s %s" % (color, size))
`
	f := newFixture(t, map[string]string{"ui.md": "~~~starlark meld-build" + script + "~~~\n"}, []string{"blue"})

	require.NoError(t, f.run(t, "ui.md", ""))
	assert.Equal(t, "blue None", f.store.Files()["answers.txt"])
	assert.Equal(t, []string{"picked blue"}, f.prompt.Notices())
	assert.Equal(t, []prompt.Message{{Title: "Done", Body: "all good"}, {Body: "plain"}}, f.prompt.Messages())
}

func TestRun_IO(t *testing.T) {
	script := `
ok = ctx.io.include("shared.md")
bad = ctx.io.include("scores.csv")
ds = ctx.io.load_data("scores.csv")
named = ctx.io.load_data("scores.csv", "results")
empty = ctx.io.load_data("nothing.csv")
url = ctx.io.load_data_url("pic.png")
svg = ctx.io.load_data_url("pic.png", "image/svg+xml")
footer = ctx.blocks.find("Footer")
report = [
    str(ok), str(bad),
    str(len(ctx.data.prices)), str(len(ctx.data.scores)), str(len(ctx.data.results)), str(len(empty)),
    footer.content,
    url, svg,
    str(ctx.io.load("missing.txt")),
    ctx.io.load("shared.md").split("\n")[0],
]
ctx.io.delete("old.txt")
ctx.io.output("../escape.txt", "contained")
ctx.io.output("report.txt", "\n".join(report), open=True)
`
	var opened []string
	f := newFixture(t, map[string]string{
		"docs/main.md":    "~~~starlark meld-build" + script + "~~~\n",
		"docs/shared.md":  "# Prices\n\n| item | price |\n|---|---|\n| tea | 2.5 |\n\n## Footer\n\n~~~text\nthanks\n~~~\n",
		"docs/scores.csv": "name,score\nann,3\n",
		"docs/pic.png":    "abc",
		"docs/old.txt":    "stale",
	}, nil, WithOpener(OpenerFunc(func(_ context.Context, path string) error {
		opened = append(opened, path)
		return nil
	})))

	require.NoError(t, f.run(t, "docs/main.md", ""))

	files := f.store.Files()
	assert.Equal(t, "True\nFalse\n1\n1\n1\n0\nthanks\ndata:image/png;base64,YWJj\ndata:image/svg+xml;base64,YWJj\nNone\n# Prices", files["docs/report.txt"])
	assert.NotContains(t, files, "docs/old.txt")
	assert.Equal(t, "contained", files["docs/_/escape.txt"])
	assert.Equal(t, []string{"docs/report.txt"}, opened)
}

func TestRun_LoggerFile(t *testing.T) {
	script := `
ctx.logger.set_file("run.log.md")
ctx.log("hello", 3)
ctx.logger.error("line one\nline two")
print("printed")
`
	f := newFixture(t, map[string]string{
		"d/main.md":    "~~~starlark meld-build" + script + "~~~\n",
		"d/run.log.md": "old entry\n",
	}, nil)

	require.NoError(t, f.run(t, "d/main.md", ""))
	assert.Equal(t, "`[info] hello 3`\n```\n [error] line one\nline two\n```\n`[info] printed`\n", f.store.Files()["d/run.log.md"])
}

func TestRun_ConfiguredLogFileReceivesErrors(t *testing.T) {
	f := newFixture(t, map[string]string{
		"main.md": "~~~starlark meld-build\nfail(\"boom\")\n~~~\n",
	}, nil, WithOptions(Options{LogFile: "build.log.md"}))

	require.Error(t, f.run(t, "main.md", ""))
	log := f.store.Files()["build.log.md"]
	assert.Contains(t, log, "```json\n{\n")
	assert.Contains(t, log, `"level": "error"`)
	assert.Contains(t, log, "=== RUNTIME ERROR ===")
	assert.Contains(t, log, "=== FULL LISTING ===")
}

func TestRun_MarkdownTableAndIndex(t *testing.T) {
	script := `
rows = [[p.name, str(len(p.tags))] for p in ctx.dv.pages("notes")]
table = ctx.md.table(["<Page", ">Tags"], rows)
alpha = ctx.dv.page("notes/alpha")
ctx.markers.set("pages", table)
ctx.markers.set("status", alpha.metadata["status"])
ctx.markers.set("missing", str(ctx.dv.page("notes/nope")))
ctx.markers.apply()
`
	files := map[string]string{
		"main.md":        "%%pages=%%%%=pages%%\n%%status=%%%%=status%%\n%%missing=%%%%=missing%%\n\n~~~starlark meld-build" + script + "~~~\n",
		"notes/alpha.md": "---\nstatus: active\ntags: [a, b]\n---\nbody\n",
		"notes/beta.md":  "plain #x\n",
	}
	f := newFixture(t, files, nil)
	f.c.index = index.New(f.store.FS(), nil)

	require.NoError(t, f.run(t, "main.md", ""))
	out := f.store.Files()["main.md"]
	assert.Contains(t, out, "%%pages=%%\n| Page | Tags |\n|:---- | ----:|\n| alpha | 2 |\n| beta | 1 |\n%%=pages%%")
	assert.Contains(t, out, "%%status=%%active%%=status%%")
	assert.Contains(t, out, "%%missing=%%None%%=missing%%")
}

func TestRun_MarkersApplyClearsUnstaged(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{
			name:   "default clears every marker",
			script: "changes = ctx.markers.apply()\nctx.asserts.eq(2, len(changes))\n",
			want:   "%%a=%%%%=a%% %%b=%%%%=b%%\n",
		},
		{
			name:   "staged value kept, other cleared",
			script: "ctx.markers.set(\"a\", \"uno\")\nctx.markers.apply()\n",
			want:   "%%a=%%uno%%=a%% %%b=%%%%=b%%\n",
		},
		{
			name:   "clear_unknown false leaves unstaged",
			script: "ctx.markers.apply(clear_unknown=False)\n",
			want:   "%%a=%%one%%=a%% %%b=%%two%%=b%%\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]string{
				"target.md": "%%a=%%one%%=a%% %%b=%%two%%=b%%\n",
				"main.md":   "~~~starlark meld-build\nctx.markers.target_file(\"target.md\")\n" + tt.script + "~~~\n",
			}, nil)
			require.NoError(t, f.run(t, "main.md", ""))
			assert.Equal(t, tt.want, f.store.Files()["target.md"])
		})
	}
}

func TestRun_RenderErrorNamesBlock(t *testing.T) {
	doc := "## Card\n\n~~~text\nHello\n{{ nobody }}\n~~~\n\n~~~starlark meld-build\nctx.render(ctx.blocks.find(\"Card\"))\n~~~\n"
	f := newFixture(t, map[string]string{"main.md": doc}, nil)

	err := f.run(t, "main.md", "")
	require.ErrorIs(t, err, ErrScript)
	assert.Contains(t, err.Error(), "render: Card:2:1: expression failed")
}

func TestRun_MarkdownFromHTML(t *testing.T) {
	f := newFixture(t, map[string]string{
		"main.md": "%%body=%%%%=body%%\n\n~~~starlark meld-build\n" +
			"ctx.markers.set(\"body\", ctx.md.from_html(\"<p><strong>Hi</strong> there</p>\"))\n" +
			"ctx.markers.apply()\n~~~\n",
	}, nil)
	require.NoError(t, f.run(t, "main.md", ""))
	assert.Contains(t, f.store.Files()["main.md"], "%%body=%%**Hi** there%%=body%%")
}

func TestCompileDocument_RunIDs(t *testing.T) {
	c := New(store.NewMem(nil), nil)
	a := c.CompileDocument(core.NewDocument("a.md", ""), "")
	b := c.CompileDocument(core.NewDocument("a.md", ""), "")
	assert.Len(t, a.RunID, 36)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRun_DvDisabled(t *testing.T) {
	f := newFixture(t, map[string]string{
		"main.md": "~~~starlark meld-build\nctx.asserts.eq(None, ctx.dv)\n~~~\n",
	}, nil)
	require.NoError(t, f.run(t, "main.md", ""))
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t, map[string]string{
		"loop.md": "~~~starlark meld-build\nwhile True:\n    pass\n~~~\n",
	}, nil)
	op, err := f.c.Compile(context.Background(), "loop.md", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = op.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, ErrScript))
}

func TestRun_MaxSteps(t *testing.T) {
	f := newFixture(t, map[string]string{
		"loop.md": "~~~starlark meld-build\nwhile True:\n    pass\n~~~\n",
	}, nil, WithOptions(Options{MaxSteps: 1000}))

	err := f.run(t, "loop.md", "")
	assert.ErrorIs(t, err, ErrScript)
}
