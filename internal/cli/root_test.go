package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "inspect", "markers", "render", "watch", "toolbar", "history", "version", "completion"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestRootCommand_RunWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meldbuild.yaml"), []byte("activation_tag: go\ninteractive: never\n"), 0o600))
	notes := filepath.Join(dir, "notes")
	require.NoError(t, os.MkdirAll(notes, 0o750))
	doc := filepath.Join(notes, "doc.md")
	require.NoError(t, os.WriteFile(doc, []byte("# Doc\n\n~~~starlark go\nctx.io.output(\"out.txt\", \"ok\")\n~~~\n"), 0o600))

	_, _, err := executeRoot(t, "run", doc, "--verbose")
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(notes, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(content))
}

func TestRootCommand_FlagOverridesActivationTag(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(doc, []byte("~~~starlark custom\nctx.io.output(\"out.txt\", \"ok\")\n~~~\n"), 0o600))

	_, _, err := executeRoot(t, "run", doc, "--interactive", "never")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "out.txt"), "the default tag does not match")

	_, _, err = executeRoot(t, "run", doc, "--interactive", "never", "--activation-tag", "custom")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out.txt"))
}

func TestRootCommand_InspectJSON(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(doc, []byte("# Items\n\n| Item |\n| --- |\n| pen |\n"), 0o600))

	out, _, err := executeRoot(t, "inspect", doc, "-o", "json", "--interactive", "never")
	require.NoError(t, err)

	var tables []struct {
		Title string     `json:"title"`
		Rows  [][]string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &tables))
	require.Len(t, tables, 2)
	assert.Equal(t, "Datasets", tables[0].Title)
	assert.Equal(t, [][]string{{"items", "item", "1"}}, tables[0].Rows)
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meldbuild.yaml"), []byte("interactive: maybe\n"), 0o600))
	doc := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(doc, []byte("# Doc\n"), 0o600))

	_, _, err := executeRoot(t, "run", doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interactive")
}

func TestRootCommand_VersionSkipsConfig(t *testing.T) {
	out, _, err := executeRoot(t, "version", "--interactive", "bogus")
	require.NoError(t, err)
	assert.Contains(t, out, "meldbuild v"+Version)
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, _, err := executeRoot(t, "completion", shell)
			require.NoError(t, err)
			assert.NotEmpty(t, out)
		})
	}

	_, _, err := executeRoot(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestRootCommand_HistoryFlag(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(doc, []byte("# Doc\n\n~~~starlark meld-build\nx = 1\n~~~\n"), 0o600))

	_, _, err := executeRoot(t, "run", doc, "--interactive", "never", "--history")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, ".meldbuild", "history.db"))

	out, _, err := executeRoot(t, "history", doc, "--interactive", "never", "-o", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "doc.md")
	assert.Contains(t, out, "completed")
}
