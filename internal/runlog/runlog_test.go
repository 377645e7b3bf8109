package runlog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/meldbuild/internal/store"
)

func TestFormatEntry(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		message string
		attrs   map[string]any
		want    string
	}{
		{
			name:    "single line",
			level:   "info",
			message: "built 3 files",
			want:    "`[info] built 3 files`\n",
		},
		{
			name:    "multi line",
			level:   "error",
			message: "first\nsecond",
			want:    "```\n [error] first\nsecond\n```\n",
		},
		{
			name:    "structured",
			level:   "info",
			message: "totals",
			attrs:   map[string]any{"count": 2},
			want:    "```json\n{\n  \"count\": 2,\n  \"level\": \"info\",\n  \"msg\": \"totals\"\n}\n```\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEntry(tt.level, tt.message, tt.attrs))
		})
	}
}

func TestFormatEntry_StructuredBodyIsJSON(t *testing.T) {
	out := FormatEntry("error", "write failed", map[string]any{"err": errors.New("disk full"), "path": "out/a.md"})
	body, ok := strings.CutPrefix(out, "```json\n")
	require.True(t, ok, out)
	body, ok = strings.CutSuffix(body, "\n```\n")
	require.True(t, ok, out)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, map[string]any{"level": "error", "msg": "write failed", "err": "disk full", "path": "out/a.md"}, payload)
}

func TestLogger_SetFile(t *testing.T) {
	mem := store.NewMem(map[string]string{"notes/run.log.md": "old\n"})
	logger := New(slog.DiscardHandler, mem)

	logger.Info("before any file")
	assert.Equal(t, "old\n", mem.Files()["notes/run.log.md"])

	require.NoError(t, logger.SetFile("notes/run.log.md", false))
	logger.With(slog.String("run_id", "abc")).Info("kept")
	assert.Equal(t, "old\n`[info] kept`\n", mem.Files()["notes/run.log.md"])

	require.NoError(t, logger.SetFile("notes/run.log.md", true))
	logger.Error("failed", slog.String("step", "render"))
	assert.Equal(t, "```json\n{\n  \"level\": \"error\",\n  \"msg\": \"failed\",\n  \"step\": \"render\"\n}\n```\n", mem.Files()["notes/run.log.md"])

	require.NoError(t, logger.SetFile("", true))
	logger.Info("dropped")
	assert.Empty(t, logger.File())
	assert.NotContains(t, mem.Files()["notes/run.log.md"], "dropped")
}

func TestLogger_SetFileCreatesMissing(t *testing.T) {
	mem := store.NewMem(nil)
	logger := New(slog.DiscardHandler, mem)

	require.NoError(t, logger.SetFile("out/log.md", false))
	_, ok := mem.Exists("out/log.md")
	assert.True(t, ok)

	logger.Debug("below level")
	assert.Empty(t, mem.Files()["out/log.md"])
}
