package store

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*OSStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func TestOSStore_ReadWrite(t *testing.T) {
	s, dir := openTemp(t)

	require.NoError(t, s.Write("notes/out/report.md", "hello"))
	got, err := s.Read("notes/out/report.md")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	onDisk, err := os.ReadFile(filepath.Join(dir, "notes", "out", "report.md"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(onDisk))

	require.NoError(t, s.Write("notes/out/report.md", "replaced"))
	got, _ = s.Read("notes/out/report.md")
	assert.Equal(t, "replaced", got)
}

func TestOSStore_Append(t *testing.T) {
	s, _ := openTemp(t)

	require.NoError(t, s.Append("log.md", "a\n"))
	require.NoError(t, s.Append("log.md", "b\n"))
	got, err := s.Read("log.md")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", got)
}

func TestOSStore_ExistsAndDelete(t *testing.T) {
	s, _ := openTemp(t)
	require.NoError(t, s.Write("x.csv", "a,b"))

	info, ok := s.Exists("x.csv")
	require.True(t, ok)
	assert.Equal(t, int64(3), info.Size())

	require.NoError(t, s.Delete("x.csv"))
	_, ok = s.Exists("x.csv")
	assert.False(t, ok)
	assert.NoError(t, s.Delete("x.csv"), "deleting a missing file is not an error")

	_, err := s.Read("x.csv")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOSStore_ConfinedToRoot(t *testing.T) {
	s, dir := openTemp(t)
	outside := filepath.Join(filepath.Dir(dir), "escape.txt")

	require.NoError(t, s.Write("../escape.txt", "x"))
	_, err := os.Stat(outside)
	assert.True(t, os.IsNotExist(err), "write must stay inside the root")

	_, err = s.Rel(outside)
	assert.Error(t, err)

	rel, err := s.Rel(filepath.Join(dir, "a", "b.md"))
	require.NoError(t, err)
	assert.Equal(t, "a/b.md", rel)
}

func TestResolveRelative(t *testing.T) {
	tests := []struct {
		base, rel, want string
	}{
		{"notes", "data.csv", "notes/data.csv"},
		{"notes", "../secret.md", "notes/_/secret.md"},
		{".", "sub/x.md", "sub/x.md"},
		{"notes", "/abs.md", "notes/abs.md"},
		{"", "a.md", "a.md"},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRelative(tt.base, tt.rel))
		})
	}
}

func TestOSStore_FS(t *testing.T) {
	s, _ := openTemp(t)
	require.NoError(t, s.Write("a/b.md", "# hi"))

	b, err := fs.ReadFile(s.FS(), "a/b.md")
	require.NoError(t, err)
	assert.Equal(t, "# hi", string(b))
}
