package index

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"projects/alpha.md": {Data: []byte("---\nstatus: active\nowner: Dana\ntags: [work, q3]\n---\n# Alpha\n\nNotes #review here.\n")},
		"projects/beta.md":  {Data: []byte("---\nstatus: done\ntags: work\n---\nBody\n\n```\n#notatag\n```\n")},
		"daily/today.md":    {Data: []byte("No frontmatter, #daily tag\n")},
		"projects/data.csv": {Data: []byte("a,b\n1,2\n")},
		".hidden/secret.md": {Data: []byte("hidden\n")},
	}
}

func TestPages(t *testing.T) {
	ix := New(testFS(), nil)

	t.Run("all pages ordered by path", func(t *testing.T) {
		pages, err := ix.Pages("")
		require.NoError(t, err)

		var paths []string
		for _, p := range pages {
			paths = append(paths, p.Path)
		}
		assert.Equal(t, []string{"daily/today.md", "projects/alpha.md", "projects/beta.md"}, paths)
	})

	t.Run("folder filter", func(t *testing.T) {
		pages, err := ix.Pages("projects")
		require.NoError(t, err)
		require.Len(t, pages, 2)
		assert.Equal(t, "alpha", pages[0].Name)
		assert.Equal(t, "projects", pages[0].Folder)
		assert.Equal(t, "active", pages[0].Metadata["status"])
		assert.Equal(t, "Dana", pages[0].Metadata["owner"])
	})

	t.Run("missing folder", func(t *testing.T) {
		pages, err := ix.Pages("nowhere")
		require.NoError(t, err)
		assert.Empty(t, pages)
	})
}

func TestPage(t *testing.T) {
	ix := New(testFS(), nil)

	page, err := ix.Page("projects/alpha")
	require.NoError(t, err)
	assert.Equal(t, "projects/alpha.md", page.Path)
	assert.Equal(t, []string{"#work", "#q3", "#review"}, page.Tags)

	page, err = ix.Page("daily/today.md")
	require.NoError(t, err)
	assert.Empty(t, page.Metadata)
	assert.Equal(t, []string{"#daily"}, page.Tags)

	_, err = ix.Page("projects/gamma")
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestCollectTags_IgnoresFencedCode(t *testing.T) {
	ix := New(testFS(), nil)

	page, err := ix.Page("projects/beta.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"#work"}, page.Tags)
}
