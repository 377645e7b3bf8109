// Package index provides a read-only index over the Markdown documents in a
// folder tree: page names, paths, frontmatter metadata and tags.
package index

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// ErrPageNotFound is returned by Page for a path with no document.
var ErrPageNotFound = errors.New("page not found")

// Page is one indexed document.
type Page struct {
	Name     string
	Path     string
	Folder   string
	Metadata map[string]any
	Tags     []string
}

// Index reads pages from an fs.FS on every query, so edits are always
// visible.
type Index struct {
	fsys   fs.FS
	logger *slog.Logger
}

// yamlFormat decodes "---" delimited frontmatter with yaml.v3.
var yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

var inlineTag = regexp.MustCompile(`(?:^|\s)#([\p{L}\p{N}_/-]*[\p{L}_/-][\p{L}\p{N}_/-]*)`)

// New creates an Index over fsys.
func New(fsys fs.FS, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Index{fsys: fsys, logger: logger}
}

// Pages returns every page beneath folder ("" for all), ordered by path.
// Documents with unreadable frontmatter are skipped.
func (ix *Index) Pages(folder string) ([]Page, error) {
	root := strings.Trim(path.Clean("/"+folder), "/")
	if root == "" {
		root = "."
	}

	var pages []Page
	err := fs.WalkDir(ix.fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !isMarkdown(p) {
			return nil
		}
		page, err := ix.load(p)
		if err != nil {
			ix.logger.Warn("skipping page", slog.String("path", p), slog.String("error", err.Error()))
			return nil
		}
		pages = append(pages, page)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", folder, err)
	}

	slices.SortFunc(pages, func(a, b Page) int { return strings.Compare(a.Path, b.Path) })
	return pages, nil
}

// Page returns the page at p. The ".md" extension may be omitted.
func (ix *Index) Page(p string) (Page, error) {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if !isMarkdown(p) {
		p += ".md"
	}
	page, err := ix.load(p)
	if errors.Is(err, fs.ErrNotExist) {
		return Page{}, fmt.Errorf("%s: %w", p, ErrPageNotFound)
	}
	return page, err
}

func (ix *Index) load(p string) (Page, error) {
	content, err := fs.ReadFile(ix.fsys, p)
	if err != nil {
		return Page{}, err
	}

	meta := map[string]any{}
	body, err := frontmatter.Parse(bytes.NewReader(content), &meta, yamlFormat)
	if err != nil {
		return Page{}, fmt.Errorf("parse frontmatter: %w", err)
	}

	folder := path.Dir(p)
	if folder == "." {
		folder = ""
	}
	return Page{
		Name:     strings.TrimSuffix(path.Base(p), path.Ext(p)),
		Path:     p,
		Folder:   folder,
		Metadata: meta,
		Tags:     collectTags(meta, body),
	}, nil
}

// collectTags merges the frontmatter "tags" (list or space/comma separated
// string) with inline #tags outside code fences. Tags are returned with a
// leading "#", deduplicated in first-seen order.
func collectTags(meta map[string]any, body []byte) []string {
	var tags []string
	switch v := meta["tags"].(type) {
	case string:
		tags = append(tags, strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })...)
	case []any:
		for _, t := range v {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
	}

	inFence := false
	for _, line := range strings.Split(string(body), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		for _, m := range inlineTag.FindAllStringSubmatch(line, -1) {
			tags = append(tags, m[1])
		}
	}

	tags = lo.Map(tags, func(t string, _ int) string {
		return "#" + strings.TrimPrefix(strings.TrimSpace(t), "#")
	})
	tags = lo.Filter(tags, func(t string, _ int) bool { return t != "#" })
	return lo.Uniq(tags)
}

func isMarkdown(p string) bool {
	return strings.EqualFold(path.Ext(p), ".md")
}
