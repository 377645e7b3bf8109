package compiler

import (
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/leapstack-labs/meldbuild/internal/parser"
	starctx "github.com/leapstack-labs/meldbuild/internal/starlark"
	"github.com/leapstack-labs/meldbuild/pkg/core"
)

// extensionMimeTypes maps file extensions to the mime types load_data_url
// infers. Other extensions give an empty mime type.
var extensionMimeTypes = map[string]string{
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"css":  "text/css",
}

func (rc *runContext) ioModule() starlark.Value {
	return &starlarkstruct.Module{
		Name: "io",
		Members: starlark.StringDict{
			"include":       starlark.NewBuiltin("include", rc.include),
			"load":          starlark.NewBuiltin("load", rc.load),
			"load_data":     starlark.NewBuiltin("load_data", rc.loadData),
			"load_data_url": starlark.NewBuiltin("load_data_url", rc.loadDataURL),
			"output":        starlark.NewBuiltin("output", rc.output),
			"open":          starlark.NewBuiltin("open", rc.open),
			"delete":        starlark.NewBuiltin("delete", rc.delete),
		},
	}
}

// include merges the tables and consumable blocks of another Markdown
// document into ctx.data and ctx.blocks. It returns False, after logging
// why, when the file is missing or not Markdown.
func (rc *runContext) include(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var rel string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &rel); err != nil {
		return nil, err
	}

	p := rc.path(rel)
	if _, ok := rc.c.store.Exists(p); !ok {
		rc.logger.Error(fmt.Sprintf("include: file not found: %q", rel))
		return starlark.False, nil
	}
	if ext(p) != "md" {
		rc.logger.Error(fmt.Sprintf("include: unsupported file extension: %q", rel))
		return starlark.False, nil
	}

	text, err := rc.c.store.Read(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	rc.includes.ApplyDocumentContent(basename(p), text, rc.op.Data, &rc.op.Consumable)
	return starlark.True, nil
}

// load returns the text of a file, or None when it does not exist.
func (rc *runContext) load(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var rel string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &rel); err != nil {
		return nil, err
	}
	p := rc.path(rel)
	if _, ok := rc.c.store.Exists(p); !ok {
		return starlark.None, nil
	}
	text, err := rc.c.store.Read(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.String(text), nil
}

// load_data reads a CSV file into a dataset and registers it in ctx.data
// under name, or the file's base name. Missing or non-CSV files give an
// empty, unregistered dataset.
func (rc *runContext) loadData(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var rel, name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &rel, "name?", &name); err != nil {
		return nil, err
	}

	p := rc.path(rel)
	if _, ok := rc.c.store.Exists(p); !ok || ext(p) != "csv" {
		return starctx.NewDataSet(core.NewDataSet(nil)), nil
	}
	text, err := rc.c.store.Read(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}

	ds := parser.ParseCSV(text)
	if name == "" {
		name = basename(p)
	}
	rc.op.Data.Put(name, ds)
	return starctx.NewDataSet(ds), nil
}

// load_data_url returns a file as a base64 data URL, or None when missing.
func (rc *runContext) loadDataURL(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var rel string
	var mimetype starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &rel, "mimetype?", &mimetype); err != nil {
		return nil, err
	}

	p := rc.path(rel)
	if _, ok := rc.c.store.Exists(p); !ok {
		return starlark.None, nil
	}
	content, err := rc.c.store.ReadBinary(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}

	mime, ok := starlark.AsString(mimetype)
	if !ok {
		mime = extensionMimeTypes[ext(p)]
	}
	return starlark.String("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(content)), nil
}

// output replaces file with content and optionally opens it.
func (rc *runContext) output(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var file string
	var content starlark.Value
	var open bool
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "file", &file, "content", &content, "open?", &open); err != nil {
		return nil, err
	}

	p := rc.path(file)
	if err := rc.c.store.Delete(p); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	if err := rc.c.store.Write(p, starctx.ToText(content)); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	rc.logger.Debug("output written", "path", p)

	if open {
		return rc.openPath(thread, b, p)
	}
	return starlark.None, nil
}

func (rc *runContext) open(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var link string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "link", &link); err != nil {
		return nil, err
	}
	return rc.openPath(thread, b, rc.path(link))
}

func (rc *runContext) openPath(thread *starlark.Thread, b *starlark.Builtin, p string) (starlark.Value, error) {
	if rc.c.opener == nil {
		rc.logger.Info("open " + p)
		return starlark.None, nil
	}
	if err := rc.c.opener.Open(starctx.ThreadContext(thread), p); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, nil
}

// delete removes a file. Missing files are ignored.
func (rc *runContext) delete(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var rel string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &rel); err != nil {
		return nil, err
	}
	p := rc.path(rel)
	if _, ok := rc.c.store.Exists(p); !ok {
		return starlark.None, nil
	}
	if err := rc.c.store.Delete(p); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, nil
}

func ext(p string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

func basename(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
