package compiler

import (
	"errors"
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/leapstack-labs/meldbuild/internal/index"
	starctx "github.com/leapstack-labs/meldbuild/internal/starlark"
)

// dvModule exposes the document index, or None when there is none.
func (rc *runContext) dvModule() starlark.Value {
	ix := rc.c.index
	if ix == nil {
		return starlark.None
	}

	return &starlarkstruct.Module{
		Name: "dv",
		Members: starlark.StringDict{
			"pages": starlark.NewBuiltin("pages", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var folder string
				if err := starlark.UnpackArgs(b.Name(), args, kwargs, "folder?", &folder); err != nil {
					return nil, err
				}
				pages, err := ix.Pages(folder)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", b.Name(), err)
				}
				list := make([]starlark.Value, len(pages))
				for i, p := range pages {
					list[i] = pageValue(p)
				}
				return starlark.NewList(list), nil
			}),
			"page": starlark.NewBuiltin("page", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var p string
				if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &p); err != nil {
					return nil, err
				}
				page, err := ix.Page(p)
				if errors.Is(err, index.ErrPageNotFound) {
					return starlark.None, nil
				}
				if err != nil {
					return nil, fmt.Errorf("%s: %w", b.Name(), err)
				}
				return pageValue(page), nil
			}),
		},
	}
}

func pageValue(p index.Page) starlark.Value {
	meta, err := starctx.GoToStarlark(p.Metadata)
	if err != nil {
		dict := starlark.NewDict(len(p.Metadata))
		for k, v := range p.Metadata {
			_ = dict.SetKey(starlark.String(k), starlark.String(fmt.Sprint(v)))
		}
		meta = dict
	}
	tags, _ := starctx.GoToStarlark(p.Tags)
	return starlarkstruct.FromStringDict(starlark.String("page"), starlark.StringDict{
		"name":     starlark.String(p.Name),
		"path":     starlark.String(p.Path),
		"folder":   starlark.String(p.Folder),
		"metadata": meta,
		"tags":     tags,
	})
}
