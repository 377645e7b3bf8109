package template

import (
	"maps"
	"strings"

	"go.starlark.net/starlark"

	starctx "github.com/leapstack-labs/meldbuild/internal/starlark"
)

// Execute renders t against ctx. Loop variables shadow ctx globals inside
// their loop only.
func (t *Template) Execute(ctx *starctx.ExecutionContext) (string, error) {
	x := &executor{ctx: ctx, block: t.Block}
	if err := x.nodes(t.nodes, nil); err != nil {
		return "", err
	}
	return x.out.String(), nil
}

// RenderString parses src as the text of block and executes it.
func RenderString(src, block string, ctx *starctx.ExecutionContext) (string, error) {
	t, err := Parse(src, block)
	if err != nil {
		return "", err
	}
	return t.Execute(ctx)
}

type executor struct {
	ctx   *starctx.ExecutionContext
	block string
	out   strings.Builder
}

func (x *executor) nodes(nodes []node, locals starlark.StringDict) error {
	for _, n := range nodes {
		if err := x.node(n, locals); err != nil {
			return err
		}
	}
	return nil
}

func (x *executor) node(n node, locals starlark.StringDict) error {
	switch n := n.(type) {
	case *textNode:
		x.out.WriteString(n.text)
	case *exprNode:
		s, err := x.ctx.EvalExprStringWithLocals(n.expr, x.block, n.at.Line, locals)
		if err != nil {
			return renderError(n.at, "expression failed", err)
		}
		x.out.WriteString(s)
	case *forNode:
		return x.loop(n, locals)
	case *ifNode:
		return x.conditional(n, locals)
	}
	return nil
}

func (x *executor) loop(n *forNode, locals starlark.StringDict) error {
	seq, err := x.ctx.EvalExprWithLocals(n.iter, x.block, n.at.Line, locals)
	if err != nil {
		return renderError(n.at, "for iterator failed", err)
	}
	iterable, ok := seq.(starlark.Iterable)
	if !ok {
		return &Error{Pos: n.at, Msg: "for: " + seq.Type() + " is not iterable", kind: ErrRender}
	}

	iter := iterable.Iterate()
	defer iter.Done()

	scope := make(starlark.StringDict, len(locals)+1)
	maps.Copy(scope, locals)
	var item starlark.Value
	for iter.Next(&item) {
		scope[n.name] = item
		if err := x.nodes(n.body, scope); err != nil {
			return err
		}
	}
	return nil
}

func (x *executor) conditional(n *ifNode, locals starlark.StringDict) error {
	for _, b := range n.branches {
		v, err := x.ctx.EvalExprWithLocals(b.cond, x.block, b.at.Line, locals)
		if err != nil {
			return renderError(b.at, "condition failed", err)
		}
		if v.Truth() {
			return x.nodes(b.body, locals)
		}
	}
	return x.nodes(n.otherwise, locals)
}
