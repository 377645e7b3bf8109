// Package template renders the text of document blocks as templates whose
// expressions are Starlark: {{ expr }} inserts a value and {* stmt *} drives
// for loops and if/elif/else branches. format_number and format_date are
// available to every expression.
package template

import "fmt"

// Pos locates a fragment of a template inside the block it was read from.
// Line and Column are 1-based.
type Pos struct {
	Block  string
	Line   int
	Column int
}

func (p Pos) String() string {
	if p.Block == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Block, p.Line, p.Column)
}

// Template is a parsed block, ready to execute any number of times.
type Template struct {
	Block string
	nodes []node
}

type node interface {
	pos() Pos
}

// textNode is literal block text, copied through.
type textNode struct {
	at   Pos
	text string
}

// exprNode is the source of a {{ expr }}.
type exprNode struct {
	at   Pos
	expr string
}

// forNode repeats body once per item of iter, bound to name.
type forNode struct {
	at   Pos
	name string
	iter string
	body []node
}

// ifNode renders the first branch whose condition holds, else otherwise.
// branches[0] is the if itself, the rest are elifs.
type ifNode struct {
	at        Pos
	branches  []branch
	otherwise []node
}

type branch struct {
	at   Pos
	cond string
	body []node
}

func (n *textNode) pos() Pos { return n.at }
func (n *exprNode) pos() Pos { return n.at }
func (n *forNode) pos() Pos  { return n.at }
func (n *ifNode) pos() Pos   { return n.at }
