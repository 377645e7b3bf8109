package template

import (
	"regexp"
	"slices"
)

var (
	forPattern  = regexp.MustCompile(`^for\s+([A-Za-z_]\w*)\s+in\s+(.+?)\s*:?$`)
	ifPattern   = regexp.MustCompile(`^if\s+(.+?)\s*:?$`)
	elifPattern = regexp.MustCompile(`^elif\s+(.+?)\s*:?$`)
	elsePattern = regexp.MustCompile(`^else\s*:?$`)
)

type stmtKind int

const (
	stmtFor stmtKind = iota + 1
	stmtEndFor
	stmtIf
	stmtElif
	stmtElse
	stmtEndIf
)

// stmt is a classified {* ... *} token.
type stmt struct {
	kind stmtKind
	name string // for: loop variable
	expr string // for: iterable; if/elif: condition
	at   Pos
}

// Parse reads the text of block into a Template.
func Parse(src, block string) (*Template, error) {
	toks, err := lex(src, block)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	nodes, end, err := p.body()
	if err != nil {
		return nil, err
	}
	if end != nil {
		return nil, unmatched(end)
	}
	return &Template{Block: block, nodes: nodes}, nil
}

type parser struct {
	toks []token
	i    int
}

// body collects nodes up to the end of input or the first statement in
// stops, which is returned. Any other closing statement is an error.
func (p *parser) body(stops ...stmtKind) ([]node, *stmt, error) {
	var nodes []node
	for p.i < len(p.toks) {
		tok := p.toks[p.i]
		p.i++

		switch tok.kind {
		case tokText:
			nodes = append(nodes, &textNode{at: tok.at, text: tok.val})
		case tokExpr:
			nodes = append(nodes, &exprNode{at: tok.at, expr: tok.val})
		case tokStmt:
			st, err := classify(tok)
			if err != nil {
				return nil, nil, err
			}
			var n node
			switch {
			case st.kind == stmtFor:
				n, err = p.forLoop(st)
			case st.kind == stmtIf:
				n, err = p.conditional(st)
			case slices.Contains(stops, st.kind):
				return nodes, st, nil
			default:
				return nil, nil, unmatched(st)
			}
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, n)
		}
	}
	return nodes, nil, nil
}

func (p *parser) forLoop(st *stmt) (*forNode, error) {
	body, end, err := p.body(stmtEndFor)
	if err != nil {
		return nil, err
	}
	if end == nil {
		return nil, syntaxErrorf(st.at, "unclosed 'for' block (missing 'endfor')")
	}
	return &forNode{at: st.at, name: st.name, iter: st.expr, body: body}, nil
}

func (p *parser) conditional(st *stmt) (*ifNode, error) {
	n := &ifNode{at: st.at}
	cur := branch{at: st.at, cond: st.expr}
	for {
		body, end, err := p.body(stmtElif, stmtElse, stmtEndIf)
		if err != nil {
			return nil, err
		}
		if end == nil {
			return nil, syntaxErrorf(st.at, "unclosed 'if' block (missing 'endif')")
		}
		cur.body = body
		n.branches = append(n.branches, cur)

		switch end.kind {
		case stmtElif:
			cur = branch{at: end.at, cond: end.expr}
		case stmtElse:
			rest, closing, err := p.body(stmtEndIf)
			if err != nil {
				return nil, err
			}
			if closing == nil {
				return nil, syntaxErrorf(st.at, "unclosed 'if' block (missing 'endif')")
			}
			n.otherwise = rest
			return n, nil
		default:
			return n, nil
		}
	}
}

func classify(tok token) (*stmt, error) {
	st := &stmt{at: tok.at}
	switch text := tok.val; {
	case text == "endfor":
		st.kind = stmtEndFor
	case text == "endif":
		st.kind = stmtEndIf
	case elsePattern.MatchString(text):
		st.kind = stmtElse
	default:
		if m := forPattern.FindStringSubmatch(text); m != nil {
			st.kind, st.name, st.expr = stmtFor, m[1], m[2]
		} else if m := elifPattern.FindStringSubmatch(text); m != nil {
			st.kind, st.expr = stmtElif, m[1]
		} else if m := ifPattern.FindStringSubmatch(text); m != nil {
			st.kind, st.expr = stmtIf, m[1]
		} else {
			return nil, syntaxErrorf(tok.at, "unknown statement %q", text)
		}
	}
	return st, nil
}

func unmatched(st *stmt) *Error {
	opener := map[stmtKind]string{stmtEndFor: "for", stmtEndIf: "if", stmtElse: "if", stmtElif: "if"}[st.kind]
	word := map[stmtKind]string{stmtEndFor: "endfor", stmtEndIf: "endif", stmtElse: "else", stmtElif: "elif"}[st.kind]
	return syntaxErrorf(st.at, "'%s' without matching '%s'", word, opener)
}
