package parser

import (
	"fmt"
	"strconv"
	"strings"

	quadstore "github.com/gooofy/quadstore"
	"github.com/gooofy/quadstore/sparql"
)

// defaultPrefixes mirrors the handful of namespaces SPARQL tooling treats as
// ambient even without an explicit PREFIX line.
var defaultPrefixes = map[string]string{
	"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
	"xsd":  "http://www.w3.org/2001/XMLSchema#",
	"owl":  "http://www.w3.org/2002/07/owl#",
}

type parser struct {
	toks     []token
	pos      int
	prefixes map[string]string
}

// Parse compiles a SELECT query string into a sparql.Node algebra tree. It
// rejects dataset clauses (FROM / FROM NAMED) and anything else outside the
// closed algebra named in §4.C with errors that wrap ErrMalformed (and through
// it quadstore.ErrMalformedInput); LANG() applied to a non-variable is
// reported as quadstore.ErrUnsupportedExpression instead.
func Parse(query string) (*sparql.Node, error) {
	toks, err := Lex(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	p := &parser{toks: toks, prefixes: cloneDefaults()}
	return p.parseQuery()
}

func cloneDefaults() map[string]string {
	m := make(map[string]string, len(defaultPrefixes))
	for k, v := range defaultPrefixes {
		m[k] = v
	}
	return m
}

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) isKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return fmt.Errorf("%w: expected %s, got %q", errMalformed, kw, p.cur().text)
	}
	p.next()
	return nil
}

func (p *parser) expectPunct(s string) error {
	t := p.cur()
	if t.kind != tokPunct || t.text != s {
		return fmt.Errorf("%w: expected %q, got %q", errMalformed, s, t.text)
	}
	p.next()
	return nil
}

// errMalformed wraps quadstore.ErrMalformedInput, so every parse error
// matches both ErrMalformed and quadstore.ErrMalformedInput with errors.Is.
var errMalformed = fmt.Errorf("parser: malformed SPARQL query: %w", quadstore.ErrMalformedInput)

// ErrMalformed is the exported handle callers use with errors.Is/errors.As.
var ErrMalformed = errMalformed

func (p *parser) parseQuery() (*sparql.Node, error) {
	for p.isKeyword("PREFIX") {
		p.next()
		t := p.cur()
		if t.kind != tokPNameNS {
			return nil, fmt.Errorf("%w: expected prefix name after PREFIX", errMalformed)
		}
		p.next()
		iri := p.cur()
		if iri.kind != tokIRIRef {
			return nil, fmt.Errorf("%w: expected IRIREF after prefix name", errMalformed)
		}
		p.next()
		p.prefixes[t.text] = iri.text
	}

	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}

	distinct := false
	if p.isKeyword("DISTINCT") {
		p.next()
		distinct = true
	}

	var pv []string
	if p.cur().kind == tokPunct && p.cur().text == "*" {
		p.next()
		pv = nil // "*" is select-all; filled from the pattern's variables after WHERE is parsed
	} else {
		for p.cur().kind == tokVar {
			pv = append(pv, p.next().text)
		}
		if len(pv) == 0 {
			return nil, fmt.Errorf("%w: SELECT needs a variable list or *", errMalformed)
		}
	}

	if p.isKeyword("FROM") {
		return nil, fmt.Errorf("%w: FROM dataset clauses are not supported", errMalformed)
	}

	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	body, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}

	if pv == nil {
		pv = collectVars(body)
	}

	p1 := body
	if distinct {
		p1 = &sparql.Node{Op: sparql.OpDistinct, Child: p1}
	}
	p1 = &sparql.Node{Op: sparql.OpProject, Child: p1, PV: pv}

	hasLimit, limit, hasOffset, offset := false, 0, false, 0
	// LIMIT/OFFSET may appear in either order.
	for i := 0; i < 2; i++ {
		switch {
		case p.isKeyword("LIMIT") && !hasLimit:
			p.next()
			n, err := p.parseInt()
			if err != nil {
				return nil, err
			}
			hasLimit, limit = true, n
		case p.isKeyword("OFFSET") && !hasOffset:
			p.next()
			n, err := p.parseInt()
			if err != nil {
				return nil, err
			}
			hasOffset, offset = true, n
		}
	}
	if hasLimit || hasOffset {
		p1 = &sparql.Node{
			Op: sparql.OpSlice, Child: p1,
			HasStart: hasOffset, Start: offset,
			HasLength: hasLimit, Length: limit,
		}
	}

	if p.cur().kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected trailing input %q", errMalformed, p.cur().text)
	}

	return &sparql.Node{Op: sparql.OpSelectQuery, Child: p1, PV: pv}, nil
}

func (p *parser) parseInt() (int, error) {
	t := p.cur()
	if t.kind != tokInteger {
		return 0, fmt.Errorf("%w: expected integer, got %q", errMalformed, t.text)
	}
	p.next()
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return n, nil
}

// parseGroupGraphPattern reads a sequence of triples blocks, OPTIONAL
// groups and FILTER clauses, combining them per the standard translation:
// consecutive triples merge into one BGP, each OPTIONAL wraps the
// accumulated pattern in a LeftJoin (its own FILTER, if present, becomes the
// LeftJoin's join condition), and each top-level FILTER wraps the
// accumulated pattern in a Filter node.
func (p *parser) parseGroupGraphPattern() (*sparql.Node, error) {
	var acc *sparql.Node
	var pendingTriples []sparql.Triple

	flushTriples := func() {
		if len(pendingTriples) == 0 {
			return
		}
		bgp := &sparql.Node{Op: sparql.OpBGP, Triples: pendingTriples}
		pendingTriples = nil
		if acc == nil {
			acc = bgp
		} else {
			acc = &sparql.Node{Op: sparql.OpLeftJoin, Left: acc, Right: bgp, Expr: trueExpr()}
		}
	}

	for {
		t := p.cur()
		if t.kind == tokPunct && t.text == "}" {
			break
		}
		if t.kind == tokEOF {
			return nil, fmt.Errorf("%w: unterminated group graph pattern", errMalformed)
		}

		switch {
		case p.isKeyword("OPTIONAL"):
			flushTriples()
			p.next()
			if err := p.expectPunct("{"); err != nil {
				return nil, err
			}
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("}"); err != nil {
				return nil, err
			}
			cond := trueExpr()
			if f, ok := stripFilter(inner); ok {
				inner = f.child
				cond = f.expr
			}
			if acc == nil {
				acc = &sparql.Node{Op: sparql.OpBGP}
			}
			acc = &sparql.Node{Op: sparql.OpLeftJoin, Left: acc, Right: inner, Expr: cond}

		case p.isKeyword("FILTER"):
			p.next()
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			flushTriples()
			if acc == nil {
				acc = &sparql.Node{Op: sparql.OpBGP}
			}
			acc = &sparql.Node{Op: sparql.OpFilter, Child: acc, Expr: expr}

		case t.kind == tokPunct && t.text == ".":
			p.next()

		default:
			tr, err := p.parseTriple()
			if err != nil {
				return nil, err
			}
			pendingTriples = append(pendingTriples, tr)
			if p.cur().kind == tokPunct && p.cur().text == "." {
				p.next()
			}
		}
	}

	flushTriples()
	if acc == nil {
		acc = &sparql.Node{Op: sparql.OpBGP}
	}
	return acc, nil
}

type filterShape struct {
	child *sparql.Node
	expr  *sparql.Expr
}

func stripFilter(n *sparql.Node) (filterShape, bool) {
	if n.Op == sparql.OpFilter {
		return filterShape{child: n.Child, expr: n.Expr}, true
	}
	return filterShape{}, false
}

func trueExpr() *sparql.Expr { return &sparql.Expr{Op: sparql.ExprTrue} }

func (p *parser) parseTriple() (sparql.Triple, error) {
	s, err := p.parseVarOrTerm()
	if err != nil {
		return sparql.Triple{}, err
	}
	pr, err := p.parsePredicate()
	if err != nil {
		return sparql.Triple{}, err
	}
	o, err := p.parseVarOrTerm()
	if err != nil {
		return sparql.Triple{}, err
	}
	return sparql.Triple{S: s, P: pr, O: o}, nil
}

func (p *parser) parsePredicate() (sparql.PatternTerm, error) {
	if p.cur().kind == tokIdent && p.cur().text == "a" {
		p.next()
		return sparql.PatternTerm{Kind: sparql.TermIRI, Value: p.prefixes["rdf"] + "type"}, nil
	}
	return p.parseVarOrTerm()
}

func (p *parser) parseVarOrTerm() (sparql.PatternTerm, error) {
	t := p.cur()
	switch t.kind {
	case tokVar:
		p.next()
		return sparql.PatternTerm{Kind: sparql.TermVariable, Value: t.text}, nil
	case tokIRIRef:
		p.next()
		return sparql.PatternTerm{Kind: sparql.TermIRI, Value: t.text}, nil
	case tokPNameLN:
		p.next()
		iri, err := p.expandPName(t.text)
		if err != nil {
			return sparql.PatternTerm{}, err
		}
		return sparql.PatternTerm{Kind: sparql.TermIRI, Value: iri}, nil
	case tokString:
		p.next()
		return sparql.PatternTerm{Kind: sparql.TermLiteral, Value: t.text, Lang: t.lang, Datatype: p.resolveDatatype(t.datatype)}, nil
	default:
		return sparql.PatternTerm{}, fmt.Errorf("%w: expected variable, IRI or literal, got %q", errMalformed, t.text)
	}
}

func (p *parser) resolveDatatype(dt string) string {
	if dt == "" {
		return ""
	}
	if strings.Contains(dt, "://") {
		return dt
	}
	iri, err := p.expandPName(dt)
	if err != nil {
		return dt
	}
	return iri
}

func (p *parser) expandPName(pname string) (string, error) {
	idx := strings.IndexByte(pname, ':')
	if idx < 0 {
		return "", fmt.Errorf("%w: malformed prefixed name %q", errMalformed, pname)
	}
	ns, local := pname[:idx], pname[idx+1:]
	base, ok := p.prefixes[ns]
	if !ok {
		return "", fmt.Errorf("%w: undeclared prefix %q", errMalformed, ns)
	}
	return base + local, nil
}

// --- filter expressions ---

func (p *parser) parseExpression() (*sparql.Expr, error) {
	return p.parseConditionalOr()
}

func (p *parser) parseConditionalOr() (*sparql.Expr, error) {
	first, err := p.parseConditionalAnd()
	if err != nil {
		return nil, err
	}
	operands := []*sparql.Expr{first}
	for p.cur().kind == tokOp && p.cur().text == "||" {
		p.next()
		next, err := p.parseConditionalAnd()
		if err != nil {
			return nil, err
		}
		operands = append(operands, next)
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return &sparql.Expr{Op: sparql.ExprOr, Operands: operands}, nil
}

func (p *parser) parseConditionalAnd() (*sparql.Expr, error) {
	first, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	operands := []*sparql.Expr{first}
	for p.cur().kind == tokOp && p.cur().text == "&&" {
		p.next()
		next, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		operands = append(operands, next)
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return &sparql.Expr{Op: sparql.ExprAnd, Operands: operands}, nil
}

func (p *parser) parseRelational() (*sparql.Expr, error) {
	lhs, err := p.parsePrimaryExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tokOp {
		op, ok := relOpFor(p.cur().text)
		if ok {
			p.next()
			rhs, err := p.parsePrimaryExpr()
			if err != nil {
				return nil, err
			}
			return &sparql.Expr{Op: sparql.ExprRelational, RelOp: op, LHS: lhs, RHS: rhs}, nil
		}
	}
	if p.cur().kind == tokIdent && strings.EqualFold(p.cur().text, "is") {
		p.next()
		rhs, err := p.parsePrimaryExpr()
		if err != nil {
			return nil, err
		}
		return &sparql.Expr{Op: sparql.ExprRelational, RelOp: sparql.RelIs, LHS: lhs, RHS: rhs}, nil
	}
	return lhs, nil
}

func relOpFor(s string) (sparql.RelOp, bool) {
	switch s {
	case "=":
		return sparql.RelEquals, true
	case "!=":
		return sparql.RelNotEquals, true
	case ">":
		return sparql.RelGreaterThan, true
	case ">=":
		return sparql.RelGreaterOrEqual, true
	case "<":
		return sparql.RelLessThan, true
	case "<=":
		return sparql.RelLessOrEqual, true
	default:
		return 0, false
	}
}

func (p *parser) parsePrimaryExpr() (*sparql.Expr, error) {
	t := p.cur()
	switch {
	case t.kind == tokIdent && strings.EqualFold(t.text, "LANG"):
		p.next()
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		if arg.Op != sparql.ExprVariable {
			return nil, fmt.Errorf("%w: LANG() argument must be a variable", quadstore.ErrUnsupportedExpression)
		}
		return &sparql.Expr{Op: sparql.ExprLangCall, Arg: arg, Variable: arg.Variable}, nil

	case t.kind == tokPunct && t.text == "(":
		p.next()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return inner, nil

	case t.kind == tokVar:
		p.next()
		return &sparql.Expr{Op: sparql.ExprVariable, Variable: t.text}, nil

	case t.kind == tokIRIRef:
		p.next()
		return &sparql.Expr{Op: sparql.ExprIRI, IRI: t.text}, nil

	case t.kind == tokPNameLN:
		p.next()
		iri, err := p.expandPName(t.text)
		if err != nil {
			return nil, err
		}
		return &sparql.Expr{Op: sparql.ExprIRI, IRI: iri}, nil

	case t.kind == tokString:
		p.next()
		return &sparql.Expr{Op: sparql.ExprLiteral, Lexical: t.text}, nil

	case t.kind == tokInteger:
		p.next()
		return &sparql.Expr{Op: sparql.ExprLiteral, Lexical: t.text}, nil

	default:
		return nil, fmt.Errorf("%w: unexpected token %q in expression", errMalformed, t.text)
	}
}

func collectVars(n *sparql.Node) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(*sparql.Node)
	walk = func(n *sparql.Node) {
		if n == nil {
			return
		}
		for _, tr := range n.Triples {
			for _, pt := range []sparql.PatternTerm{tr.S, tr.P, tr.O} {
				if pt.Kind == sparql.TermVariable && !seen[pt.Value] {
					seen[pt.Value] = true
					out = append(out, pt.Value)
				}
			}
		}
		walk(n.Child)
		walk(n.Left)
		walk(n.Right)
	}
	walk(n)
	return out
}
