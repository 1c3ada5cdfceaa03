// Package compiler implements the Algebra Compiler (§4.C): a single
// post-order walk over a sparql.Node tree that emits nested SQL sub-selects,
// one level of SELECT ... FROM (...) AS alias per algebra node, the way
// sparqlalchemy.py's _algebra2alchemy builds nested sqlalchemy .alias()
// selects. There is no query planner or cost model: the shape of the
// algebra tree IS the shape of the compiled SQL.
//
// The writer itself follows the bytes.Buffer-accumulating compilerContext
// pattern GraphJin's internal/psql query compiler uses (core/internal/psql/query.go),
// scaled down to this store's single-table, nested-subquery shape.
package compiler

import (
	"bytes"
	"fmt"
	"strings"

	quadstore "github.com/gooofy/quadstore"
	"github.com/gooofy/quadstore/internal/dialect"
	"github.com/gooofy/quadstore/sparql"
)

// ErrUnsupportedAlgebra and ErrUnsupportedExpression are re-exported here so
// callers that only import the compiler package can still errors.Is against
// them without reaching into the root package.
var (
	ErrUnsupportedAlgebra    = quadstore.ErrUnsupportedAlgebra
	ErrUnsupportedExpression = quadstore.ErrUnsupportedExpression
)

// Compiled is the output of compiling one SelectQuery node: the SQL text
// ready to run through database/sql, its positional arguments, and the
// variable bindings the Result Materializer needs to read rows back out.
type Compiled struct {
	SQL  string
	Args []interface{}
	Vars VarSet
}

// Compiler renders sparql.Node algebra trees into dialect-specific SQL
// against a single quads table.
type Compiler struct {
	Dialect dialect.Dialect
	Table   string
}

// New returns a Compiler bound to the given table name and dialect.
func New(d dialect.Dialect, table string) *Compiler {
	return &Compiler{Dialect: d, Table: table}
}

// compilerContext accumulates bind arguments and hands out fresh subquery
// aliases while a single Compile call is in flight.
type compilerContext struct {
	dialect dialect.Dialect
	table   string
	args    []interface{}
	aliasN  int
}

func (c *compilerContext) bind(v interface{}) string {
	c.args = append(c.args, v)
	return c.dialect.Placeholder(len(c.args))
}

func (c *compilerContext) newAlias() string {
	c.aliasN++
	return fmt.Sprintf("t%d", c.aliasN)
}

func (c *compilerContext) quote(ident string) string {
	return c.dialect.Quote(ident)
}

// Compile renders a SelectQuery algebra node into SQL. Any other root node
// shape, or an unrecognized AlgebraOp reached anywhere in the tree, returns
// a compiler.ErrUnsupportedAlgebra-wrapped error.
func (c *Compiler) Compile(n *sparql.Node) (Compiled, error) {
	if n == nil || n.Op != sparql.OpSelectQuery {
		return Compiled{}, fmt.Errorf("%w: root node must be SelectQuery", ErrUnsupportedAlgebra)
	}
	ctx := &compilerContext{dialect: c.Dialect, table: c.Table}
	sql, vars, err := ctx.compile(n)
	if err != nil {
		return Compiled{}, err
	}
	return Compiled{SQL: sql, Args: ctx.args, Vars: vars}, nil
}

func (c *compilerContext) compile(n *sparql.Node) (string, VarSet, error) {
	switch n.Op {
	case sparql.OpSelectQuery:
		return c.compileProjectLike(n.Child, n.PV)
	case sparql.OpProject:
		return c.compileProjectLike(n.Child, n.PV)
	case sparql.OpDistinct:
		return c.compileDistinctLike(n.Child, true, false, 0, false, 0)
	case sparql.OpSlice:
		return c.compileSlice(n)
	case sparql.OpFilter:
		return c.compileFilter(n)
	case sparql.OpLeftJoin:
		return c.compileLeftJoin(n)
	case sparql.OpBGP:
		return c.compileBGP(n)
	default:
		return "", VarSet{}, fmt.Errorf("%w: %s", ErrUnsupportedAlgebra, n.Op)
	}
}

// projection column list: id column, then every bound var, then its lang/dt
// companions if present. This exact column order (id, vars, langs, dts) is
// the order sparqlalchemy.py's sel_list construction uses at every level.
func (c *compilerContext) selectList(vars VarSet, fromAlias string) string {
	var cols []string
	cols = append(cols, fmt.Sprintf("%s.%s AS %s", fromAlias, c.quote(idColumn), c.quote(idColumn)))
	for _, v := range vars.Vars {
		cols = append(cols, fmt.Sprintf("%s.%s AS %s", fromAlias, c.quote(v), c.quote(v)))
	}
	for _, v := range vars.Vars {
		if vars.Lang[v] {
			cols = append(cols, fmt.Sprintf("%s.%s AS %s", fromAlias, c.quote(v+"_lang"), c.quote(v+"_lang")))
		}
	}
	for _, v := range vars.Vars {
		if vars.Dts[v] {
			cols = append(cols, fmt.Sprintf("%s.%s AS %s", fromAlias, c.quote(v+"_dt"), c.quote(v+"_dt")))
		}
	}
	return strings.Join(cols, ", ")
}

// compileProjectLike handles both SelectQuery and Project: restrict the
// child's VarSet down to PV (or pass all through when PV is empty, i.e. a
// "SELECT *" query), re-labeling every exposed column to its variable name.
func (c *compilerContext) compileProjectLike(child *sparql.Node, pv []string) (string, VarSet, error) {
	childSQL, childVars, err := c.compile(child)
	if err != nil {
		return "", VarSet{}, err
	}
	alias := c.newAlias()

	out := newVarSet()
	names := pv
	if len(names) == 0 {
		names = childVars.Vars
	}
	for _, v := range names {
		if !childVars.has(v) {
			continue
		}
		out.add(v)
		if childVars.Lang[v] {
			out.Lang[v] = true
		}
		if childVars.Dts[v] {
			out.Dts[v] = true
		}
	}

	var buf bytes.Buffer
	buf.WriteString("SELECT ")
	buf.WriteString(c.selectList(out, alias))
	buf.WriteString(" FROM (")
	buf.WriteString(childSQL)
	buf.WriteString(") AS ")
	buf.WriteString(alias)
	return buf.String(), out, nil
}

// compileDistinctLike implements Distinct and (via compileSlice) Slice,
// both of which re-pick an arbitrary bound variable as the id column when
// one exists (duplicate detection / pagination no longer make sense against
// the original per-quad row id once rows have been deduplicated or sliced).
func (c *compilerContext) compileDistinctLike(child *sparql.Node, distinct bool, hasOffset bool, offset int, hasLimit bool, limit int) (string, VarSet, error) {
	childSQL, childVars, err := c.compile(child)
	if err != nil {
		return "", VarSet{}, err
	}
	alias := c.newAlias()

	idExpr := fmt.Sprintf("%s.%s", alias, c.quote(idColumn))
	if len(childVars.Vars) > 0 {
		idExpr = fmt.Sprintf("%s.%s", alias, c.quote(childVars.Vars[0]))
	}

	var cols []string
	cols = append(cols, fmt.Sprintf("%s AS %s", idExpr, c.quote(idColumn)))
	for _, v := range childVars.Vars {
		cols = append(cols, fmt.Sprintf("%s.%s AS %s", alias, c.quote(v), c.quote(v)))
	}
	for _, v := range childVars.Vars {
		if childVars.Lang[v] {
			cols = append(cols, fmt.Sprintf("%s.%s AS %s", alias, c.quote(v+"_lang"), c.quote(v+"_lang")))
		}
	}
	for _, v := range childVars.Vars {
		if childVars.Dts[v] {
			cols = append(cols, fmt.Sprintf("%s.%s AS %s", alias, c.quote(v+"_dt"), c.quote(v+"_dt")))
		}
	}

	var buf bytes.Buffer
	buf.WriteString("SELECT ")
	if distinct {
		buf.WriteString("DISTINCT ")
	}
	buf.WriteString(strings.Join(cols, ", "))
	buf.WriteString(" FROM (")
	buf.WriteString(childSQL)
	buf.WriteString(") AS ")
	buf.WriteString(alias)
	if hasOffset {
		fmt.Fprintf(&buf, " OFFSET %d", offset)
	}
	if hasLimit {
		fmt.Fprintf(&buf, " LIMIT %d", limit)
	}
	return buf.String(), childVars, nil
}

func (c *compilerContext) compileSlice(n *sparql.Node) (string, VarSet, error) {
	return c.compileDistinctLike(n.Child, false, n.HasStart, n.Start, n.HasLength, n.Length)
}

func (c *compilerContext) compileFilter(n *sparql.Node) (string, VarSet, error) {
	childSQL, childVars, err := c.compile(n.Child)
	if err != nil {
		return "", VarSet{}, err
	}
	alias := c.newAlias()
	cond, err := c.compileExpr(n.Expr, childVars, alias)
	if err != nil {
		return "", VarSet{}, err
	}

	var buf bytes.Buffer
	buf.WriteString("SELECT ")
	buf.WriteString(c.selectList(childVars, alias))
	buf.WriteString(" FROM (")
	buf.WriteString(childSQL)
	buf.WriteString(") AS ")
	buf.WriteString(alias)
	buf.WriteString(" WHERE ")
	buf.WriteString(cond)
	return buf.String(), childVars, nil
}

// compileLeftJoin compiles its two children independently (each gets its
// own subquery) and combines them with a LEFT OUTER JOIN. Shared variables
// become the join's equality condition and are projected from the left
// side; the join's own Expr is folded in as an additional AND'd condition
// so an OPTIONAL block's own FILTER ends up restricting the join match
// itself (rows that fail it fall back to the all-NULL right side) rather
// than the outer query.
func (c *compilerContext) compileLeftJoin(n *sparql.Node) (string, VarSet, error) {
	leftSQL, leftVars, err := c.compile(n.Left)
	if err != nil {
		return "", VarSet{}, err
	}
	rightSQL, rightVars, err := c.compile(n.Right)
	if err != nil {
		return "", VarSet{}, err
	}
	leftAlias := c.newAlias()
	rightAlias := c.newAlias()

	out := leftVars.clone()
	var onParts []string
	for _, v := range rightVars.Vars {
		// lang/dt companion columns are merged regardless of whether v is
		// also a shared join variable: a variable can be bound on the left
		// at a non-object position (no lang/dt there) and carry a legitimate
		// lang/dt export from the right side's object position, or vice
		// versa, so this must not be gated on the same has(v) check that
		// decides the join condition below.
		if rightVars.Lang[v] {
			out.Lang[v] = true
		}
		if rightVars.Dts[v] {
			out.Dts[v] = true
		}
		if leftVars.has(v) {
			onParts = append(onParts, fmt.Sprintf("%s.%s = %s.%s", leftAlias, c.quote(v), rightAlias, c.quote(v)))
			continue
		}
		out.add(v)
	}

	if n.Expr != nil && n.Expr.Op != sparql.ExprTrue {
		joinVars := leftVars.clone()
		for _, v := range rightVars.Vars {
			joinVars.add(v)
			if rightVars.Lang[v] {
				joinVars.Lang[v] = true
			}
			if rightVars.Dts[v] {
				joinVars.Dts[v] = true
			}
		}
		cond, err := c.compileJoinExpr(n.Expr, leftVars, leftAlias, rightVars, rightAlias)
		if err != nil {
			return "", VarSet{}, err
		}
		onParts = append(onParts, cond)
	}

	onExpr := "TRUE"
	if len(onParts) > 0 {
		onExpr = strings.Join(onParts, " AND ")
	}

	var cols []string
	cols = append(cols, fmt.Sprintf("%s.%s AS %s", leftAlias, c.quote(idColumn), c.quote(idColumn)))
	for _, v := range out.Vars {
		src, srcVar := leftAlias, v
		if !leftVars.has(v) {
			src = rightAlias
		}
		cols = append(cols, fmt.Sprintf("%s.%s AS %s", src, c.quote(srcVar), c.quote(v)))
	}
	for _, v := range out.Vars {
		if !out.Lang[v] {
			continue
		}
		src := leftAlias
		if !leftVars.Lang[v] {
			src = rightAlias
		}
		cols = append(cols, fmt.Sprintf("%s.%s AS %s", src, c.quote(v+"_lang"), c.quote(v+"_lang")))
	}
	for _, v := range out.Vars {
		if !out.Dts[v] {
			continue
		}
		src := leftAlias
		if !leftVars.Dts[v] {
			src = rightAlias
		}
		cols = append(cols, fmt.Sprintf("%s.%s AS %s", src, c.quote(v+"_dt"), c.quote(v+"_dt")))
	}

	var buf bytes.Buffer
	buf.WriteString("SELECT ")
	buf.WriteString(strings.Join(cols, ", "))
	buf.WriteString(" FROM (")
	buf.WriteString(leftSQL)
	buf.WriteString(") AS ")
	buf.WriteString(leftAlias)
	buf.WriteString(" LEFT OUTER JOIN (")
	buf.WriteString(rightSQL)
	buf.WriteString(") AS ")
	buf.WriteString(rightAlias)
	buf.WriteString(" ON ")
	buf.WriteString(onExpr)
	return buf.String(), out, nil
}

// compileBGP compiles one basic graph pattern: each triple becomes its own
// derived table over the base quads table, and successive triples are
// combined by joining on any variable names they share (unbound shared
// columns fall through untouched, exactly matching sparqlalchemy.py's
// new_var_map/var_map reconciliation loop in its BGP branch).
func (c *compilerContext) compileBGP(n *sparql.Node) (string, VarSet, error) {
	if len(n.Triples) == 0 {
		alias := c.newAlias()
		sql := fmt.Sprintf("SELECT %s.%s AS %s FROM %s AS %s",
			alias, c.quote("id"), c.quote(idColumn), c.table, alias)
		return sql, newVarSet(), nil
	}

	var accSQL string
	var accVars VarSet
	haveAcc := false

	for _, tr := range n.Triples {
		tripleSQL, tripleVars, err := c.compileTriple(tr)
		if err != nil {
			return "", VarSet{}, err
		}
		if !haveAcc {
			accSQL, accVars = tripleSQL, tripleVars
			haveAcc = true
			continue
		}
		accSQL, accVars = c.joinBGPStep(accSQL, accVars, tripleSQL, tripleVars)
	}
	return accSQL, accVars, nil
}

func (c *compilerContext) joinBGPStep(leftSQL string, leftVars VarSet, rightSQL string, rightVars VarSet) (string, VarSet) {
	leftAlias := c.newAlias()
	rightAlias := c.newAlias()

	out := leftVars.clone()
	var onParts []string
	for _, v := range rightVars.Vars {
		// lang/dt companion columns are merged regardless of whether v is
		// also a shared join variable: a variable can be bound on the left
		// at a non-object position (no lang/dt there) and carry a legitimate
		// lang/dt export from the right side's object position, or vice
		// versa, so this must not be gated on the same has(v) check that
		// decides the join condition below.
		if rightVars.Lang[v] {
			out.Lang[v] = true
		}
		if rightVars.Dts[v] {
			out.Dts[v] = true
		}
		if leftVars.has(v) {
			onParts = append(onParts, fmt.Sprintf("%s.%s = %s.%s", leftAlias, c.quote(v), rightAlias, c.quote(v)))
			continue
		}
		out.add(v)
	}
	onExpr := "TRUE"
	if len(onParts) > 0 {
		onExpr = strings.Join(onParts, " AND ")
	}

	var cols []string
	cols = append(cols, fmt.Sprintf("%s.%s AS %s", leftAlias, c.quote(idColumn), c.quote(idColumn)))
	for _, v := range out.Vars {
		src := leftAlias
		if !leftVars.has(v) {
			src = rightAlias
		}
		cols = append(cols, fmt.Sprintf("%s.%s AS %s", src, c.quote(v), c.quote(v)))
	}
	for _, v := range out.Vars {
		if !out.Lang[v] {
			continue
		}
		src := leftAlias
		if !leftVars.Lang[v] {
			src = rightAlias
		}
		cols = append(cols, fmt.Sprintf("%s.%s AS %s", src, c.quote(v+"_lang"), c.quote(v+"_lang")))
	}
	for _, v := range out.Vars {
		if !out.Dts[v] {
			continue
		}
		src := leftAlias
		if !leftVars.Dts[v] {
			src = rightAlias
		}
		cols = append(cols, fmt.Sprintf("%s.%s AS %s", src, c.quote(v+"_dt"), c.quote(v+"_dt")))
	}

	var buf bytes.Buffer
	buf.WriteString("SELECT ")
	buf.WriteString(strings.Join(cols, ", "))
	buf.WriteString(" FROM (")
	buf.WriteString(leftSQL)
	buf.WriteString(") AS ")
	buf.WriteString(leftAlias)
	buf.WriteString(" JOIN (")
	buf.WriteString(rightSQL)
	buf.WriteString(") AS ")
	buf.WriteString(rightAlias)
	buf.WriteString(" ON ")
	buf.WriteString(onExpr)
	return buf.String(), out
}

func (c *compilerContext) compileTriple(tr sparql.Triple) (string, VarSet, error) {
	alias := c.newAlias()
	vars := newVarSet()

	var cols []string
	cols = append(cols, fmt.Sprintf("%s.%s AS %s", alias, c.quote("id"), c.quote(idColumn)))

	var where []string
	// within-triple repeats of the same variable (?x ?p ?x) collapse to an
	// equality constraint against the column already selected for it.
	seenCol := map[string]string{}

	positions := []struct {
		col  string
		term sparql.PatternTerm
	}{{"s", tr.S}, {"p", tr.P}, {"o", tr.O}}

	for _, pos := range positions {
		switch pos.term.Kind {
		case sparql.TermIRI, sparql.TermLiteral:
			ph := c.bind(pos.term.Value)
			where = append(where, fmt.Sprintf("%s.%s = %s", alias, c.quote(pos.col), ph))

		case sparql.TermVariable:
			name := pos.term.Value
			if prior, ok := seenCol[name]; ok {
				where = append(where, fmt.Sprintf("%s.%s = %s.%s", alias, c.quote(pos.col), alias, c.quote(prior)))
			} else {
				seenCol[name] = pos.col
				vars.add(name)
				cols = append(cols, fmt.Sprintf("%s.%s AS %s", alias, c.quote(pos.col), c.quote(name)))
			}
			if pos.col == "o" {
				if !vars.Lang[name] {
					vars.Lang[name] = true
					cols = append(cols, fmt.Sprintf("%s.%s AS %s", alias, c.quote("lang"), c.quote(name+"_lang")))
				}
				if !vars.Dts[name] {
					vars.Dts[name] = true
					cols = append(cols, fmt.Sprintf("%s.%s AS %s", alias, c.quote("datatype"), c.quote(name+"_dt")))
				}
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString("SELECT ")
	buf.WriteString(strings.Join(cols, ", "))
	buf.WriteString(" FROM ")
	buf.WriteString(c.table)
	buf.WriteString(" AS ")
	buf.WriteString(alias)
	if len(where) > 0 {
		buf.WriteString(" WHERE ")
		buf.WriteString(strings.Join(where, " AND "))
	}
	return buf.String(), vars, nil
}
