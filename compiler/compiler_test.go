package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gooofy/quadstore/internal/dialect"
	"github.com/gooofy/quadstore/sparql"
)

func selectQuery(pv []string, child *sparql.Node) *sparql.Node {
	return &sparql.Node{
		Op: sparql.OpSelectQuery,
		PV: pv,
		Child: &sparql.Node{
			Op:    sparql.OpProject,
			PV:    pv,
			Child: child,
		},
	}
}

func termVar(name string) sparql.PatternTerm {
	return sparql.PatternTerm{Kind: sparql.TermVariable, Value: name}
}

func termIRI(iri string) sparql.PatternTerm {
	return sparql.PatternTerm{Kind: sparql.TermIRI, Value: iri}
}

func TestCompileSingleTripleBGP(t *testing.T) {
	bgp := &sparql.Node{Op: sparql.OpBGP, Triples: []sparql.Triple{
		{S: termVar("s"), P: termIRI("http://ex/label"), O: termVar("o")},
	}}
	n := selectQuery([]string{"s", "o"}, bgp)

	c := New(dialect.Postgres{}, "quads")
	out, err := c.Compile(n)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "quads")
	assert.Contains(t, out.SQL, "$1")
	require.Len(t, out.Args, 1)
	assert.Equal(t, "http://ex/label", out.Args[0])
	assert.ElementsMatch(t, []string{"s", "o"}, out.Vars.Vars)
	assert.True(t, out.Vars.Lang["o"])
	assert.True(t, out.Vars.Dts["o"])
	assert.False(t, out.Vars.Lang["s"])
}

func TestCompileJoinsSharedVariableAcrossTriples(t *testing.T) {
	bgp := &sparql.Node{Op: sparql.OpBGP, Triples: []sparql.Triple{
		{S: termVar("leader"), P: termIRI("http://ex/label"), O: termVar("label")},
		{S: termVar("leader"), P: termIRI("http://ex/type"), O: termIRI("http://ex/Person")},
	}}
	n := selectQuery([]string{"leader", "label"}, bgp)

	c := New(dialect.MySQL{}, "quads")
	out, err := c.Compile(n)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "JOIN")
	assert.Contains(t, out.SQL, "?")
	assert.ElementsMatch(t, []string{"leader", "label"}, out.Vars.Vars)
}

func TestCompileLeftJoinIsOuter(t *testing.T) {
	left := &sparql.Node{Op: sparql.OpBGP, Triples: []sparql.Triple{
		{S: termVar("s"), P: termIRI("http://ex/label"), O: termVar("label")},
	}}
	right := &sparql.Node{Op: sparql.OpBGP, Triples: []sparql.Triple{
		{S: termVar("o"), P: termIRI("http://ex/leader"), O: termVar("s")},
	}}
	lj := &sparql.Node{Op: sparql.OpLeftJoin, Left: left, Right: right, Expr: &sparql.Expr{Op: sparql.ExprTrue}}
	n := selectQuery([]string{"s", "label", "o"}, lj)

	c := New(dialect.Postgres{}, "quads")
	out, err := c.Compile(n)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "LEFT OUTER JOIN")
	assert.ElementsMatch(t, []string{"s", "label", "o"}, out.Vars.Vars)
}

func TestCompileFilterLang(t *testing.T) {
	bgp := &sparql.Node{Op: sparql.OpBGP, Triples: []sparql.Triple{
		{S: termVar("s"), P: termIRI("http://ex/label"), O: termVar("label")},
	}}
	filter := &sparql.Node{
		Op:    sparql.OpFilter,
		Child: bgp,
		Expr: &sparql.Expr{
			Op:    sparql.ExprRelational,
			RelOp: sparql.RelEquals,
			LHS:   &sparql.Expr{Op: sparql.ExprLangCall, Variable: "label"},
			RHS:   &sparql.Expr{Op: sparql.ExprLiteral, Lexical: "de"},
		},
	}
	n := selectQuery([]string{"s", "label"}, filter)

	c := New(dialect.Postgres{}, "quads")
	out, err := c.Compile(n)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "WHERE")
	assert.Contains(t, out.SQL, "_lang")
	require.Len(t, out.Args, 2) // the triple's predicate IRI + the filter's "de"
}

// TestCompileBGPJoinCarriesLangAcrossSubjectPosition covers a shared
// variable bound at a non-object (subject) position in one triple and at an
// object position (with a language column) in another: the join must still
// export the language companion column for it, so a filter on LANG() of
// that variable compiles rather than being rejected as unsupported.
func TestCompileBGPJoinCarriesLangAcrossSubjectPosition(t *testing.T) {
	bgp := &sparql.Node{Op: sparql.OpBGP, Triples: []sparql.Triple{
		{S: termVar("x"), P: termIRI("http://ex/label"), O: termVar("name")},
		{S: termVar("y"), P: termIRI("http://ex/knows"), O: termVar("x")},
	}}
	filter := &sparql.Node{
		Op:    sparql.OpFilter,
		Child: bgp,
		Expr: &sparql.Expr{
			Op:    sparql.ExprRelational,
			RelOp: sparql.RelEquals,
			LHS:   &sparql.Expr{Op: sparql.ExprLangCall, Variable: "x"},
			RHS:   &sparql.Expr{Op: sparql.ExprLiteral, Lexical: "de"},
		},
	}
	n := selectQuery([]string{"x", "y"}, filter)

	c := New(dialect.Postgres{}, "quads")
	out, err := c.Compile(n)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "_lang")
}

func TestCompileRejectsUnknownAlgebraOp(t *testing.T) {
	bad := &sparql.Node{Op: sparql.AlgebraOp(99)}
	n := selectQuery([]string{"s"}, bad)

	c := New(dialect.Postgres{}, "quads")
	_, err := c.Compile(n)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedAlgebra)
}

func TestCompileRejectsNonSelectQueryRoot(t *testing.T) {
	c := New(dialect.Postgres{}, "quads")
	_, err := c.Compile(&sparql.Node{Op: sparql.OpBGP})
	require.Error(t, err)
}

func TestCacheServesStructurallyIdenticalTrees(t *testing.T) {
	bgp := func() *sparql.Node {
		return &sparql.Node{Op: sparql.OpBGP, Triples: []sparql.Triple{
			{S: termVar("s"), P: termIRI("http://ex/label"), O: termVar("o")},
		}}
	}
	c := New(dialect.Postgres{}, "quads")
	cache, err := NewCache(16)
	require.NoError(t, err)

	a, err := c.CompileCached(cache, selectQuery([]string{"s", "o"}, bgp()))
	require.NoError(t, err)
	b, err := c.CompileCached(cache, selectQuery([]string{"s", "o"}, bgp()))
	require.NoError(t, err)
	assert.Equal(t, a.SQL, b.SQL)
}
