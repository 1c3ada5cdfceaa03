// Package sparql defines the closed SPARQL algebra and filter-expression
// node shapes the Algebra Compiler (§4.C) and Expression Compiler (§4.D)
// consume. The node set is intentionally closed: a node shape outside this
// enum is a compile-time (Go type system) or, for unrecognized AlgebraOp
// values reaching the compiler, a runtime ErrUnsupportedAlgebra error —
// never a silent no-op. This is the systems-language rendering of §9's
// design note about the Python source's dynamically-named record type.
package sparql

// AlgebraOp identifies which of the closed set of algebra node shapes a
// Node holds. Every operation named in §4.C has exactly one corresponding
// AlgebraOp.
type AlgebraOp int

const (
	OpSelectQuery AlgebraOp = iota
	OpProject
	OpDistinct
	OpSlice
	OpFilter
	OpLeftJoin
	OpBGP
)

func (op AlgebraOp) String() string {
	switch op {
	case OpSelectQuery:
		return "SelectQuery"
	case OpProject:
		return "Project"
	case OpDistinct:
		return "Distinct"
	case OpSlice:
		return "Slice"
	case OpFilter:
		return "Filter"
	case OpLeftJoin:
		return "LeftJoin"
	case OpBGP:
		return "BGP"
	default:
		return "Unknown"
	}
}

// TermKind distinguishes the three shapes a triple-pattern position can
// take, mirroring term.Term without importing it here (the algebra package
// only needs to know which positions are variables).
type TermKind int

const (
	TermIRI TermKind = iota
	TermLiteral
	TermVariable
)

// PatternTerm is one position (s, p, or o) of a triple pattern.
type PatternTerm struct {
	Kind TermKind
	// Value holds the IRI string or literal lexical form for TermIRI/
	// TermLiteral, or the variable name (without leading '?') for
	// TermVariable.
	Value string
	// Lang/Datatype apply only when Kind == TermLiteral.
	Lang     string
	Datatype string
}

// Triple is one triple pattern inside a BGP.
type Triple struct {
	S, P, O PatternTerm
}

// Node is a single algebra tree node. Only the fields relevant to Op are
// populated; this mirrors the tagged-union role GraphJin's qcode.Exp plays
// for expressions (core/internal/qcode/exp.go), applied here to algebra.
type Node struct {
	Op AlgebraOp

	// Project, Distinct, Slice, Filter, SelectQuery: single child.
	Child *Node

	// LeftJoin: two children.
	Left  *Node
	Right *Node

	// Project, SelectQuery: the projected variable list, in source order.
	PV []string

	// Slice.
	HasStart bool
	Start    int
	HasLength bool
	Length   int

	// Filter, LeftJoin: boolean filter expression. LeftJoin's is the join
	// condition (TrueFilter compiles to an Expr with Op == ExprTrue).
	Expr *Expr

	// BGP.
	Triples []Triple
}
