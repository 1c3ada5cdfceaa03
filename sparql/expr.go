package sparql

// ExprOp identifies which of the closed set of filter-expression node
// shapes an Expr holds (§4.D).
type ExprOp int

const (
	// ExprLiteral is a constant lexical value (or Expr's Undef flag set,
	// representing SPARQL's UNDEF sentinel).
	ExprLiteral ExprOp = iota
	// ExprVariable references a bound variable by name.
	ExprVariable
	// ExprIRI is a constant IRI.
	ExprIRI
	// ExprRelational is a RelationalExpression(op, lhs, rhs) for
	// op in {=, !=, >, >=, <, <=, is}.
	ExprRelational
	// ExprLangCall is Builtin_LANG(arg); arg must be ExprVariable.
	ExprLangCall
	// ExprAnd is ConditionalAndExpression: a chain of AND'd operands.
	ExprAnd
	// ExprOr is ConditionalOrExpression: a chain of OR'd operands.
	ExprOr
	// ExprTrue is the trivial TrueFilter used as LeftJoin's default join
	// condition.
	ExprTrue
)

// RelOp is the comparison operator carried by an ExprRelational node.
type RelOp int

const (
	RelEquals RelOp = iota
	RelNotEquals
	RelGreaterThan
	RelGreaterOrEqual
	RelLessThan
	RelLessOrEqual
	RelIs
)

// Expr is a single filter-expression node. Like sparql.Node, only the
// fields relevant to Op are populated.
type Expr struct {
	Op ExprOp

	// ExprLiteral.
	Lexical string
	Undef   bool

	// ExprVariable, ExprLangCall's Arg.
	Variable string

	// ExprIRI.
	IRI string

	// ExprRelational.
	RelOp RelOp
	LHS   *Expr
	RHS   *Expr

	// ExprLangCall.
	Arg *Expr

	// ExprAnd, ExprOr: two or more operands, left-to-right.
	Operands []*Expr
}
