package compiler

import (
	"fmt"

	"github.com/gooofy/quadstore/sparql"
)

// compileExpr renders a filter expression against columns exposed by a
// single aliased subquery (the FILTER case: the expression only ever
// touches the one child it guards).
func (c *compilerContext) compileExpr(e *sparql.Expr, vars VarSet, alias string) (string, error) {
	return c.compileExprRef(e, func(varName string) (string, error) {
		if !vars.has(varName) {
			return "", fmt.Errorf("%w: filter references unbound variable %q", ErrUnsupportedExpression, varName)
		}
		return fmt.Sprintf("%s.%s", alias, c.quote(varName)), nil
	}, func(varName string) (string, error) {
		if !vars.Lang[varName] {
			return "", fmt.Errorf("%w: LANG() on variable %q with no language column", ErrUnsupportedExpression, varName)
		}
		return fmt.Sprintf("%s.%s", alias, c.quote(varName+"_lang")), nil
	})
}

// compileJoinExpr renders a LeftJoin's own filter expression, which may
// reference variables bound on either side of the join.
func (c *compilerContext) compileJoinExpr(e *sparql.Expr, left VarSet, leftAlias string, right VarSet, rightAlias string) (string, error) {
	resolveCol := func(varName string) (string, error) {
		if left.has(varName) {
			return fmt.Sprintf("%s.%s", leftAlias, c.quote(varName)), nil
		}
		if right.has(varName) {
			return fmt.Sprintf("%s.%s", rightAlias, c.quote(varName)), nil
		}
		return "", fmt.Errorf("%w: filter references unbound variable %q", ErrUnsupportedExpression, varName)
	}
	resolveLang := func(varName string) (string, error) {
		if left.has(varName) && left.Lang[varName] {
			return fmt.Sprintf("%s.%s", leftAlias, c.quote(varName+"_lang")), nil
		}
		if right.has(varName) && right.Lang[varName] {
			return fmt.Sprintf("%s.%s", rightAlias, c.quote(varName+"_lang")), nil
		}
		return "", fmt.Errorf("%w: LANG() on variable %q with no language column", ErrUnsupportedExpression, varName)
	}
	return c.compileExprRef(e, resolveCol, resolveLang)
}

func (c *compilerContext) compileExprRef(e *sparql.Expr, resolveVar func(string) (string, error), resolveLang func(string) (string, error)) (string, error) {
	switch e.Op {
	case sparql.ExprTrue:
		return "TRUE", nil

	case sparql.ExprLiteral:
		if e.Undef {
			return "NULL", nil
		}
		return c.bind(e.Lexical), nil

	case sparql.ExprIRI:
		return c.bind(e.IRI), nil

	case sparql.ExprVariable:
		return resolveVar(e.Variable)

	case sparql.ExprLangCall:
		return resolveLang(e.Variable)

	case sparql.ExprRelational:
		lhs, err := c.compileExprRef(e.LHS, resolveVar, resolveLang)
		if err != nil {
			return "", err
		}
		rhs, err := c.compileExprRef(e.RHS, resolveVar, resolveLang)
		if err != nil {
			return "", err
		}
		op, err := sqlRelOp(e.RelOp)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", lhs, op, rhs), nil

	case sparql.ExprAnd:
		return c.compileExprChain(e.Operands, "AND", resolveVar, resolveLang)

	case sparql.ExprOr:
		return c.compileExprChain(e.Operands, "OR", resolveVar, resolveLang)

	default:
		return "", fmt.Errorf("%w: expression node %d", ErrUnsupportedExpression, e.Op)
	}
}

func (c *compilerContext) compileExprChain(operands []*sparql.Expr, joiner string, resolveVar func(string) (string, error), resolveLang func(string) (string, error)) (string, error) {
	if len(operands) == 0 {
		return "", fmt.Errorf("%w: empty expression chain", ErrUnsupportedExpression)
	}
	rendered, err := c.compileExprRef(operands[0], resolveVar, resolveLang)
	if err != nil {
		return "", err
	}
	out := rendered
	for _, op := range operands[1:] {
		r, err := c.compileExprRef(op, resolveVar, resolveLang)
		if err != nil {
			return "", err
		}
		out = fmt.Sprintf("(%s %s %s)", out, joiner, r)
	}
	return out, nil
}

func sqlRelOp(op sparql.RelOp) (string, error) {
	switch op {
	case sparql.RelEquals:
		return "=", nil
	case sparql.RelNotEquals:
		return "!=", nil
	case sparql.RelGreaterThan:
		return ">", nil
	case sparql.RelGreaterOrEqual:
		return ">=", nil
	case sparql.RelLessThan:
		return "<", nil
	case sparql.RelLessOrEqual:
		return "<=", nil
	case sparql.RelIs:
		return "IS", nil
	default:
		return "", fmt.Errorf("%w: relational operator %d", ErrUnsupportedExpression, op)
	}
}
