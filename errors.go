// Package quadstore ties together the Shortcut Resolver, Quad Store,
// Algebra/Expression Compiler, Result Materializer and LDF Mirror into a
// single RDF quad store with a SPARQL query surface and an LDF mirroring
// client.
package quadstore

import "errors"

// Error kinds, per §7. Call sites wrap these to attach context (the
// offending node, the failed statement, the fetch URL), with fmt.Errorf's %w
// or, in store, also github.com/pkg/errors; callers can still errors.Is
// against the sentinel.
var (
	// ErrUnsupportedAlgebra is returned when the algebra compiler is asked
	// to compile a node shape outside the closed set of §4.C.
	ErrUnsupportedAlgebra = errors.New("quadstore: unsupported algebra node")

	// ErrUnsupportedExpression is returned when the expression compiler
	// meets an operator outside §4.D, or LANG() is applied to a
	// non-Variable argument.
	ErrUnsupportedExpression = errors.New("quadstore: unsupported filter expression")

	// ErrMalformedInput is returned when the SPARQL parser rejects a query
	// string, or an LDF page body cannot be decoded as Turtle.
	ErrMalformedInput = errors.New("quadstore: malformed input")

	// ErrBackingStore wraps any SQL error returned by the backing engine.
	// It is always fatal to the calling store operation; there is no
	// implicit retry.
	ErrBackingStore = errors.New("quadstore: backing store error")

	// ErrRemoteFetch wraps an HTTP failure during LDF mirroring. A non-200
	// response ends pagination for that fetch but is not itself fatal to
	// the mirror walk; a connection-level error aborts the current task.
	ErrRemoteFetch = errors.New("quadstore: remote fetch error")
)
