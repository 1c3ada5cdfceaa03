// Package term defines the RDF term algebra used throughout quadstore: IRIs,
// literals (with optional language tag and datatype IRI) and SPARQL
// variables, plus the quad that ties four terms to a named graph.
package term

import "fmt"

// Term is any of the three term shapes quadstore understands. It is a
// closed set by convention: code that switches on Term should handle all
// three cases and treat anything else as a programming error.
type Term interface {
	fmt.Stringer
	isTerm()
}

// IRI is an Internationalized Resource Identifier.
type IRI string

func (IRI) isTerm()        {}
func (i IRI) String() string { return string(i) }

// Literal is an RDF literal: a lexical form plus an optional language tag
// and an optional datatype IRI. Per §3, at most one of Lang/Datatype is
// normally set in practice but neither is required to be exclusive.
type Literal struct {
	Lexical  string
	Lang     string // empty if absent
	Datatype IRI    // empty if absent
}

func (Literal) isTerm() {}

func (l Literal) String() string {
	switch {
	case l.Lang != "":
		return fmt.Sprintf("%q@%s", l.Lexical, l.Lang)
	case l.Datatype != "":
		return fmt.Sprintf("%q^^<%s>", l.Lexical, l.Datatype)
	default:
		return fmt.Sprintf("%q", l.Lexical)
	}
}

// Variable is a SPARQL query variable, referenced by name without its
// leading '?' or '$'.
type Variable string

func (Variable) isTerm()        {}
func (v Variable) String() string { return "?" + string(v) }

// Quad is a subject/predicate/object triple scoped to a named graph context.
type Quad struct {
	Subject   IRI
	Predicate IRI
	Object    Term
	Context   IRI
}

// IsIRIObject reports whether q's object should round-trip as an IRI rather
// than a Literal, per the disambiguation rule of §3: IRI objects never carry
// lang/datatype and begin with "http://".
func IsIRIObject(o Term) bool {
	iri, ok := o.(IRI)
	return ok && string(iri) != "" && hasHTTPPrefix(string(iri))
}

func hasHTTPPrefix(s string) bool {
	const p = "http://"
	if len(s) < len(p) {
		return false
	}
	return s[:len(p)] == p
}

// FromStored reconstructs a Term from the stored lexical/lang/datatype
// columns of a quad row, applying the sole disambiguation rule of §3: a
// non-NULL lang or datatype, or an empty string, or a value that doesn't
// start with "http://", is read back as a Literal; otherwise as an IRI.
func FromStored(o, lang, datatype string) Term {
	if lang != "" || datatype != "" || o == "" || !hasHTTPPrefix(o) {
		var dt IRI
		if datatype != "" {
			dt = IRI(datatype)
		}
		return Literal{Lexical: o, Lang: lang, Datatype: dt}
	}
	return IRI(o)
}

// ToStored decomposes a Term into the (lexical, lang, datatype) columns
// used by the backing store.
func ToStored(t Term) (o, lang, datatype string) {
	switch v := t.(type) {
	case IRI:
		return string(v), "", ""
	case Literal:
		return v.Lexical, v.Lang, string(v.Datatype)
	case Variable:
		// Variables are never stored; callers must resolve bindings first.
		return string(v), "", ""
	default:
		return "", "", ""
	}
}
