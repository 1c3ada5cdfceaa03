package mirror

import (
	"fmt"
	"strings"

	"github.com/gooofy/quadstore/term"
)

// turtleTriple is one decoded statement from a Turtle page body.
type turtleTriple struct {
	S string
	P string
	O term.Term
}

// pageHints carries the pagination hints a Turtle page may advertise via
// hydra:nextPage / hydra:next, per ldfmirror.py's _fetch_ldf pagination
// check.
type pageHints struct {
	nextPage string
	next     string
}

const hydraNextPage = "http://www.w3.org/ns/hydra/core#nextPage"
const hydraNext = "http://www.w3.org/ns/hydra/core#next"

// parseTurtlePage decodes the flat, one-statement-per-line Turtle bodies
// real LDF servers emit. It is not a general Turtle parser: it supports
// @prefix declarations, <IRI> and prefix:local terms, and "..."/'...'
// literals with an optional @lang or ^^datatype suffix — the subset the
// format §1 scopes a full RDF importer out of, but that the LDF Mirror still
// has to decode on the wire (§4.F step 3).
func parseTurtlePage(body string) ([]turtleTriple, pageHints, error) {
	prefixes := map[string]string{
		"rdf":   "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"rdfs":  "http://www.w3.org/2000/01/rdf-schema#",
		"hydra": hydraNS,
		"xsd":   "http://www.w3.org/2001/XMLSchema#",
	}

	var triples []turtleTriple
	var hints pageHints

	for _, rawLine := range strings.Split(body, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "@prefix") {
			ns, iri, err := parsePrefixDecl(line)
			if err != nil {
				return nil, pageHints{}, err
			}
			prefixes[ns] = iri
			continue
		}

		line = strings.TrimSuffix(strings.TrimSpace(line), ".")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		toks, err := tokenizeTurtleLine(line)
		if err != nil {
			return nil, pageHints{}, err
		}
		if len(toks) != 3 {
			return nil, pageHints{}, fmt.Errorf("mirror: expected subject/predicate/object, got %d tokens in %q", len(toks), line)
		}

		s, err := resolveTurtleIRI(toks[0], prefixes)
		if err != nil {
			return nil, pageHints{}, err
		}
		p, err := resolveTurtleIRI(toks[1], prefixes)
		if err != nil {
			return nil, pageHints{}, err
		}
		o, err := resolveTurtleObject(toks[2], prefixes)
		if err != nil {
			return nil, pageHints{}, err
		}

		switch p {
		case hydraNextPage:
			if iri, ok := o.(term.IRI); ok {
				hints.nextPage = string(iri)
			}
		case hydraNext:
			if iri, ok := o.(term.IRI); ok {
				hints.next = string(iri)
			}
		}

		triples = append(triples, turtleTriple{S: s, P: p, O: o})
	}

	return triples, hints, nil
}

func parsePrefixDecl(line string) (string, string, error) {
	// @prefix ns: <iri> .
	line = strings.TrimPrefix(line, "@prefix")
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(line, ".")
	line = strings.TrimSpace(line)
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", fmt.Errorf("mirror: malformed @prefix line %q", line)
	}
	ns := strings.TrimSpace(line[:idx])
	rest := strings.TrimSpace(line[idx+1:])
	if !strings.HasPrefix(rest, "<") || !strings.HasSuffix(rest, ">") {
		return "", "", fmt.Errorf("mirror: malformed @prefix IRI in %q", line)
	}
	return ns, rest[1 : len(rest)-1], nil
}

// tokenizeTurtleLine splits a statement body into its three whitespace
// separated terms, treating quoted strings (which may themselves contain
// spaces) as a single token.
func tokenizeTurtleLine(line string) ([]string, error) {
	var toks []string
	i := 0
	for i < len(line) {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		if i >= len(line) {
			break
		}
		start := i
		switch line[i] {
		case '<':
			for i < len(line) && line[i] != '>' {
				i++
			}
			if i >= len(line) {
				return nil, fmt.Errorf("mirror: unterminated IRI in %q", line)
			}
			i++ // consume '>'
		case '"', '\'':
			quote := line[i]
			i++
			for i < len(line) && line[i] != quote {
				if line[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(line) {
				return nil, fmt.Errorf("mirror: unterminated string literal in %q", line)
			}
			i++ // consume closing quote
			// optional @lang or ^^datatype suffix, no internal spaces.
			for i < len(line) && line[i] != ' ' {
				i++
			}
		default:
			for i < len(line) && line[i] != ' ' {
				i++
			}
		}
		toks = append(toks, line[start:i])
	}
	return toks, nil
}

func resolveTurtleIRI(tok string, prefixes map[string]string) (string, error) {
	if strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">") {
		return tok[1 : len(tok)-1], nil
	}
	idx := strings.IndexByte(tok, ':')
	if idx < 0 {
		return "", fmt.Errorf("mirror: expected IRI or prefixed name, got %q", tok)
	}
	ns, local := tok[:idx], tok[idx+1:]
	base, ok := prefixes[ns]
	if !ok {
		return "", fmt.Errorf("mirror: undeclared prefix %q in %q", ns, tok)
	}
	return base + local, nil
}

func resolveTurtleObject(tok string, prefixes map[string]string) (term.Term, error) {
	if strings.HasPrefix(tok, "<") {
		iri, err := resolveTurtleIRI(tok, prefixes)
		if err != nil {
			return nil, err
		}
		return term.IRI(iri), nil
	}
	if strings.HasPrefix(tok, `"`) || strings.HasPrefix(tok, "'") {
		return parseTurtleLiteral(tok, prefixes)
	}
	iri, err := resolveTurtleIRI(tok, prefixes)
	if err != nil {
		return nil, err
	}
	return term.IRI(iri), nil
}

func parseTurtleLiteral(tok string, prefixes map[string]string) (term.Term, error) {
	quote := tok[0]
	end := 1
	for end < len(tok) && tok[end] != quote {
		if tok[end] == '\\' {
			end++
		}
		end++
	}
	if end >= len(tok) {
		return nil, fmt.Errorf("mirror: unterminated literal %q", tok)
	}
	lexical := tok[1:end]
	rest := tok[end+1:]

	lit := term.Literal{Lexical: lexical}
	switch {
	case strings.HasPrefix(rest, "@"):
		lit.Lang = rest[1:]
	case strings.HasPrefix(rest, "^^"):
		dt, err := resolveTurtleIRI(rest[2:], prefixes)
		if err != nil {
			return nil, err
		}
		lit.Datatype = term.IRI(dt)
	}
	return lit, nil
}

const hydraNS = "http://www.w3.org/ns/hydra/core#"
