package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gooofy/quadstore/term"
)

func TestParseTurtlePageBasic(t *testing.T) {
	body := `@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
<http://www.wikidata.org/entity/Q567> rdfs:label "Angela Merkel"@de .
<http://www.wikidata.org/entity/Q567> rdf:type <http://www.wikidata.org/entity/Q5> .
`
	triples, hints, err := parseTurtlePage(body)
	require.NoError(t, err)
	require.Len(t, triples, 2)

	assert.Equal(t, "http://www.wikidata.org/entity/Q567", triples[0].S)
	assert.Equal(t, "http://www.w3.org/2000/01/rdf-schema#label", triples[0].P)
	lit, ok := triples[0].O.(term.Literal)
	require.True(t, ok)
	assert.Equal(t, "Angela Merkel", lit.Lexical)
	assert.Equal(t, "de", lit.Lang)

	assert.Equal(t, "", hints.nextPage)
	assert.Equal(t, "", hints.next)
}

func TestParseTurtlePagePaginationHint(t *testing.T) {
	body := `<http://ex/page1> <http://www.w3.org/ns/hydra/core#nextPage> <http://ex/page2> .`
	_, hints, err := parseTurtlePage(body)
	require.NoError(t, err)
	assert.Equal(t, "http://ex/page2", hints.nextPage)
}

func TestParseTurtleDatatypeLiteral(t *testing.T) {
	body := `@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
<http://ex/a> <http://ex/p> "2016-12-04T10:20:13"^^xsd:dateTime .
`
	triples, _, err := parseTurtlePage(body)
	require.NoError(t, err)
	require.Len(t, triples, 1)
	lit := triples[0].O.(term.Literal)
	assert.Equal(t, term.IRI("http://www.w3.org/2001/XMLSchema#dateTime"), lit.Datatype)
}

func TestParseTurtleRejectsUndeclaredPrefix(t *testing.T) {
	body := `<http://ex/a> foo:bar <http://ex/b> .`
	_, _, err := parseTurtlePage(body)
	require.Error(t, err)
}
