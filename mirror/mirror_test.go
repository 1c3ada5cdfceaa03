package mirror

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gooofy/quadstore/store"
	"github.com/gooofy/quadstore/term"
)

func TestFindEndpointMatchesByHost(t *testing.T) {
	m, err := New(nil, nil, map[string]string{
		"www.wikidata.org": "https://query.wikidata.org/bigdata/ldf",
	}, nil)
	require.NoError(t, err)

	ep, ok := m.findEndpoint("http://www.wikidata.org/entity/Q567")
	assert.True(t, ok)
	assert.Equal(t, "https://query.wikidata.org/bigdata/ldf", ep)

	_, ok = m.findEndpoint("http://dbpedia.org/resource/Foo")
	assert.False(t, ok)
}

func TestFindEndpointCachesMiss(t *testing.T) {
	m, err := New(nil, nil, map[string]string{}, nil)
	require.NoError(t, err)

	_, ok := m.findEndpoint("http://unknown.example/x")
	assert.False(t, ok)
	v, hit := m.endpointCache.Get("http://unknown.example/x")
	require.True(t, hit)
	assert.Equal(t, "", v)
}

func TestObjectMatches(t *testing.T) {
	assert.True(t, objectMatches(term.IRI("http://ex/a"), "http://ex/a"))
	assert.False(t, objectMatches(term.IRI("http://ex/a"), "http://ex/b"))
	assert.True(t, objectMatches(term.Literal{Lexical: "hi"}, "hi"))
}

// TestResolveSeedsPatternFetchesSubjects exercises resolveSeeds' pattern-seed
// branch: a (predicate, object) seed is resolved by fetching fetch_ldf(p, o)
// and collecting every returned triple's subject, mirroring the
// isinstance(resource, basestring) branch in mirror()'s ground-truth
// implementation.
func TestResolveSeedsPatternFetchesSubjects(t *testing.T) {
	// findEndpoint routes by URL host, so the seed's predicate must resolve
	// to a host this endpoints map knows about, and the served triples must
	// name that same predicate so FetchLDF's post-filter keeps them.
	host := "ldf.example"
	predicate := "http://" + host + "/prop/geoID"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/turtle")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<http://ex/q1> <` + predicate + `> "123" .
<http://ex/q2> <` + predicate + `> "123" .
`))
	}))
	defer srv.Close()

	m, err := New(nil, nil, map[string]string{host: srv.URL}, nil)
	require.NoError(t, err)

	rp := ResourcePath{Start: []Seed{{Predicate: predicate, Object: "123"}}}
	seeds, err := m.resolveSeeds(context.Background(), rp, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"http://ex/q1", "http://ex/q2"}, seeds)
}

func TestApplyTransformOverridesFilterAndSynthesizesOnlyFromNetwork(t *testing.T) {
	step := PathStep{
		Predicate: "wdpd:GeoNamesID",
		Transform: func(o term.Term) (string, term.Term) {
			return "hal:GeoNames", term.IRI("http://ex/geonames/" + o.(term.Literal).Lexical)
		},
	}
	quads := []store.Quad{
		{Subject: "http://ex/r", Predicate: "wdpd:GeoNamesID", Object: term.Literal{Lexical: "123"}},
	}
	resolve := func(s string) string { return s }

	pred, wildcard, synth := applyTransform(step, "http://ex/r", quads, true, "http://ex/ctx", resolve)
	assert.Equal(t, "hal:GeoNames", pred)
	assert.False(t, wildcard)
	require.Len(t, synth, 1)
	assert.Equal(t, "http://ex/r", synth[0].Subject)
	assert.Equal(t, "hal:GeoNames", synth[0].Predicate)
	assert.Equal(t, term.IRI("http://ex/geonames/123"), synth[0].Object)
	assert.Equal(t, "http://ex/ctx", synth[0].Context)

	// On a cache-hit re-walk (fromNetwork=false) the filter still follows the
	// resolved new predicate, but no synthetic quad is produced or persisted.
	pred, wildcard, synth = applyTransform(step, "http://ex/r", quads, false, "http://ex/ctx", resolve)
	assert.Equal(t, "hal:GeoNames", pred)
	assert.False(t, wildcard)
	assert.Empty(t, synth)
}

func TestApplyTransformNoopWithoutTransform(t *testing.T) {
	step := PathStep{Predicate: "rdf:type", Wildcard: false}
	pred, wildcard, synth := applyTransform(step, "http://ex/r", nil, true, "", func(s string) string { return s })
	assert.Equal(t, "rdf:type", pred)
	assert.False(t, wildcard)
	assert.Empty(t, synth)
}
