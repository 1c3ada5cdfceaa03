// Package mirror implements the LDF Mirror (§4.F): populating the Quad
// Store by walking Linked Data Fragments endpoints. Grounded on
// ldfmirror.py's LDFMirror (_find_endpoint/_fetch_ldf/mirror), carrying
// forward its two load-bearing invariants exactly: the cache is always
// checked before any network fetch for a resource, and a resource whose
// quads are already stored is never fetched again (§4.F "Termination").
package mirror

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	cache "github.com/go-pkgz/expirable-cache"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	quadstore "github.com/gooofy/quadstore"
	"github.com/gooofy/quadstore/internal/shortcut"
	"github.com/gooofy/quadstore/store"
	"github.com/gooofy/quadstore/term"
)

// Mirror mirrors triples from a configured set of LDF endpoints into a
// Store, the same role ldfmirror.py's LDFMirror plays for sparqlalchemy.py's
// SPARQLAlchemyStore.
type Mirror struct {
	store     *store.Store
	resolver  *shortcut.Resolver
	endpoints map[string]string
	client    *resty.Client
	log       *zap.SugaredLogger

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
	rateLimit rate.Limit

	endpointCache cache.Cache

	progress func(string)
}

// New returns a Mirror targeting st, resolving resource aliases/prefixes via
// resolver and routing fetches by host through endpoints (host -> LDF base
// URL, mirroring the constructor's endpoints dict).
func New(st *store.Store, resolver *shortcut.Resolver, endpoints map[string]string, log *zap.SugaredLogger) (*Mirror, error) {
	ec, err := cache.NewCache(cache.TTL(5 * time.Minute))
	if err != nil {
		return nil, fmt.Errorf("mirror: creating endpoint cache: %w", err)
	}
	return &Mirror{
		store:         st,
		resolver:      resolver,
		endpoints:     endpoints,
		client:        resty.New(),
		log:           log,
		limiters:      map[string]*rate.Limiter{},
		rateLimit:     rate.Limit(5),
		endpointCache: ec,
	}, nil
}

// findEndpoint resolves which configured LDF endpoint, if any, hosts the
// given resource, mirroring _find_endpoint's host-based lookup. Results are
// cached briefly: the walk can re-check the same resource's host many times
// as it fans out across a path's transform steps.
func (m *Mirror) findEndpoint(resource string) (string, bool) {
	if v, ok := m.endpointCache.Get(resource); ok {
		s, _ := v.(string)
		return s, s != ""
	}
	endpoint := ""
	if u, err := url.Parse(resource); err == nil {
		if e, ok := m.endpoints[u.Host]; ok {
			endpoint = e
		}
	}
	m.endpointCache.Set(resource, endpoint, 0)
	return endpoint, endpoint != ""
}

// SetProgress installs fn to be called with a short status line each time
// the walk starts visiting a resource, letting a caller (e.g. the HTTP
// surface's websocket) observe a mirror job as it runs.
func (m *Mirror) SetProgress(fn func(string)) {
	m.progress = fn
}

func (m *Mirror) limiterFor(endpoint string) *rate.Limiter {
	m.limiterMu.Lock()
	defer m.limiterMu.Unlock()
	l, ok := m.limiters[endpoint]
	if !ok {
		l = rate.NewLimiter(m.rateLimit, 1)
		m.limiters[endpoint] = l
	}
	return l
}

// FetchLDF fetches every quad matching the given (subject, predicate,
// object) pattern — any of which may be empty, meaning unconstrained — from
// whichever endpoint the first non-empty, routable term resolves to,
// following hydra:nextPage/hydra:next pagination hints until a page fails to
// name a next page or returns a non-200 status. A pattern with no routable
// term returns no quads, matching _fetch_ldf's "if not endpoint: return []".
func (m *Mirror) FetchLDF(ctx context.Context, s, p, o, graphContext string) ([]store.Quad, error) {
	params := map[string]string{}
	var endpoint string
	if s != "" {
		params["subject"] = s
		if e, ok := m.findEndpoint(s); ok {
			endpoint = e
		}
	}
	if p != "" {
		params["predicate"] = p
		if endpoint == "" {
			if e, ok := m.findEndpoint(p); ok {
				endpoint = e
			}
		}
	}
	if o != "" {
		params["object"] = o
		if endpoint == "" {
			if e, ok := m.findEndpoint(o); ok {
				endpoint = e
			}
		}
	}
	if endpoint == "" {
		return nil, nil
	}

	var quads []store.Quad
	pageURL := endpoint
	first := true

	for {
		if err := m.limiterFor(endpoint).Wait(ctx); err != nil {
			return nil, err
		}

		req := m.client.R().SetContext(ctx).SetHeader("Accept", "text/turtle")
		if first {
			req = req.SetQueryParams(params)
		}

		resp, err := req.Get(pageURL)
		if err != nil {
			return nil, fmt.Errorf("%w: fetching %s: %v", quadstore.ErrRemoteFetch, pageURL, err)
		}
		if resp.StatusCode() != 200 {
			break
		}

		triples, hints, err := parseTurtlePage(resp.String())
		if err != nil {
			return nil, fmt.Errorf("%w: decoding turtle page from %s: %v", quadstore.ErrMalformedInput, pageURL, err)
		}

		for _, tr := range triples {
			if s != "" && tr.S != s {
				continue
			}
			if p != "" && tr.P != p {
				continue
			}
			if o != "" && !objectMatches(tr.O, o) {
				continue
			}
			quads = append(quads, store.Quad{Subject: tr.S, Predicate: tr.P, Object: tr.O, Context: graphContext})
		}

		next := hints.nextPage
		if next == "" {
			next = hints.next
		}
		if next == "" {
			break
		}
		pageURL = next
		first = false
	}

	return quads, nil
}

func objectMatches(o term.Term, want string) bool {
	switch v := o.(type) {
	case term.IRI:
		return string(v) == want
	case term.Literal:
		return v.Lexical == want
	default:
		return false
	}
}

// ResourcePath is one mirror task-seed specification: a set of start seeds
// and a chain of predicate-following steps to walk from each, mirroring
// ldfmirror.py's mirror() res_paths tuples.
type ResourcePath struct {
	Start []Seed
	Steps []PathStep
}

// Seed is one resource path's starting point: either a bare resource (an
// IRI or shortcut alias, resolved through the Shortcut Resolver), or a
// (Predicate, Object) pattern — mirroring mirror()'s tuple-seed form — that
// is resolved by fetching FetchLDF(p=Predicate, o=Object) and taking every
// returned subject as a starting resource. A Seed with Predicate set is
// always treated as a pattern seed; Resource is ignored in that case.
type Seed struct {
	Resource  string
	Predicate string
	Object    string
}

func (s Seed) isPattern() bool { return s.Predicate != "" }

// PathStep is one element of a resource path's follow-chain: a bare
// predicate (follow every outgoing edge with this predicate), the wildcard
// "*" (follow every outgoing IRI-valued edge, regardless of predicate), or
// a (Predicate, Transform) pair — mirroring a res_filter tuple in
// ldfmirror.py's mirror() — whose Transform computes a synthetic
// (newPredicate, newObject) from the object of every quad matching
// Predicate. The synthetic quad is appended to the resource's quads (and
// persisted alongside them, when they came from the network), and newPredicate
// becomes the effective predicate this step follows into its children.
type PathStep struct {
	Predicate string
	Wildcard  bool
	Transform func(o term.Term) (newPredicate string, newObject term.Term)
}

type task struct {
	resource string
	steps    []PathStep
}

// applyTransform computes the effective predicate/wildcard a step's
// children are filtered by, and any synthetic quads a transform step
// produces, given the quads just seen for resource. filterPredicate starts
// as step.Predicate/step.Wildcard and, for a transform step, is overridden
// to the resolved new predicate the moment a matching quad is found —
// unconditionally, even when the synthetic quad itself isn't appended this
// time (ldfmirror.py recomputes res_filter on every matching quad
// regardless of do_add). A synthetic quad is only returned when fromNetwork
// is true, matching do_add's gating of both persistence and the append to
// the resource's quad list.
func applyTransform(step PathStep, resource string, quads []store.Quad, fromNetwork bool, graphContext string, resolve func(string) string) (filterPredicate string, filterWildcard bool, synthesized []store.Quad) {
	filterPredicate = step.Predicate
	filterWildcard = step.Wildcard

	if step.Transform == nil {
		return filterPredicate, filterWildcard, nil
	}

	for _, q := range quads {
		if q.Predicate != step.Predicate {
			continue
		}
		newPredicate, newObject := step.Transform(q.Object)
		newPredicate = resolve(newPredicate)
		filterPredicate = newPredicate
		filterWildcard = false
		if fromNetwork {
			synthesized = append(synthesized, store.Quad{
				Subject:   resource,
				Predicate: newPredicate,
				Object:    newObject,
				Context:   graphContext,
			})
		}
	}
	return filterPredicate, filterWildcard, synthesized
}

// Mirror walks res_paths, fetching and storing quads into graphContext.
// Seed resources across different ResourcePaths are resolved concurrently
// (bounded by errgroup) before the walk begins; the walk's task queue itself
// stays strictly sequential, last-in-first-out, preserving §4.F's
// termination argument (the cache is always consulted first, and fetched
// quads are stored, so a resource is not fetched again once it has quads; a
// fetch that returns no quads stores nothing, so a later visit fetches that
// resource again).
func (m *Mirror) Mirror(ctx context.Context, paths []ResourcePath, graphContext string) error {
	seedLists := make([][]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, rp := range paths {
		i, rp := i, rp
		g.Go(func() error {
			seeds, err := m.resolveSeeds(gctx, rp, graphContext)
			if err != nil {
				return err
			}
			seedLists[i] = seeds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var todo []task
	for i, rp := range paths {
		for _, r := range seedLists[i] {
			todo = append(todo, task{resource: r, steps: rp.Steps})
		}
	}

	for len(todo) > 0 {
		t := todo[len(todo)-1]
		todo = todo[:len(todo)-1]

		if m.log != nil {
			m.log.Debugf("mirror: %d pending, visiting %s", len(todo), t.resource)
		}
		if m.progress != nil {
			m.progress(fmt.Sprintf("%d pending, visiting %s", len(todo), t.resource))
		}

		quads, err := m.store.FilterQuads(ctx, t.resource, "", "", graphContext)
		if err != nil {
			return err
		}
		fromNetwork := false
		if len(quads) == 0 {
			quads, err = m.FetchLDF(ctx, t.resource, "", "", graphContext)
			if err != nil {
				return err
			}
			fromNetwork = true
		}

		if len(t.steps) > 0 {
			step := t.steps[0]
			rest := t.steps[1:]

			filterPredicate, filterWildcard, synthesized := applyTransform(step, t.resource, quads, fromNetwork, graphContext, m.resolve)
			quads = append(quads, synthesized...)

			for _, q := range quads {
				iri, ok := q.Object.(term.IRI)
				if !ok {
					continue
				}
				if !filterWildcard && q.Predicate != filterPredicate {
					continue
				}
				todo = append(todo, task{resource: string(iri), steps: rest})
			}
		}

		if fromNetwork && len(quads) > 0 {
			if err := m.store.AddN(ctx, quads); err != nil {
				return err
			}
		}
	}

	return nil
}

// resolveSeeds expands rp.Start into concrete starting resources: a bare
// seed resolves through the Shortcut Resolver directly, while a pattern
// seed is resolved by fetching every quad matching (p=Predicate, o=Object)
// and collecting each one's subject, mirroring mirror()'s isinstance(resource,
// basestring) branch in ldfmirror.py.
func (m *Mirror) resolveSeeds(ctx context.Context, rp ResourcePath, graphContext string) ([]string, error) {
	var out []string
	for _, s := range rp.Start {
		if !s.isPattern() {
			out = append(out, m.resolve(s.Resource))
			continue
		}
		quads, err := m.FetchLDF(ctx, "", m.resolve(s.Predicate), m.resolve(s.Object), graphContext)
		if err != nil {
			return nil, err
		}
		for _, q := range quads {
			out = append(out, q.Subject)
		}
	}
	return out, nil
}

func (m *Mirror) resolve(v string) string {
	if m.resolver == nil {
		return v
	}
	return m.resolver.Resolve(v)
}
