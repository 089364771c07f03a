// Package memory implements the search Provider interface with an in-memory
// document store. Filters are evaluated directly against documents, making
// it the reference backend: what this provider returns is what the filter
// dialect means.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/remiges-tech/searchquery/filter"
	"github.com/remiges-tech/searchquery/providers"
)

// ErrClosed is returned by all operations after Close.
var ErrClosed = errors.New("memory provider is closed")

// Config holds memory provider settings.
type Config struct {
	// Schema drives full-text matching (Searchable fields). Optional: with
	// no schema, every string field is searchable.
	Schema *filter.Schema
}

// Provider implements the search Provider interface in memory.
// All methods are safe for concurrent use.
type Provider struct {
	mu     sync.RWMutex
	spaces map[string]map[string]map[string]interface{}
	schema *filter.Schema
	closed bool
}

// New creates a new memory provider.
func New(config Config) (*Provider, error) {
	return &Provider{
		spaces: make(map[string]map[string]map[string]interface{}),
		schema: config.Schema,
	}, nil
}

// Index adds or updates a document.
func (p *Provider) Index(ctx context.Context, key, id string, doc map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.spaces[key] == nil {
		p.spaces[key] = make(map[string]map[string]interface{})
	}
	p.spaces[key][id] = copyDocument(doc)
	return nil
}

// IndexBatch adds or updates several documents atomically.
func (p *Provider) IndexBatch(ctx context.Context, key string, docs map[string]map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.spaces[key] == nil {
		p.spaces[key] = make(map[string]map[string]interface{})
	}
	for id, doc := range docs {
		p.spaces[key][id] = copyDocument(doc)
	}
	return nil
}

// Search evaluates the request against the namespace.
func (p *Provider) Search(ctx context.Context, key string, input providers.SearchInput) (providers.SearchOutput, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return providers.SearchOutput{}, ErrClosed
	}

	terms := queryTerms(input.Query)
	searchFields := input.SearchFields
	if len(searchFields) == 0 && p.schema != nil {
		searchFields = p.schema.SearchableFields()
	}

	// Filter and score the full namespace first; facets and the total are
	// computed before paging.
	type hit struct {
		id    string
		score float64
		doc   map[string]interface{}
	}
	var hits []hit
	for id, doc := range p.spaces[key] {
		if input.Filter != nil {
			ok, err := evalExpr(input.Filter, doc, nil)
			if err != nil {
				return providers.SearchOutput{}, err
			}
			if !ok {
				continue
			}
		}

		score := 1.0
		if len(terms) > 0 {
			matched, s := scoreDocument(doc, terms, searchFields, input.Mode)
			if !matched {
				continue
			}
			score = s
		}
		hits = append(hits, hit{id: id, score: score, doc: doc})
	}

	out := providers.SearchOutput{Total: -1}
	if input.IncludeTotal {
		out.Total = int64(len(hits))
	}

	if len(input.Facets) > 0 {
		docs := make([]map[string]interface{}, len(hits))
		for i, h := range hits {
			docs[i] = h.doc
		}
		out.Facets = computeFacets(docs, input.Facets)
	}

	clauses := input.Sort
	sort.SliceStable(hits, func(i, j int) bool {
		for _, c := range clauses {
			if cmp := compareForSort(c, hits[i].doc, hits[j].doc, hits[i].score, hits[j].score); cmp != 0 {
				return cmp < 0
			}
		}
		if len(clauses) == 0 && hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].id < hits[j].id
	})

	// Page window.
	start := input.Skip
	if start > len(hits) {
		start = len(hits)
	}
	end := start + input.Top
	if end > len(hits) {
		end = len(hits)
	}

	out.Results = make([]providers.Result, 0, end-start)
	for _, h := range hits[start:end] {
		r := providers.Result{
			ID:       h.id,
			Score:    h.score,
			Document: project(h.doc, input.Select),
		}
		if len(input.Highlight) > 0 && len(terms) > 0 {
			r.Highlights = highlight(h.doc, input.Highlight, terms, input.PreTag, input.PostTag)
		}
		out.Results = append(out.Results, r)
	}
	return out, nil
}

// Delete removes a document.
func (p *Provider) Delete(ctx context.Context, key, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	delete(p.spaces[key], id)
	return nil
}

// DeleteAll removes all documents for a namespace.
func (p *Provider) DeleteAll(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	delete(p.spaces, key)
	return nil
}

// Close releases the store. Subsequent calls fail with ErrClosed.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spaces = nil
	p.closed = true
	return nil
}

// queryTerms tokenizes the full-text query. "*" is the match-all query.
func queryTerms(query string) []string {
	if query == "" || query == "*" {
		return nil
	}
	return strings.Fields(strings.ToLower(query))
}

// compareForSort orders two documents under one sort clause: negative when
// a sorts before b.
func compareForSort(c filter.SortClause, a, b map[string]interface{}, scoreA, scoreB float64) int {
	var cmp int
	switch c.Kind {
	case filter.SortScore:
		cmp = compareFloats(scoreA, scoreB)
	case filter.SortGeoDistance:
		da, okA := docDistance(a, c.Field, c.Point)
		db, okB := docDistance(b, c.Field, c.Point)
		if m := compareMissing(okA, okB); m != 0 || !okA {
			return m
		}
		cmp = compareFloats(da, db)
	default:
		va := lookupValue(a, c.Field, nil)
		vb := lookupValue(b, c.Field, nil)
		if m := compareMissing(va != nil, vb != nil); m != 0 || va == nil {
			return m
		}
		cmp = compareValues(va, vb)
	}
	if c.Desc {
		return -cmp
	}
	return cmp
}

func docDistance(doc map[string]interface{}, path filter.FieldPath, ref filter.Point) (float64, bool) {
	pt, ok := toPoint(lookupValue(doc, path, nil))
	if !ok {
		return 0, false
	}
	return pt.DistanceKm(ref), true
}

// compareMissing sorts documents lacking the sort value after those that
// have it, regardless of direction.
func compareMissing(hasA, hasB bool) int {
	switch {
	case hasA && !hasB:
		return -1
	case !hasA && hasB:
		return 1
	}
	return 0
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func copyDocument(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyDocument(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	}
	return v
}

// project applies the select list. Paths like "address/city" keep their
// nesting in the projected document.
func project(doc map[string]interface{}, selects []string) map[string]interface{} {
	if len(selects) == 0 {
		return copyDocument(doc)
	}
	out := make(map[string]interface{}, len(selects))
	for _, sel := range selects {
		path := strings.Split(sel, "/")
		v := lookupValue(doc, filter.FieldPath(path), nil)
		if v == nil {
			continue
		}
		target := out
		for _, seg := range path[:len(path)-1] {
			next, ok := target[seg].(map[string]interface{})
			if !ok {
				next = make(map[string]interface{})
				target[seg] = next
			}
			target = next
		}
		target[path[len(path)-1]] = copyValue(v)
	}
	return out
}
