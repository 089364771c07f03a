package searchquery

import (
	"fmt"

	"github.com/remiges-tech/searchquery/filter"
	"github.com/remiges-tech/searchquery/providers"
)

// Document is a search document: field names to values. Nested objects are
// map[string]interface{} values; collections are []interface{} or []string.
type Document map[string]interface{}

// SearchMode controls how multiple search terms combine.
type SearchMode int

const (
	// SearchAny matches documents containing any of the terms (default).
	SearchAny SearchMode = iota

	// SearchAll matches only documents containing every term.
	SearchAll
)

// SearchRequest describes one search call.
type SearchRequest struct {
	// Query is the full-text search text. Empty or "*" matches all
	// documents.
	Query string

	// SearchMode controls term combination for Query.
	SearchMode SearchMode

	// SearchFields restricts full-text matching to these fields. Empty
	// means all searchable fields.
	SearchFields []string

	// Filter is an OData filter expression. Ignored when Expr is set.
	Filter string

	// Expr is a pre-built filter expression, taking precedence over
	// Filter.
	Expr filter.Expr

	// OrderBy is a sort list such as "rating desc, name asc". Ignored when
	// Sort is set.
	OrderBy string

	// Sort is a pre-built sort list, taking precedence over OrderBy.
	Sort []filter.SortClause

	// Select lists the fields to return. Empty returns whole documents.
	Select []string

	// Facets requests facet buckets, e.g. "category,count:5" or
	// "rating,values:1|2|3|4".
	Facets []string

	// Skip is the number of results to skip.
	Skip int

	// Top is the page size. Zero means Options.DefaultTop.
	Top int

	// IncludeTotal requests the total match count in Page.Total. Some
	// backends count more cheaply when this is off.
	IncludeTotal bool

	// Highlight lists fields for hit highlighting.
	Highlight []string
}

// Result is a single search hit.
type Result struct {
	// ID is the document identifier given at indexing time.
	ID string `json:"id"`

	// Score indicates relevance (higher scores rank first).
	Score float64 `json:"score"`

	// Document holds the matched document, projected through Select.
	Document Document `json:"document"`

	// Highlights maps highlighted field names to marked-up fragments.
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// FacetValue is one facet bucket. Value facets set Value; range facets set
// From and/or To (nil means unbounded).
type FacetValue struct {
	Value interface{} `json:"value,omitempty"`
	From  *float64    `json:"from,omitempty"`
	To    *float64    `json:"to,omitempty"`
	Count int64       `json:"count"`
}

// Page is one page of search results.
type Page struct {
	// Results holds the hits for this page, in request order.
	Results []Result `json:"results"`

	// Total is the number of matches before paging, when requested with
	// IncludeTotal. -1 when not counted.
	Total int64 `json:"total"`

	// Facets maps faceted field names to their buckets.
	Facets map[string][]FacetValue `json:"facets,omitempty"`

	// NextPage is the request for the following page, or nil when this
	// page was not full.
	NextPage *SearchRequest `json:"-"`
}

// buildInput parses and validates the request into the provider form.
func (s *searcherImpl) buildInput(req SearchRequest) (providers.SearchInput, error) {
	opts := s.config.Options

	expr := req.Expr
	if expr == nil && req.Filter != "" {
		parsed, err := filter.Parse(req.Filter)
		if err != nil {
			return providers.SearchInput{}, fmt.Errorf("parsing filter: %w", err)
		}
		expr = parsed
	}

	sort := req.Sort
	if sort == nil && req.OrderBy != "" {
		parsed, err := filter.ParseOrderBy(req.OrderBy)
		if err != nil {
			return providers.SearchInput{}, fmt.Errorf("parsing orderby: %w", err)
		}
		sort = parsed
	}

	var facets []filter.FacetSpec
	for _, raw := range req.Facets {
		spec, err := filter.ParseFacet(raw)
		if err != nil {
			return providers.SearchInput{}, err
		}
		facets = append(facets, spec)
	}

	if opts.Schema != nil {
		if expr != nil {
			if err := filter.Validate(expr, opts.Schema); err != nil {
				return providers.SearchInput{}, fmt.Errorf("invalid filter: %w", err)
			}
		}
		if err := filter.ValidateOrderBy(sort, opts.Schema); err != nil {
			return providers.SearchInput{}, fmt.Errorf("invalid orderby: %w", err)
		}
		for _, spec := range facets {
			if err := filter.ValidateFacet(spec, opts.Schema); err != nil {
				return providers.SearchInput{}, fmt.Errorf("invalid facet: %w", err)
			}
		}
	}

	top := req.Top
	if top <= 0 {
		top = opts.DefaultTop
	}
	if top > opts.MaxTop {
		return providers.SearchInput{}, ErrTopExceeded
	}
	if req.Skip < 0 {
		return providers.SearchInput{}, ErrNegativeSkip
	}
	if req.Skip > opts.MaxSkip {
		return providers.SearchInput{}, ErrSkipExceeded
	}

	mode := providers.MatchAny
	if req.SearchMode == SearchAll {
		mode = providers.MatchAll
	}

	return providers.SearchInput{
		Query:        req.Query,
		Mode:         mode,
		SearchFields: req.SearchFields,
		Filter:       expr,
		Sort:         sort,
		Select:       req.Select,
		Facets:       facets,
		Skip:         req.Skip,
		Top:          top,
		IncludeTotal: req.IncludeTotal,
		Highlight:    req.Highlight,
		PreTag:       opts.HighlightPreTag,
		PostTag:      opts.HighlightPostTag,
	}, nil
}
