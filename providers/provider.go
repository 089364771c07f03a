// Package providers defines the interface that all search storage providers
// must implement.
package providers

import (
	"context"

	"github.com/remiges-tech/searchquery/filter"
)

// MatchMode controls how multiple full-text terms combine. This mirrors
// searchquery.SearchMode to avoid circular dependencies.
type MatchMode int

const (
	// MatchAny matches documents containing any query term.
	MatchAny MatchMode = iota

	// MatchAll matches only documents containing every query term.
	MatchAll
)

// SearchInput is a fully parsed and validated search request. The root
// package builds it; providers only execute it.
type SearchInput struct {
	// Query is the full-text search text. Empty or "*" matches everything.
	Query string

	// Mode controls term combination for Query.
	Mode MatchMode

	// SearchFields restricts full-text matching. Empty means all
	// searchable fields.
	SearchFields []string

	// Filter is the parsed filter expression, or nil.
	Filter filter.Expr

	// Sort lists orderby clauses in priority order. Empty means relevance
	// order (score descending, document ID ascending as tiebreak).
	Sort []filter.SortClause

	// Select lists fields to return. Empty returns whole documents.
	Select []string

	// Facets lists parsed facet requests.
	Facets []filter.FacetSpec

	// Skip and Top window the result set. Top is always positive.
	Skip int
	Top  int

	// IncludeTotal requests the pre-paging match count.
	IncludeTotal bool

	// Highlight lists fields for hit highlighting, wrapped in PreTag and
	// PostTag.
	Highlight []string
	PreTag    string
	PostTag   string
}

// Result is a single hit returned by a provider.
type Result struct {
	// ID is the document identifier given at indexing time.
	ID string `json:"id"`

	// Score indicates relevance (higher is better).
	Score float64 `json:"score"`

	// Document holds the stored document, projected through Select.
	Document map[string]interface{} `json:"document"`

	// Highlights maps highlighted field names to marked-up fragments.
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// FacetBucket is one facet bucket. Value facets set Value; range facets set
// From and/or To (nil means unbounded).
type FacetBucket struct {
	Value interface{} `json:"value,omitempty"`
	From  *float64    `json:"from,omitempty"`
	To    *float64    `json:"to,omitempty"`
	Count int64       `json:"count"`
}

// SearchOutput is the provider response for one page.
type SearchOutput struct {
	// Results holds the page's hits in final order.
	Results []Result `json:"results"`

	// Total is the pre-paging match count, or -1 when not counted.
	Total int64 `json:"total"`

	// Facets maps faceted field names to buckets computed over the
	// filtered (pre-paging) result set.
	Facets map[string][]FacetBucket `json:"facets,omitempty"`
}

// Provider defines the interface that all search providers must implement.
// All methods must be safe for concurrent use. The 'key' parameter acts as
// a namespace to allow multiple datasets to coexist.
type Provider interface {
	// Index adds or updates a document. If a document with the given
	// key+id exists, it is replaced.
	Index(ctx context.Context, key, id string, doc map[string]interface{}) error

	// IndexBatch adds or updates several documents in one operation.
	IndexBatch(ctx context.Context, key string, docs map[string]map[string]interface{}) error

	// Search executes a parsed request and returns one page. Results must
	// be deterministically ordered: the requested sort, with document ID
	// as the final tiebreak. Returns an empty Results slice (not nil) when
	// nothing matches.
	Search(ctx context.Context, key string, input SearchInput) (SearchOutput, error)

	// Delete removes a document. Deleting a non-existent document succeeds
	// without error (idempotent).
	Delete(ctx context.Context, key, id string) error

	// DeleteAll removes all documents for a given key namespace.
	// This operation cannot be undone.
	DeleteAll(ctx context.Context, key string) error

	// Close closes the provider connection and releases resources.
	// It is safe to call multiple times. After Close, other methods will fail.
	Close() error
}
