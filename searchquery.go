// Package searchquery provides filtered, sorted, and paginated document
// search with support for multiple storage backends.
//
// The package separates query logic from storage concerns through a provider
// interface, allowing different backends (in-memory, Elasticsearch, a Redis
// cache in front of either) to be used interchangeably. Providers
// self-register during package initialization.
//
// Filters use the OData dialect implemented by the filter subpackage, either
// as text or built programmatically:
//
//	import (
//		"github.com/remiges-tech/searchquery"
//		"github.com/remiges-tech/searchquery/filter"
//		_ "github.com/remiges-tech/searchquery/providers/memory"
//	)
//
//	config := searchquery.NewConfig(memory.Config{Schema: schema})
//	sq, err := searchquery.New("memory", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sq.Close()
//
//	sq.Index(ctx, "1", searchquery.Document{"name": "Grand Hotel", "rating": 4.5})
//
//	page, err := sq.Search(ctx, searchquery.SearchRequest{
//		Filter:  "rating ge 4 and category eq 'luxury'",
//		OrderBy: "rating desc",
//		Top:     10,
//	})
package searchquery

import (
	"context"
	"fmt"
	"strings"

	"github.com/remiges-tech/searchquery/providers"
)

// Searcher defines the query interface. All methods are safe for
// concurrent use.
type Searcher interface {
	// Index adds or updates a document. If a document with the given ID
	// already exists, it is replaced. Returns ErrEmptyID or
	// ErrEmptyDocument for empty parameters.
	Index(ctx context.Context, id string, doc Document) error

	// IndexBatch adds or updates several documents in one call. The batch
	// fails as a whole on the first invalid entry.
	IndexBatch(ctx context.Context, docs map[string]Document) error

	// Search executes a search request and returns one page of results.
	// The request's Filter and OrderBy strings are parsed and, when the
	// instance is configured with a schema, validated before the provider
	// runs. Returns ErrTopExceeded, ErrNegativeSkip or ErrSkipExceeded for
	// out-of-range paging values.
	Search(ctx context.Context, req SearchRequest) (*Page, error)

	// Delete removes a document. Deleting a non-existent document returns
	// nil (idempotent). Returns ErrEmptyID if id is empty.
	Delete(ctx context.Context, id string) error

	// DeleteAll removes every document in the configured namespace.
	DeleteAll(ctx context.Context) error

	// Close closes the provider and releases resources. It is safe to call
	// multiple times. After Close, other methods will fail.
	Close() error
}

// searcherImpl is the default implementation of Searcher.
type searcherImpl struct {
	provider providers.Provider
	config   Config
}

// Index adds or updates a document. See Searcher.Index for details.
func (s *searcherImpl) Index(ctx context.Context, id string, doc Document) error {
	if id == "" {
		return ErrEmptyID
	}
	if len(doc) == 0 {
		return ErrEmptyDocument
	}
	return s.provider.Index(ctx, s.config.Options.Namespace, id, doc)
}

// IndexBatch adds or updates several documents. See Searcher.IndexBatch.
func (s *searcherImpl) IndexBatch(ctx context.Context, docs map[string]Document) error {
	batch := make(map[string]map[string]interface{}, len(docs))
	for id, doc := range docs {
		if id == "" {
			return ErrEmptyID
		}
		if len(doc) == 0 {
			return fmt.Errorf("%w: document %q", ErrEmptyDocument, id)
		}
		batch[id] = doc
	}
	return s.provider.IndexBatch(ctx, s.config.Options.Namespace, batch)
}

// Search executes a search request. See Searcher.Search for details.
func (s *searcherImpl) Search(ctx context.Context, req SearchRequest) (*Page, error) {
	input, err := s.buildInput(req)
	if err != nil {
		return nil, err
	}

	out, err := s.provider.Search(ctx, s.config.Options.Namespace, input)
	if err != nil {
		return nil, err
	}

	page := &Page{
		Results: make([]Result, len(out.Results)),
		Total:   out.Total,
	}
	for i, r := range out.Results {
		page.Results[i] = Result{
			ID:         r.ID,
			Score:      r.Score,
			Document:   Document(r.Document),
			Highlights: r.Highlights,
		}
	}
	if len(out.Facets) > 0 {
		page.Facets = make(map[string][]FacetValue, len(out.Facets))
		for field, buckets := range out.Facets {
			values := make([]FacetValue, len(buckets))
			for i, b := range buckets {
				values[i] = FacetValue{Value: b.Value, From: b.From, To: b.To, Count: b.Count}
			}
			page.Facets[field] = values
		}
	}

	// A full page means there may be more; the continuation request simply
	// advances Skip.
	if len(page.Results) == input.Top {
		next := req
		next.Skip = input.Skip + input.Top
		next.Top = input.Top
		page.NextPage = &next
	}
	return page, nil
}

// Delete removes a document. See Searcher.Delete for details.
func (s *searcherImpl) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	return s.provider.Delete(ctx, s.config.Options.Namespace, id)
}

// DeleteAll removes every document in the namespace.
func (s *searcherImpl) DeleteAll(ctx context.Context) error {
	return s.provider.DeleteAll(ctx, s.config.Options.Namespace)
}

// Close closes the provider.
func (s *searcherImpl) Close() error {
	return s.provider.Close()
}

// New creates a new Searcher with the specified provider. The providerType
// must be registered (case-insensitive). Config contains both
// provider-specific settings and common options.
// Returns ErrProviderNotFound if the provider is not registered.
//
// Example:
//
//	import _ "github.com/remiges-tech/searchquery/providers/memory"
//
//	config := searchquery.NewConfig(memory.Config{Schema: schema})
//	sq, err := searchquery.New("memory", config)
func New(providerType string, config Config) (Searcher, error) {
	factory, exists := providerFactories[strings.ToLower(providerType)]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerType)
	}

	provider, err := factory(config.ProviderConfig)
	if err != nil {
		return nil, err
	}

	return &searcherImpl{
		provider: provider,
		config:   config,
	}, nil
}

// ProviderFactory creates a Provider instance from a configuration.
// The factory must type-assert the config parameter to its expected type.
type ProviderFactory func(config interface{}) (providers.Provider, error)

// providerFactories holds the registered provider factories.
var providerFactories = make(map[string]ProviderFactory)

// RegisterProvider registers a new search provider factory. Typically
// called from a provider's init() function. The name is case-insensitive.
// Registering with an existing name overwrites it.
//
// Thread safety:
//   - Safe to call during init() (single-threaded)
//   - Not safe to call after init() (no mutex protection)
//   - In practice, only called during init() so this is not an issue
func RegisterProvider(name string, factory ProviderFactory) {
	providerFactories[strings.ToLower(name)] = factory
}
