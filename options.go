package searchquery

import "github.com/remiges-tech/searchquery/filter"

// defaultTop is the default page size when a request leaves Top unset.
const defaultTop = 50

// defaultMaxTop is the largest page size a request may ask for.
const defaultMaxTop = 1000

// defaultMaxSkip is the deepest offset a request may ask for. Deep paging
// past this point should use a narrowing filter instead.
const defaultMaxSkip = 100000

// Config holds configuration for a Searcher instance.
type Config struct {
	// ProviderConfig contains provider-specific configuration.
	// Each provider defines its own config struct type.
	ProviderConfig interface{}

	// Options contains common search behavior settings.
	Options Options
}

// Options contains common search behavior settings.
// Use DefaultOptions() for default values.
type Options struct {
	// DefaultTop is the page size when a request leaves Top at zero.
	DefaultTop int

	// MaxTop is the maximum page size that can be requested.
	MaxTop int

	// MaxSkip is the maximum offset that can be requested.
	MaxSkip int

	// Namespace prefixes all keys in the storage backend. Enables multiple
	// datasets to coexist (e.g., "prod_hotels", "staging_hotels").
	// Default: "default".
	Namespace string

	// Schema, when set, enables validation of filters, orderby clauses and
	// facet requests before they reach the provider. Providers that build
	// physical indexes take their own schema through their provider config.
	Schema *filter.Schema

	// HighlightPreTag and HighlightPostTag wrap matched terms in highlight
	// fragments. Defaults: "<em>" and "</em>".
	HighlightPreTag  string
	HighlightPostTag string
}

// DefaultOptions returns default options.
func DefaultOptions() Options {
	return Options{
		DefaultTop:       defaultTop,
		MaxTop:           defaultMaxTop,
		MaxSkip:          defaultMaxSkip,
		Namespace:        "default",
		HighlightPreTag:  "<em>",
		HighlightPostTag: "</em>",
	}
}

// NewConfig creates a new configuration with default options.
func NewConfig(providerConfig interface{}) Config {
	return Config{
		ProviderConfig: providerConfig,
		Options:        DefaultOptions(),
	}
}

// NewConfigWithOptions creates a new configuration with custom options.
func NewConfigWithOptions(providerConfig interface{}, options Options) Config {
	return Config{
		ProviderConfig: providerConfig,
		Options:        options,
	}
}
