package memory

import (
	"fmt"

	"github.com/remiges-tech/searchquery"
	"github.com/remiges-tech/searchquery/providers"
)

// init registers the memory provider. Import this package with a blank
// identifier to use the in-memory backend:
//
//	import _ "github.com/remiges-tech/searchquery/providers/memory"
//
//nolint:gochecknoinits // init() is the idiomatic pattern for provider registration
func init() {
	searchquery.RegisterProvider("memory", NewProvider)
}

// NewProvider creates a new memory provider from the given configuration.
// It implements ProviderFactory and expects config to be of type memory.Config
// or nil.
func NewProvider(config interface{}) (providers.Provider, error) {
	if config == nil {
		return New(Config{})
	}
	memConfig, ok := config.(Config)
	if !ok {
		return nil, fmt.Errorf("invalid configuration type for memory provider: expected memory.Config, got %T", config)
	}
	return New(memConfig)
}
