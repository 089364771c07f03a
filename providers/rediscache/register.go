package rediscache

import (
	"fmt"

	"github.com/remiges-tech/searchquery"
	"github.com/remiges-tech/searchquery/providers"
)

// init registers the Redis cache provider. Import this package with a blank
// identifier and pass a Config whose Inner field holds the provider to
// decorate:
//
//	import _ "github.com/remiges-tech/searchquery/providers/rediscache"
//
//	inner, _ := memory.New(memory.Config{Schema: schema})
//	config := searchquery.NewConfig(rediscache.Config{
//		Addr:  "localhost:6379",
//		Inner: inner,
//	})
//	sq, err := searchquery.New("rediscache", config)
//
//nolint:gochecknoinits // init() is the idiomatic pattern for provider registration
func init() {
	searchquery.RegisterProvider("rediscache", NewProvider)
}

// NewProvider creates a new Redis cache provider from the given configuration.
// It implements ProviderFactory and expects config to be of type rediscache.Config.
func NewProvider(config interface{}) (providers.Provider, error) {
	cacheConfig, ok := config.(Config)
	if !ok {
		return nil, fmt.Errorf("invalid configuration type for Redis cache provider: expected rediscache.Config, got %T", config)
	}

	return New(cacheConfig)
}
