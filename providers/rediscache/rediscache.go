// Package rediscache implements a Redis-backed read-through cache that
// decorates any other search provider. Search responses are cached under a
// canonical request key; any write bumps a per-namespace version counter,
// which invalidates every cached page for that namespace at once.
package rediscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/remiges-tech/searchquery/filter"
	"github.com/remiges-tech/searchquery/providers"
)

const (
	// prefixPage is the Redis key prefix for cached search pages.
	prefixPage = "sq:page:"

	// prefixVersion is the Redis key prefix for namespace version counters.
	prefixVersion = "sq:version:"

	// defaultTTL bounds how long a cached page can outlive its version.
	defaultTTL = 5 * time.Minute
)

// Config holds Redis connection parameters and cache settings.
type Config struct {
	// Addr is the Redis server address in the format "host:port".
	Addr string

	// Password is the Redis password (empty string for no password).
	Password string

	// DB is the Redis database number (0-15, default is 0).
	DB int

	// TTL is how long cached pages live. Default: 5 minutes.
	TTL time.Duration

	// Inner is the provider whose responses are cached. Required.
	Inner providers.Provider
}

// Provider implements the search Provider interface as a caching decorator.
// All methods are safe for concurrent use.
type Provider struct {
	client *redis.Client
	inner  providers.Provider
	ttl    time.Duration
}

// New creates a new Redis cache in front of config.Inner. It establishes a
// connection to Redis and verifies connectivity with a PING command.
func New(config Config) (*Provider, error) {
	if config.Inner == nil {
		return nil, fmt.Errorf("rediscache requires an inner provider")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password, // pragma: allowlist secret
		DB:       config.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := config.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Provider{
		client: client,
		inner:  config.Inner,
		ttl:    ttl,
	}, nil
}

// Index writes through to the inner provider and invalidates the namespace.
func (p *Provider) Index(ctx context.Context, key, id string, doc map[string]interface{}) error {
	if err := p.inner.Index(ctx, key, id, doc); err != nil {
		return err
	}
	return p.bumpVersion(ctx, key)
}

// IndexBatch writes through to the inner provider and invalidates the
// namespace once.
func (p *Provider) IndexBatch(ctx context.Context, key string, docs map[string]map[string]interface{}) error {
	if err := p.inner.IndexBatch(ctx, key, docs); err != nil {
		return err
	}
	return p.bumpVersion(ctx, key)
}

// Search returns the cached page when present, otherwise asks the inner
// provider and caches its response. Cache failures fall through to the
// inner provider rather than failing the search.
func (p *Provider) Search(ctx context.Context, key string, input providers.SearchInput) (providers.SearchOutput, error) {
	version, err := p.client.Get(ctx, prefixVersion+key).Result()
	if err != nil && err != redis.Nil {
		return p.inner.Search(ctx, key, input)
	}

	cacheKey := pageKey(key, version, input)
	cached, err := p.client.Get(ctx, cacheKey).Result()
	if err == nil {
		var out providers.SearchOutput
		if unmarshalErr := json.Unmarshal([]byte(cached), &out); unmarshalErr == nil {
			return out, nil
		}
		// A corrupt entry is dropped and recomputed.
		p.client.Del(ctx, cacheKey)
	}

	out, err := p.inner.Search(ctx, key, input)
	if err != nil {
		return providers.SearchOutput{}, err
	}

	if payload, marshalErr := json.Marshal(out); marshalErr == nil {
		p.client.Set(ctx, cacheKey, payload, p.ttl)
	}
	return out, nil
}

// Delete writes through to the inner provider and invalidates the namespace.
func (p *Provider) Delete(ctx context.Context, key, id string) error {
	if err := p.inner.Delete(ctx, key, id); err != nil {
		return err
	}
	return p.bumpVersion(ctx, key)
}

// DeleteAll writes through to the inner provider and invalidates the
// namespace.
func (p *Provider) DeleteAll(ctx context.Context, key string) error {
	if err := p.inner.DeleteAll(ctx, key); err != nil {
		return err
	}
	return p.bumpVersion(ctx, key)
}

// Close closes the Redis connection and the inner provider.
func (p *Provider) Close() error {
	redisErr := p.client.Close()
	innerErr := p.inner.Close()
	if redisErr != nil {
		return redisErr
	}
	return innerErr
}

// bumpVersion advances the namespace version so existing cached pages stop
// matching. Old pages expire through their TTL.
func (p *Provider) bumpVersion(ctx context.Context, key string) error {
	if err := p.client.Incr(ctx, prefixVersion+key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache for %q: %w", key, err)
	}
	return nil
}

// pageKey derives the cache key from a canonical rendering of the request.
// Filters and sorts are rendered to their OData text, so structurally equal
// requests share an entry regardless of how the expression was built.
func pageKey(key, version string, input providers.SearchInput) string {
	canon := struct {
		Query        string   `json:"q"`
		Mode         int      `json:"mode"`
		SearchFields []string `json:"sf,omitempty"`
		Filter       string   `json:"f,omitempty"`
		Sort         string   `json:"s,omitempty"`
		Select       []string `json:"sel,omitempty"`
		Facets       []string `json:"fc,omitempty"`
		Skip         int      `json:"skip"`
		Top          int      `json:"top"`
		Total        bool     `json:"tot"`
		Highlight    []string `json:"hl,omitempty"`
		PreTag       string   `json:"pre,omitempty"`
		PostTag      string   `json:"post,omitempty"`
	}{
		Query:        input.Query,
		Mode:         int(input.Mode),
		SearchFields: input.SearchFields,
		Sort:         filter.FormatOrderBy(input.Sort),
		Select:       input.Select,
		Skip:         input.Skip,
		Top:          input.Top,
		Total:        input.IncludeTotal,
		Highlight:    input.Highlight,
		PreTag:       input.PreTag,
		PostTag:      input.PostTag,
	}
	if input.Filter != nil {
		canon.Filter = input.Filter.String()
	}
	for _, spec := range input.Facets {
		canon.Facets = append(canon.Facets, facetKey(spec))
	}

	payload, _ := json.Marshal(canon)
	sum := sha256.Sum256(payload)
	return prefixPage + key + ":" + version + ":" + hex.EncodeToString(sum[:])
}

func facetKey(spec filter.FacetSpec) string {
	var sb strings.Builder
	sb.WriteString(spec.Field.String())
	fmt.Fprintf(&sb, ",count:%d", spec.Count)
	for i, v := range spec.Values {
		if i == 0 {
			sb.WriteString(",values:")
		} else {
			sb.WriteString("|")
		}
		fmt.Fprintf(&sb, "%g", v)
	}
	return sb.String()
}
