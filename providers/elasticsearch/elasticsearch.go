package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/remiges-tech/searchquery/filter"
	"github.com/remiges-tech/searchquery/providers"
)

// Provider implements the search Provider interface using Elasticsearch.
type Provider struct {
	client        *elasticsearch.Client
	index         string
	schema        *filter.Schema
	refreshPolicy string
}

// searchHit represents a single search result from Elasticsearch.
type searchHit struct {
	Score     float64                `json:"_score"`
	Source    map[string]interface{} `json:"_source"`
	Highlight map[string][]string    `json:"highlight"`
}

// searchResponse represents the Elasticsearch search response.
type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]aggResult `json:"aggregations"`
}

type aggResult struct {
	Buckets []aggBucket `json:"buckets"`
}

type aggBucket struct {
	Key      interface{} `json:"key"`
	From     *float64    `json:"from"`
	To       *float64    `json:"to"`
	DocCount int64       `json:"doc_count"`
}

// New creates a new Elasticsearch provider with the given configuration.
func New(config *Config) (*Provider, error) {
	config.setDefaults()

	esConfig := elasticsearch.Config{
		Addresses: config.URLs,
		Username:  config.Username,
		Password:  config.Password,
		CloudID:   config.CloudID,
		APIKey:    config.APIKey,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	// Test connection
	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("Elasticsearch connection error: %s", res.String())
	}

	provider := &Provider{
		client:        client,
		index:         config.Index,
		schema:        config.Schema,
		refreshPolicy: config.RefreshPolicy,
	}

	if err := provider.createIndexIfNotExists(config); err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return provider, nil
}

// createIndexIfNotExists creates the index with schema-derived mappings if
// it doesn't exist.
func (p *Provider) createIndexIfNotExists(config *Config) error {
	exists, err := p.indexExists()
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	mapping, err := json.Marshal(buildMapping(config.Schema, config.NumberOfShards, config.NumberOfReplicas))
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	req := esapi.IndicesCreateRequest{
		Index: p.index,
		Body:  bytes.NewReader(mapping),
	}

	res, err := req.Do(context.Background(), p.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("failed to create index: %s", res.String())
	}
	return nil
}

// indexExists checks if the index exists.
func (p *Provider) indexExists() (bool, error) {
	req := esapi.IndicesExistsRequest{
		Index: []string{p.index},
	}

	res, err := req.Do(context.Background(), p.client)
	if err != nil {
		return false, err
	}
	defer func() { _ = res.Body.Close() }()

	const httpOK = 200
	return res.StatusCode == httpOK, nil
}

// Index adds or updates a document in the Elasticsearch index.
func (p *Provider) Index(ctx context.Context, key, id string, doc map[string]interface{}) error {
	docJSON, err := json.Marshal(storedDocument(key, id, doc))
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      p.index,
		DocumentID: generateDocumentID(key, id),
		Body:       bytes.NewReader(docJSON),
		Refresh:    p.refreshPolicy,
	}

	res, err := req.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("failed to index document: %s", res.String())
	}
	return nil
}

// IndexBatch adds or updates several documents through the bulk API.
func (p *Provider) IndexBatch(ctx context.Context, key string, docs map[string]map[string]interface{}) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for id, doc := range docs {
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": p.index,
				"_id":    generateDocumentID(key, id),
			},
		}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("failed to encode bulk action: %w", err)
		}
		if err := enc.Encode(storedDocument(key, id, doc)); err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
	}

	req := esapi.BulkRequest{
		Body:    &buf,
		Refresh: p.refreshPolicy,
	}

	res, err := req.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("failed to execute bulk request: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("bulk indexing failed: %s", res.String())
	}
	return nil
}

// Search compiles the request to the query DSL and executes it.
func (p *Provider) Search(ctx context.Context, key string, input providers.SearchInput) (providers.SearchOutput, error) {
	body, err := p.buildSearchBody(key, input)
	if err != nil {
		return providers.SearchOutput{}, err
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return providers.SearchOutput{}, fmt.Errorf("failed to encode query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{p.index},
		Body:  &buf,
	}

	res, err := req.Do(ctx, p.client)
	if err != nil {
		return providers.SearchOutput{}, fmt.Errorf("failed to execute search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return providers.SearchOutput{}, fmt.Errorf("search failed: %s", res.String())
	}

	return p.parseSearchResponse(res.Body, input)
}

// buildSearchBody assembles the full request body: query, sort, paging,
// aggregations and highlighting.
func (p *Provider) buildSearchBody(key string, input providers.SearchInput) (map[string]interface{}, error) {
	boolQuery := map[string]interface{}{
		"filter": []interface{}{
			term(metaKeyField, key),
		},
	}

	if input.Filter != nil {
		compiled, err := newCompiler(p.schema).compile(input.Filter)
		if err != nil {
			return nil, fmt.Errorf("compiling filter: %w", err)
		}
		boolQuery["filter"] = append(boolQuery["filter"].([]interface{}), compiled)
	}

	if input.Query != "" && input.Query != "*" {
		match := map[string]interface{}{"query": input.Query}
		if input.Mode == providers.MatchAll {
			match["operator"] = "and"
		}
		if fields := p.searchFields(input.SearchFields); len(fields) > 0 {
			match["fields"] = fields
		}
		boolQuery["must"] = []interface{}{
			map[string]interface{}{"multi_match": match},
		}
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"from":  input.Skip,
		"size":  input.Top,
	}
	if input.IncludeTotal {
		body["track_total_hits"] = true
	}

	sort, err := p.buildSort(input.Sort)
	if err != nil {
		return nil, err
	}
	body["sort"] = sort

	if len(input.Facets) > 0 {
		body["aggs"] = p.buildAggs(input.Facets)
	}

	if len(input.Highlight) > 0 {
		fields := make(map[string]interface{}, len(input.Highlight))
		for _, f := range input.Highlight {
			fields[f] = map[string]interface{}{}
		}
		body["highlight"] = map[string]interface{}{
			"fields":    fields,
			"pre_tags":  []string{input.PreTag},
			"post_tags": []string{input.PostTag},
		}
	}

	if len(input.Select) > 0 {
		sources := make([]string, 0, len(input.Select)+1)
		for _, sel := range input.Select {
			sources = append(sources, strings.ReplaceAll(sel, "/", "."))
		}
		body["_source"] = append(sources, metaIDField)
	}

	return body, nil
}

func (p *Provider) buildSort(clauses []filter.SortClause) ([]interface{}, error) {
	c := newCompiler(p.schema)
	sort := make([]interface{}, 0, len(clauses)+2)
	for _, clause := range clauses {
		order := "asc"
		if clause.Desc {
			order = "desc"
		}
		switch clause.Kind {
		case filter.SortScore:
			sort = append(sort, map[string]interface{}{"_score": map[string]interface{}{"order": order}})
		case filter.SortGeoDistance:
			sort = append(sort, map[string]interface{}{
				"_geo_distance": map[string]interface{}{
					c.fieldName(clause.Field): map[string]interface{}{
						"lat": clause.Point.Lat,
						"lon": clause.Point.Lon,
					},
					"order": order,
					"unit":  "km",
				},
			})
		default:
			sort = append(sort, map[string]interface{}{
				c.termField(clause.Field): map[string]interface{}{"order": order},
			})
		}
	}

	// Deterministic order: score then stored ID as tiebreaks.
	if len(clauses) == 0 {
		sort = append(sort, map[string]interface{}{"_score": map[string]interface{}{"order": "desc"}})
	}
	sort = append(sort, map[string]interface{}{metaIDField: map[string]interface{}{"order": "asc"}})
	return sort, nil
}

func (p *Provider) buildAggs(specs []filter.FacetSpec) map[string]interface{} {
	c := newCompiler(p.schema)
	aggs := make(map[string]interface{}, len(specs))
	for _, spec := range specs {
		name := spec.Field.String()
		if spec.IsRange() {
			ranges := make([]interface{}, 0, len(spec.Values)+1)
			for i := 0; i <= len(spec.Values); i++ {
				r := map[string]interface{}{}
				if i > 0 {
					r["from"] = spec.Values[i-1]
				}
				if i < len(spec.Values) {
					r["to"] = spec.Values[i]
				}
				ranges = append(ranges, r)
			}
			aggs[name] = map[string]interface{}{
				"range": map[string]interface{}{
					"field":  c.fieldName(spec.Field),
					"ranges": ranges,
				},
			}
			continue
		}
		aggs[name] = map[string]interface{}{
			"terms": map[string]interface{}{
				"field": c.termField(spec.Field),
				"size":  spec.Count,
			},
		}
	}
	return aggs
}

// searchFields returns the multi_match field list: the request's, or the
// schema's searchable fields.
func (p *Provider) searchFields(requested []string) []string {
	if len(requested) > 0 {
		return requested
	}
	if p.schema == nil {
		return nil
	}
	return p.schema.SearchableFields()
}

// parseSearchResponse converts the Elasticsearch response into provider
// results, stripping the metadata fields from each source document.
func (p *Provider) parseSearchResponse(body io.Reader, input providers.SearchInput) (providers.SearchOutput, error) {
	var response searchResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return providers.SearchOutput{}, fmt.Errorf("failed to decode response: %w", err)
	}

	out := providers.SearchOutput{
		Results: make([]providers.Result, 0, len(response.Hits.Hits)),
		Total:   -1,
	}
	if input.IncludeTotal {
		out.Total = response.Hits.Total.Value
	}

	for _, hit := range response.Hits.Hits {
		id, _ := hit.Source[metaIDField].(string)
		delete(hit.Source, metaIDField)
		delete(hit.Source, metaKeyField)

		out.Results = append(out.Results, providers.Result{
			ID:         id,
			Score:      hit.Score,
			Document:   hit.Source,
			Highlights: hit.Highlight,
		})
	}

	if len(response.Aggregations) > 0 {
		out.Facets = make(map[string][]providers.FacetBucket, len(response.Aggregations))
		for name, agg := range response.Aggregations {
			buckets := make([]providers.FacetBucket, len(agg.Buckets))
			for i, b := range agg.Buckets {
				buckets[i] = providers.FacetBucket{
					Value: b.Key,
					From:  b.From,
					To:    b.To,
					Count: b.DocCount,
				}
				if b.From != nil || b.To != nil {
					buckets[i].Value = nil
				}
			}
			out.Facets[name] = buckets
		}
	}
	return out, nil
}

// Delete removes a document from the index.
func (p *Provider) Delete(ctx context.Context, key, id string) error {
	req := esapi.DeleteRequest{
		Index:      p.index,
		DocumentID: generateDocumentID(key, id),
		Refresh:    p.refreshPolicy,
	}

	res, err := req.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	// 404 is not an error for delete (idempotent)
	const httpNotFound = 404
	if res.IsError() && res.StatusCode != httpNotFound {
		return fmt.Errorf("failed to delete document: %s", res.String())
	}
	return nil
}

// DeleteAll removes all documents for a given key namespace.
func (p *Provider) DeleteAll(ctx context.Context, key string) error {
	query := map[string]interface{}{
		"query": term(metaKeyField, key),
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}

	req := esapi.DeleteByQueryRequest{
		Index:   []string{p.index},
		Body:    &buf,
		Refresh: &[]bool{p.refreshPolicy == "true"}[0],
	}

	res, err := req.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("failed to delete by query: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("failed to delete by query: %s", res.String())
	}
	return nil
}

// Close closes the provider connection.
func (p *Provider) Close() error {
	// The Elasticsearch Go client doesn't have a Close method
	// as it uses standard HTTP connections that are managed by Go's http package
	return nil
}

// storedDocument wraps a document with the namespace and ID metadata fields.
func storedDocument(key, id string, doc map[string]interface{}) map[string]interface{} {
	stored := make(map[string]interface{}, len(doc)+2)
	for k, v := range doc {
		stored[k] = v
	}
	stored[metaKeyField] = key
	stored[metaIDField] = id
	return stored
}

// generateDocumentID creates a unique document ID from key and id.
func generateDocumentID(key, id string) string {
	return fmt.Sprintf("%s:%s", key, id)
}
