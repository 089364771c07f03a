package elasticsearch

import "github.com/remiges-tech/searchquery/filter"

// Metadata fields stored alongside each document. The underscore prefix
// keeps them clear of schema field names, which must start with a letter.
const (
	metaKeyField = "_sq_key"
	metaIDField  = "_sq_id"
)

// buildMapping derives the index settings and mappings from the schema.
// Searchable strings map to text with a keyword subfield so they support
// both full-text matching and term-level filters; complex collections map
// to nested so lambdas can evaluate per element.
func buildMapping(schema *filter.Schema, shards, replicas int) map[string]interface{} {
	properties := map[string]interface{}{
		metaKeyField: map[string]interface{}{"type": "keyword"},
		metaIDField:  map[string]interface{}{"type": "keyword"},
	}
	if schema != nil {
		for _, f := range schema.Fields {
			properties[f.Name] = fieldMapping(f)
		}
	}

	return map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   shards,
			"number_of_replicas": replicas,
		},
		"mappings": map[string]interface{}{
			"properties": properties,
		},
	}
}

func fieldMapping(f filter.Field) map[string]interface{} {
	switch f.Type {
	case filter.TypeString, filter.TypeStringCollection:
		if f.Searchable {
			return map[string]interface{}{
				"type": "text",
				"fields": map[string]interface{}{
					"keyword": map[string]interface{}{"type": "keyword"},
				},
			}
		}
		return map[string]interface{}{"type": "keyword"}

	case filter.TypeInt:
		return map[string]interface{}{"type": "long"}
	case filter.TypeFloat:
		return map[string]interface{}{"type": "double"}
	case filter.TypeBool:
		return map[string]interface{}{"type": "boolean"}
	case filter.TypeDatetime:
		return map[string]interface{}{"type": "date"}
	case filter.TypeGeoPoint:
		return map[string]interface{}{"type": "geo_point"}

	case filter.TypeComplex, filter.TypeComplexCollection:
		sub := make(map[string]interface{}, len(f.Fields))
		for _, child := range f.Fields {
			sub[child.Name] = fieldMapping(child)
		}
		esType := "object"
		if f.Type == filter.TypeComplexCollection {
			esType = "nested"
		}
		return map[string]interface{}{
			"type":       esType,
			"properties": sub,
		}
	}
	return map[string]interface{}{"type": "keyword"}
}
