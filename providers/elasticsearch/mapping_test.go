package elasticsearch

import (
	"testing"
)

func TestBuildMapping(t *testing.T) {
	body := buildMapping(compileSchema(), 2, 1)

	settings := body["settings"].(map[string]interface{})
	if settings["number_of_shards"] != 2 || settings["number_of_replicas"] != 1 {
		t.Errorf("settings = %v", settings)
	}

	props := body["mappings"].(map[string]interface{})["properties"].(map[string]interface{})

	// Metadata fields are always present.
	for _, meta := range []string{metaKeyField, metaIDField} {
		m, ok := props[meta].(map[string]interface{})
		if !ok || m["type"] != "keyword" {
			t.Errorf("%s mapping = %v, want keyword", meta, props[meta])
		}
	}

	tests := []struct {
		field    string
		wantType string
	}{
		{"name", "text"}, // searchable
		{"category", "keyword"},
		{"rating", "double"},
		{"lastRenovated", "date"},
		{"location", "geo_point"},
		{"tags", "keyword"},
		{"address", "object"},
		{"rooms", "nested"},
	}
	for _, tt := range tests {
		m, ok := props[tt.field].(map[string]interface{})
		if !ok || m["type"] != tt.wantType {
			t.Errorf("%s mapping = %v, want type %s", tt.field, props[tt.field], tt.wantType)
		}
	}

	// Searchable text carries a keyword subfield for term-level queries.
	name := props["name"].(map[string]interface{})
	sub, ok := name["fields"].(map[string]interface{})
	if !ok {
		t.Fatal("name mapping should have a keyword subfield")
	}
	if kw := sub["keyword"].(map[string]interface{}); kw["type"] != "keyword" {
		t.Errorf("keyword subfield = %v", kw)
	}

	// Complex types map their children.
	rooms := props["rooms"].(map[string]interface{})["properties"].(map[string]interface{})
	if rate := rooms["baseRate"].(map[string]interface{}); rate["type"] != "double" {
		t.Errorf("rooms.baseRate mapping = %v", rate)
	}
}

func TestBuildMappingWithoutSchema(t *testing.T) {
	body := buildMapping(nil, 1, 0)
	props := body["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
	if len(props) != 2 {
		t.Errorf("schema-less mapping should only carry metadata fields, got %v", props)
	}
}

func TestGenerateDocumentID(t *testing.T) {
	a := generateDocumentID("hotels", "1")
	b := generateDocumentID("hotels", "2")
	c := generateDocumentID("flights", "1")
	if a == b || a == c {
		t.Errorf("document IDs should differ across keys and ids: %q %q %q", a, b, c)
	}
	if generateDocumentID("hotels", "1") != a {
		t.Error("document IDs should be deterministic")
	}
}
