package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/remiges-tech/searchquery/filter"
	"github.com/remiges-tech/searchquery/providers"
)

const testKey = "hotels"

func testSchema() *filter.Schema {
	return &filter.Schema{Fields: []filter.Field{
		{Name: "name", Type: filter.TypeString, Filterable: true, Sortable: true, Searchable: true},
		{Name: "description", Type: filter.TypeString, Searchable: true},
		{Name: "category", Type: filter.TypeString, Filterable: true, Facetable: true, Sortable: true},
		{Name: "rating", Type: filter.TypeFloat, Filterable: true, Sortable: true, Facetable: true},
		{Name: "tags", Type: filter.TypeStringCollection, Filterable: true, Facetable: true},
		{Name: "location", Type: filter.TypeGeoPoint, Filterable: true, Sortable: true},
		{Name: "address", Type: filter.TypeComplex, Filterable: true, Fields: []filter.Field{
			{Name: "city", Type: filter.TypeString, Filterable: true, Sortable: true, Facetable: true},
		}},
		{Name: "rooms", Type: filter.TypeComplexCollection, Filterable: true, Fields: []filter.Field{
			{Name: "type", Type: filter.TypeString, Filterable: true},
			{Name: "baseRate", Type: filter.TypeFloat, Filterable: true},
			{Name: "smokingAllowed", Type: filter.TypeBool, Filterable: true},
		}},
	}}
}

func testDocuments() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		"1": {
			"name":        "Grand Hotel",
			"description": "Luxury hotel with a sea view and pool",
			"category":    "luxury",
			"rating":      4.8,
			"tags":        []string{"wifi", "pool", "spa"},
			"location":    map[string]interface{}{"lat": 48.8566, "lon": 2.3522},
			"address":     map[string]interface{}{"city": "Paris"},
			"rooms": []interface{}{
				map[string]interface{}{"type": "suite", "baseRate": 350.0, "smokingAllowed": false},
				map[string]interface{}{"type": "standard", "baseRate": 150.0, "smokingAllowed": false},
			},
		},
		"2": {
			"name":        "Budget Inn",
			"description": "Cheap and cheerful",
			"category":    "budget",
			"rating":      3.2,
			"tags":        []string{"wifi"},
			"location":    map[string]interface{}{"lat": 48.9, "lon": 2.4},
			"address":     map[string]interface{}{"city": "Paris"},
			"rooms": []interface{}{
				map[string]interface{}{"type": "standard", "baseRate": 80.0, "smokingAllowed": true},
			},
		},
		"3": {
			"name":        "Sea Breeze",
			"description": "Boutique hotel with sea view",
			"category":    "boutique",
			"rating":      4.2,
			"tags":        []string{"pool", "beach"},
			"location":    map[string]interface{}{"lat": 43.7, "lon": 7.26},
			"address":     map[string]interface{}{"city": "Nice"},
			"rooms": []interface{}{
				map[string]interface{}{"type": "suite", "baseRate": 220.0, "smokingAllowed": false},
			},
		},
		"4": {
			"name":     "Roadside Stop",
			"category": "budget",
			"address":  map[string]interface{}{"city": "Rome"},
		},
	}
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(Config{Schema: testSchema()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := p.IndexBatch(context.Background(), testKey, testDocuments()); err != nil {
		t.Fatalf("IndexBatch() error = %v", err)
	}
	return p
}

func search(t *testing.T, p *Provider, input providers.SearchInput) providers.SearchOutput {
	t.Helper()
	if input.Top == 0 {
		input.Top = 50
	}
	out, err := p.Search(context.Background(), testKey, input)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	return out
}

func resultIDs(out providers.SearchOutput) []string {
	ids := make([]string, len(out.Results))
	for i, r := range out.Results {
		ids[i] = r.ID
	}
	return ids
}

func assertIDs(t *testing.T, out providers.SearchOutput, want ...string) {
	t.Helper()
	got := resultIDs(out)
	if len(got) != len(want) {
		t.Fatalf("result IDs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("result IDs = %v, want %v", got, want)
		}
	}
}

func TestSearchFilters(t *testing.T) {
	p := newTestProvider(t)

	tests := []struct {
		name   string
		filter string
		want   []string // sorted by default: equal scores, then id ascending
	}{
		{"equality", "category eq 'budget'", []string{"2", "4"}},
		{"range", "rating ge 4", []string{"1", "3"}},
		{"and", "category eq 'luxury' and rating ge 4", []string{"1"}},
		{"or", "category eq 'luxury' or category eq 'boutique'", []string{"1", "3"}},
		{"not", "not category eq 'budget'", []string{"1", "3"}},
		{"null", "rating eq null", []string{"4"}},
		{"not null", "rating ne null", []string{"1", "2", "3"}},
		{"nested field", "address/city eq 'Paris'", []string{"1", "2"}},
		{"tags any", "tags/any(t: t eq 'pool')", []string{"1", "3"}},
		{"tags exists", "tags/any()", []string{"1", "2", "3"}},
		{"rooms any", "rooms/any(r: r/baseRate lt 100)", []string{"2"}},
		{"rooms any conjunction", "rooms/any(r: r/type eq 'suite' and r/baseRate lt 300)", []string{"3"}},
		// all() is vacuously true for documents without the collection.
		{"rooms all", "rooms/all(r: r/smokingAllowed eq false)", []string{"1", "3", "4"}},
		{"search.in", "search.in(category, 'budget,boutique')", []string{"2", "3", "4"}},
		{"search.in on tags", "search.in(tags, 'spa|beach', '|')", []string{"1", "3"}},
		{"startswith", "startswith(name, 'Grand')", []string{"1"}},
		{"contains", "contains(description, 'sea view')", []string{"1", "3"}},
		{"ismatch", "search.ismatch('cheerful', 'description')", []string{"2"}},
		{"geo distance", "geo.distance(location, geography'POINT(2.3522 48.8566)') lt 50", []string{"1", "2"}},
		{"geo distance far", "geo.distance(location, geography'POINT(2.3522 48.8566)') gt 500", []string{"3"}},
		{"no matches", "rating gt 100", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := search(t, p, providers.SearchInput{Filter: filter.MustParse(tt.filter)})
			assertIDs(t, out, tt.want...)
		})
	}
}

func TestSearchFullText(t *testing.T) {
	p := newTestProvider(t)

	t.Run("any mode", func(t *testing.T) {
		out := search(t, p, providers.SearchInput{Query: "hotel pool"})
		assertIDs(t, out, "1", "3") // doc 1 hits both terms and ranks first
		if out.Results[0].Score <= out.Results[1].Score {
			t.Errorf("scores = %f, %f, want the first higher",
				out.Results[0].Score, out.Results[1].Score)
		}
	})

	t.Run("all mode", func(t *testing.T) {
		out := search(t, p, providers.SearchInput{Query: "hotel pool", Mode: providers.MatchAll})
		assertIDs(t, out, "1")
	})

	t.Run("match all query", func(t *testing.T) {
		out := search(t, p, providers.SearchInput{Query: "*"})
		if len(out.Results) != 4 {
			t.Errorf("len(Results) = %d, want 4", len(out.Results))
		}
	})

	t.Run("whole words only", func(t *testing.T) {
		// "sea" must not match inside "Breeze" or "cheap".
		out := search(t, p, providers.SearchInput{Query: "chea"})
		assertIDs(t, out)
	})

	t.Run("restricted fields", func(t *testing.T) {
		out := search(t, p, providers.SearchInput{Query: "sea", SearchFields: []string{"name"}})
		assertIDs(t, out, "3")
	})

	t.Run("query with filter", func(t *testing.T) {
		out := search(t, p, providers.SearchInput{
			Query:  "sea",
			Filter: filter.MustParse("rating ge 4.5"),
		})
		assertIDs(t, out, "1")
	})
}

func TestSearchSort(t *testing.T) {
	p := newTestProvider(t)

	tests := []struct {
		name    string
		orderby string
		want    []string
	}{
		// Documents missing the sort field go last in either direction.
		{"rating desc", "rating desc", []string{"1", "3", "2", "4"}},
		{"rating asc", "rating asc", []string{"2", "3", "1", "4"}},
		{"string field", "name asc", []string{"2", "1", "4", "3"}},
		{"multi clause", "address/city asc, rating desc", []string{"3", "1", "2", "4"}},
		{
			"geo distance from paris",
			"geo.distance(location, geography'POINT(2.3522 48.8566)') asc",
			[]string{"1", "2", "3", "4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses, err := filter.ParseOrderBy(tt.orderby)
			if err != nil {
				t.Fatalf("ParseOrderBy() error = %v", err)
			}
			out := search(t, p, providers.SearchInput{Sort: clauses})
			assertIDs(t, out, tt.want...)
		})
	}
}

func TestSearchPaging(t *testing.T) {
	p := newTestProvider(t)
	clauses, _ := filter.ParseOrderBy("rating desc")

	out := search(t, p, providers.SearchInput{Sort: clauses, Skip: 1, Top: 2, IncludeTotal: true})
	assertIDs(t, out, "3", "2")
	if out.Total != 4 {
		t.Errorf("Total = %d, want 4", out.Total)
	}

	out = search(t, p, providers.SearchInput{Sort: clauses, Skip: 10, Top: 2})
	assertIDs(t, out)
	if out.Total != -1 {
		t.Errorf("Total = %d, want -1 without IncludeTotal", out.Total)
	}
}

func TestSearchFacets(t *testing.T) {
	p := newTestProvider(t)

	t.Run("value facet", func(t *testing.T) {
		spec, _ := filter.ParseFacet("category")
		out := search(t, p, providers.SearchInput{Facets: []filter.FacetSpec{spec}})

		buckets := out.Facets["category"]
		want := []struct {
			value string
			count int64
		}{{"budget", 2}, {"boutique", 1}, {"luxury", 1}}
		if len(buckets) != len(want) {
			t.Fatalf("buckets = %+v, want %d entries", buckets, len(want))
		}
		for i, w := range want {
			if buckets[i].Value != w.value || buckets[i].Count != w.count {
				t.Errorf("bucket %d = %+v, want %s:%d", i, buckets[i], w.value, w.count)
			}
		}
	})

	t.Run("collection elements count once per document", func(t *testing.T) {
		spec, _ := filter.ParseFacet("tags")
		out := search(t, p, providers.SearchInput{Facets: []filter.FacetSpec{spec}})

		counts := map[interface{}]int64{}
		for _, b := range out.Facets["tags"] {
			counts[b.Value] = b.Count
		}
		if counts["wifi"] != 2 || counts["pool"] != 2 || counts["spa"] != 1 {
			t.Errorf("tag counts = %v", counts)
		}
	})

	t.Run("range facet", func(t *testing.T) {
		spec, _ := filter.ParseFacet("rating,values:3.5|4.5")
		out := search(t, p, providers.SearchInput{Facets: []filter.FacetSpec{spec}})

		buckets := out.Facets["rating"]
		if len(buckets) != 3 {
			t.Fatalf("len(buckets) = %d, want 3", len(buckets))
		}
		if buckets[0].From != nil || buckets[0].To == nil || *buckets[0].To != 3.5 || buckets[0].Count != 1 {
			t.Errorf("low bucket = %+v", buckets[0])
		}
		if buckets[1].From == nil || buckets[1].To == nil || buckets[1].Count != 1 {
			t.Errorf("mid bucket = %+v", buckets[1])
		}
		if buckets[2].From == nil || *buckets[2].From != 4.5 || buckets[2].To != nil || buckets[2].Count != 1 {
			t.Errorf("high bucket = %+v", buckets[2])
		}
	})

	t.Run("facets cover the filtered set before paging", func(t *testing.T) {
		spec, _ := filter.ParseFacet("category")
		out := search(t, p, providers.SearchInput{
			Facets: []filter.FacetSpec{spec},
			Filter: filter.MustParse("rating ne null"),
			Top:    1,
		})
		var total int64
		for _, b := range out.Facets["category"] {
			total += b.Count
		}
		if total != 3 {
			t.Errorf("facet total = %d, want 3 despite Top=1", total)
		}
	})
}

func TestSearchSelect(t *testing.T) {
	p := newTestProvider(t)

	out := search(t, p, providers.SearchInput{
		Filter: filter.MustParse("category eq 'luxury'"),
		Select: []string{"name", "address/city"},
	})
	assertIDs(t, out, "1")

	doc := out.Results[0].Document
	if doc["name"] != "Grand Hotel" {
		t.Errorf("name = %v", doc["name"])
	}
	addr, ok := doc["address"].(map[string]interface{})
	if !ok || addr["city"] != "Paris" {
		t.Errorf("address = %v, want nested city", doc["address"])
	}
	if _, present := doc["rating"]; present {
		t.Error("rating should be projected away")
	}
}

func TestSearchHighlight(t *testing.T) {
	p := newTestProvider(t)

	out := search(t, p, providers.SearchInput{
		Query:     "sea",
		Highlight: []string{"description", "name"},
		PreTag:    "<em>",
		PostTag:   "</em>",
	})

	for _, r := range out.Results {
		if r.ID != "1" {
			continue
		}
		frags := r.Highlights["description"]
		if len(frags) != 1 || !strings.Contains(frags[0], "<em>sea</em>") {
			t.Errorf("highlights = %v, want a marked description", r.Highlights)
		}
		if _, present := r.Highlights["name"]; present {
			t.Error("name has no match and should not be highlighted")
		}
	}
}

func TestIndexReplacesDocument(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	if err := p.Index(ctx, testKey, "1", map[string]interface{}{"category": "hostel"}); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	out := search(t, p, providers.SearchInput{Filter: filter.MustParse("category eq 'hostel'"), Top: 10})
	assertIDs(t, out, "1")
	out = search(t, p, providers.SearchInput{Filter: filter.MustParse("category eq 'luxury'"), Top: 10})
	assertIDs(t, out)
}

func TestIndexCopiesDocument(t *testing.T) {
	p, _ := New(Config{})
	ctx := context.Background()

	doc := map[string]interface{}{"tags": []string{"a"}}
	if err := p.Index(ctx, testKey, "1", doc); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	doc["tags"].([]string)[0] = "mutated"

	out := search(t, p, providers.SearchInput{Filter: filter.MustParse("tags/any(t: t eq 'a')"), Top: 10})
	assertIDs(t, out, "1")
}

func TestDelete(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	if err := p.Delete(ctx, testKey, "1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	out := search(t, p, providers.SearchInput{Top: 10})
	if len(out.Results) != 3 {
		t.Errorf("len(Results) = %d, want 3", len(out.Results))
	}

	// Idempotent.
	if err := p.Delete(ctx, testKey, "1"); err != nil {
		t.Errorf("Delete(again) error = %v", err)
	}
	if err := p.Delete(ctx, "no-such-namespace", "1"); err != nil {
		t.Errorf("Delete(unknown namespace) error = %v", err)
	}
}

func TestDeleteAll(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	if err := p.Index(ctx, "other", "x", map[string]interface{}{"a": 1}); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if err := p.DeleteAll(ctx, testKey); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}

	out := search(t, p, providers.SearchInput{Top: 10})
	if len(out.Results) != 0 {
		t.Errorf("len(Results) = %d, want 0", len(out.Results))
	}
	other, err := p.Search(ctx, "other", providers.SearchInput{Top: 10})
	if err != nil {
		t.Fatalf("Search(other) error = %v", err)
	}
	if len(other.Results) != 1 {
		t.Error("DeleteAll should not touch other namespaces")
	}
}

func TestClosed(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close(again) error = %v", err)
	}

	if err := p.Index(ctx, testKey, "1", map[string]interface{}{"a": 1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Index() error = %v, want ErrClosed", err)
	}
	if _, err := p.Search(ctx, testKey, providers.SearchInput{Top: 1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Search() error = %v, want ErrClosed", err)
	}
	if err := p.Delete(ctx, testKey, "1"); !errors.Is(err, ErrClosed) {
		t.Errorf("Delete() error = %v, want ErrClosed", err)
	}
}
