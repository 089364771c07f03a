package memory

import (
	"testing"
	"time"

	"github.com/remiges-tech/searchquery/filter"
)

func evalAgainst(t *testing.T, input string, doc map[string]interface{}) bool {
	t.Helper()
	ok, err := evalExpr(filter.MustParse(input), doc, nil)
	if err != nil {
		t.Fatalf("evalExpr(%q) error = %v", input, err)
	}
	return ok
}

func TestEvalComparisons(t *testing.T) {
	doc := map[string]interface{}{
		"name":    "Grand Hotel",
		"rating":  4.5,
		"stars":   4, // int values compare against both int and float literals
		"open":    true,
		"closed":  false,
		"since":   "2019-03-01T00:00:00Z",
		"address": map[string]interface{}{"city": "Paris"},
	}

	tests := []struct {
		input string
		want  bool
	}{
		{"name eq 'Grand Hotel'", true},
		{"name ne 'Grand Hotel'", false},
		{"name lt 'H'", true}, // lexicographic
		{"rating gt 4", true},
		{"rating le 4.5", true},
		{"rating lt 4.5", false},
		{"stars eq 4", true},
		{"stars ge 3.5", true},
		{"open eq true", true},
		{"open ne true", false},
		{"open gt false", true}, // false orders before true
		{"open ge true", true},
		{"open lt true", false},
		{"closed lt true", true},
		{"closed ge true", false},
		{"since ge 2019-01-01T00:00:00Z", true},
		{"since lt 2019-01-01T00:00:00Z", false},
		{"address/city eq 'Paris'", true},
		{"address/city eq 'Rome'", false},
		{"rating gt 4 and open eq true", true},
		{"rating gt 5 or open eq true", true},
		{"not rating gt 5", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := evalAgainst(t, tt.input, doc); got != tt.want {
				t.Errorf("eval(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEvalNullSemantics(t *testing.T) {
	doc := map[string]interface{}{
		"present":  "x",
		"nilValue": nil,
	}

	tests := []struct {
		input string
		want  bool
	}{
		{"present eq null", false},
		{"present ne null", true},
		{"missing eq null", true},
		{"missing ne null", false},
		{"nilValue eq null", true},
		// A missing value satisfies only ne against a real literal.
		{"missing eq 'x'", false},
		{"missing ne 'x'", true},
		{"missing gt 1", false},
		// Ordering against null is always false.
		{"present gt null", false},
		{"present le null", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := evalAgainst(t, tt.input, doc); got != tt.want {
				t.Errorf("eval(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEvalLambdas(t *testing.T) {
	doc := map[string]interface{}{
		"tags": []string{"wifi", "pool"},
		"rooms": []interface{}{
			map[string]interface{}{"type": "suite", "baseRate": 300.0},
			map[string]interface{}{"type": "standard", "baseRate": 120.0},
		},
		"empty": []interface{}{},
	}

	tests := []struct {
		input string
		want  bool
	}{
		{"tags/any(t: t eq 'wifi')", true},
		{"tags/any(t: t eq 'sauna')", false},
		{"tags/all(t: t ne 'sauna')", true},
		{"tags/all(t: t eq 'wifi')", false},
		{"tags/any()", true},
		{"empty/any()", false},
		{"missing/any()", false},
		{"empty/all(x: x eq 'anything')", true}, // vacuous
		{"rooms/any(r: r/baseRate lt 200)", true},
		{"rooms/all(r: r/baseRate lt 200)", false},
		{"rooms/any(r: r/type eq 'suite' and r/baseRate gt 250)", true},
		// The body can still reference document fields besides the variable.
		{"rooms/any(r: r/baseRate gt 250 and tags/any(t: t eq 'pool'))", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := evalAgainst(t, tt.input, doc); got != tt.want {
				t.Errorf("eval(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEvalFunctions(t *testing.T) {
	doc := map[string]interface{}{
		"name":     "Grand Hotel",
		"category": "luxury",
		"tags":     []string{"wifi", "pool"},
		"location": map[string]interface{}{"lat": 2.0, "lon": 2.0},
	}

	tests := []struct {
		input string
		want  bool
	}{
		{"startswith(name, 'Grand')", true},
		{"startswith(name, 'grand')", false}, // case sensitive
		{"endswith(name, 'Hotel')", true},
		{"contains(name, 'd H')", true},
		{"startswith(missing, 'x')", false},
		{"search.in(category, 'budget,luxury')", true},
		{"search.in(category, 'budget, luxury')", true}, // values are trimmed
		{"search.in(category, 'budget,boutique')", false},
		{"search.in(tags, 'pool|sauna', '|')", true},
		{"geo.intersects(location, geography'POLYGON((0 0, 4 0, 4 4, 0 4, 0 0))')", true},
		{"geo.intersects(location, geography'POLYGON((10 10, 14 10, 14 14, 10 14, 10 10))')", false},
		{"search.ismatch('grand', 'name')", true},
		{"search.ismatch('grand missing', 'name')", true}, // any term suffices
		{"search.ismatch('sauna', 'name')", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := evalAgainst(t, tt.input, doc); got != tt.want {
				t.Errorf("eval(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEvalGeoDistance(t *testing.T) {
	paris := map[string]interface{}{
		"location": map[string]interface{}{"lat": 48.8566, "lon": 2.3522},
	}
	geojson := map[string]interface{}{
		"location": map[string]interface{}{
			"type":        "Point",
			"coordinates": []interface{}{2.3522, 48.8566},
		},
	}
	noLocation := map[string]interface{}{"name": "nowhere"}

	nearParis := "geo.distance(location, geography'POINT(2.35 48.85)') lt 5"

	if !evalAgainst(t, nearParis, paris) {
		t.Error("lat/lon map form should match")
	}
	if !evalAgainst(t, nearParis, geojson) {
		t.Error("GeoJSON coordinates form should match")
	}
	if evalAgainst(t, nearParis, noLocation) {
		t.Error("documents without the field should not match")
	}

	far := "geo.distance(location, geography'POINT(-0.1278 51.5074)') gt 300"
	if !evalAgainst(t, far, paris) {
		t.Error("Paris should be over 300km from London")
	}
}

func TestEvalDatetimeValues(t *testing.T) {
	// time.Time and RFC3339 strings are both accepted document shapes.
	input := "since ge 2020-01-01T00:00:00Z"

	if !evalAgainst(t, input, map[string]interface{}{"since": time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)}) {
		t.Error("time.Time value should compare")
	}
	if !evalAgainst(t, input, map[string]interface{}{"since": "2021-01-01T00:00:00Z"}) {
		t.Error("RFC3339 string value should compare")
	}
	if evalAgainst(t, input, map[string]interface{}{"since": "2019-01-01T00:00:00Z"}) {
		t.Error("earlier datetime should not satisfy ge")
	}
}

func TestEvalTypeMismatch(t *testing.T) {
	doc := map[string]interface{}{"rating": "not a number"}

	_, err := evalExpr(filter.MustParse("rating gt 4"), doc, nil)
	if err == nil {
		t.Error("comparing a string value to a numeric literal should fail")
	}
}
