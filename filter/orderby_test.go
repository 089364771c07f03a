package filter

import (
	"errors"
	"strings"
	"testing"
)

func TestParseOrderBy(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []SortClause
	}{
		{
			"default ascending",
			"rating",
			[]SortClause{{Field: FieldPath{"rating"}}},
		},
		{
			"descending",
			"rating desc",
			[]SortClause{{Field: FieldPath{"rating"}, Desc: true}},
		},
		{
			"multiple clauses",
			"rating desc, name asc",
			[]SortClause{
				{Field: FieldPath{"rating"}, Desc: true},
				{Field: FieldPath{"name"}},
			},
		},
		{
			"nested field",
			"address/city",
			[]SortClause{{Field: FieldPath{"address", "city"}}},
		},
		{
			"score",
			"search.score() desc",
			[]SortClause{{Kind: SortScore, Desc: true}},
		},
		{
			"geo distance",
			"geo.distance(location, geography'POINT(2.35 48.85)') asc",
			[]SortClause{{
				Kind:  SortGeoDistance,
				Field: FieldPath{"location"},
				Point: Point{Lat: 48.85, Lon: 2.35},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOrderBy(tt.input)
			if err != nil {
				t.Fatalf("ParseOrderBy(%q) error = %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Kind != tt.want[i].Kind || got[i].Desc != tt.want[i].Desc ||
					got[i].Field.String() != tt.want[i].Field.String() ||
					got[i].Point != tt.want[i].Point {
					t.Errorf("clause %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseOrderByErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"empty", "", "expected a field or function"},
		{"missing comma", "rating desc name", "expected ','"},
		{"lambda", "tags/any(t: t eq 'x')", "not allowed in orderby"},
		{"geo bad point", "geo.distance(location, 'near')", "geography point"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOrderBy(tt.input)
			if err == nil {
				t.Fatalf("ParseOrderBy(%q) expected error", tt.input)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}

	t.Run("too many clauses", func(t *testing.T) {
		input := strings.Repeat("rating, ", MaxOrderByClauses) + "rating"
		_, err := ParseOrderBy(input)
		if !errors.Is(err, ErrTooManyClauses) {
			t.Errorf("error = %v, want ErrTooManyClauses", err)
		}
	})
}

func TestOrderByRoundTrip(t *testing.T) {
	inputs := []string{
		"rating desc, name asc",
		"search.score() desc, hotelId asc",
		"geo.distance(location, geography'POINT(2.35 48.85)') asc",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			clauses, err := ParseOrderBy(input)
			if err != nil {
				t.Fatalf("ParseOrderBy(%q) error = %v", input, err)
			}
			if got := FormatOrderBy(clauses); got != input {
				t.Errorf("FormatOrderBy() = %q, want %q", got, input)
			}
		})
	}
}

func TestValidateOrderBy(t *testing.T) {
	schema := hotelSchema()

	valid := [][]SortClause{
		mustOrderBy(t, "rating desc"),
		mustOrderBy(t, "search.score() desc, hotelId"),
		mustOrderBy(t, "address/city asc"),
		mustOrderBy(t, "geo.distance(location, geography'POINT(0 0)')"),
	}
	for _, clauses := range valid {
		if err := ValidateOrderBy(clauses, schema); err != nil {
			t.Errorf("ValidateOrderBy(%q) error = %v", FormatOrderBy(clauses), err)
		}
	}

	tests := []struct {
		name     string
		input    string
		sentinel error
	}{
		{"unknown field", "bogus desc", ErrUnknownField},
		{"not sortable", "tags asc", ErrNotSortable},
		{"geo on non-geo field", "geo.distance(rating, geography'POINT(0 0)')", ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses := mustOrderBy(t, tt.input)
			err := ValidateOrderBy(clauses, schema)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("error = %v, want errors.Is(%v)", err, tt.sentinel)
			}
		})
	}
}

func mustOrderBy(t *testing.T, input string) []SortClause {
	t.Helper()
	clauses, err := ParseOrderBy(input)
	if err != nil {
		t.Fatalf("ParseOrderBy(%q) error = %v", input, err)
	}
	return clauses
}
