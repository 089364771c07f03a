package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// defaultFacetCount is the bucket limit when count is not given.
const defaultFacetCount = 10

// FacetSpec is a parsed facet request. Value facets bucket by distinct
// value; range facets bucket numeric values between the given boundaries.
type FacetSpec struct {
	// Field is the faceted field name.
	Field FieldPath

	// Count limits the number of value buckets. Ignored for range facets.
	Count int

	// Values holds the range boundaries for a range facet, ascending. N
	// boundaries produce N+1 buckets. Empty for a value facet.
	Values []float64
}

// IsRange reports whether the spec is a range facet.
func (f FacetSpec) IsRange() bool { return len(f.Values) > 0 }

// ParseFacet parses a facet expression in the service syntax:
//
//	"category"                    value facet, default bucket count
//	"category,count:5"            value facet, at most 5 buckets
//	"rating,values:1|2|3|4"       range facet with boundaries 1, 2, 3, 4
func ParseFacet(input string) (FacetSpec, error) {
	parts := strings.Split(input, ",")
	name := strings.TrimSpace(parts[0])
	path := splitPath(name)
	if err := CheckFieldPath(path); err != nil {
		return FacetSpec{}, fmt.Errorf("facet %q: %w", input, err)
	}

	spec := FacetSpec{Field: path, Count: defaultFacetCount}
	for _, part := range parts[1:] {
		key, value, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found {
			return FacetSpec{}, fmt.Errorf("facet %q: malformed parameter %q", input, part)
		}
		switch key {
		case "count":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 {
				return FacetSpec{}, fmt.Errorf("facet %q: invalid count %q", input, value)
			}
			spec.Count = n
		case "values":
			var prev float64
			for i, raw := range strings.Split(value, "|") {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return FacetSpec{}, fmt.Errorf("facet %q: invalid boundary %q", input, raw)
				}
				if i > 0 && v <= prev {
					return FacetSpec{}, fmt.Errorf("facet %q: boundaries must be strictly ascending", input)
				}
				spec.Values = append(spec.Values, v)
				prev = v
			}
		default:
			return FacetSpec{}, fmt.Errorf("facet %q: unknown parameter %q", input, key)
		}
	}
	return spec, nil
}

// ValidateFacet checks the spec against a schema: the field must exist and
// be marked Facetable, and range facets require a numeric field.
func ValidateFacet(spec FacetSpec, schema *Schema) error {
	f, ok := schema.Resolve(spec.Field)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, spec.Field.String())
	}
	if !f.Facetable {
		return fmt.Errorf("%w: %s", ErrNotFacetable, spec.Field.String())
	}
	if spec.IsRange() && f.Type != TypeInt && f.Type != TypeFloat {
		return fmt.Errorf("%w: range facet requires a numeric field, %s is %s",
			ErrTypeMismatch, spec.Field.String(), f.Type)
	}
	return nil
}
