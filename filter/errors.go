package filter

import "errors"

// Sentinel errors returned by validation. Wrapped errors carry the field or
// clause that failed; match with errors.Is.

var (
	// ErrUnknownField is returned when a filter references a field that is
	// not in the schema.
	ErrUnknownField = errors.New("unknown field")

	// ErrNotFilterable is returned when a filter references a field whose
	// schema entry is not marked Filterable.
	ErrNotFilterable = errors.New("field is not filterable")

	// ErrNotSortable is returned when an orderby clause references a field
	// whose schema entry is not marked Sortable.
	ErrNotSortable = errors.New("field is not sortable")

	// ErrNotFacetable is returned when a facet request references a field
	// whose schema entry is not marked Facetable.
	ErrNotFacetable = errors.New("field is not facetable")

	// ErrTypeMismatch is returned when a comparison mixes incompatible
	// types, such as a string field against a numeric literal.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrInvalidFieldName is returned for field names outside
	// [A-Za-z_][A-Za-z0-9_]*.
	ErrInvalidFieldName = errors.New("invalid field name")

	// ErrTooManyClauses is returned when an orderby list exceeds
	// MaxOrderByClauses.
	ErrTooManyClauses = errors.New("too many orderby clauses")
)
