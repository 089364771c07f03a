package filter

import (
	"fmt"
	"strings"
)

// MaxOrderByClauses is the service ceiling on orderby clauses.
const MaxOrderByClauses = 32

// SortKind discriminates orderby clause forms.
type SortKind int

// Sort clause kinds.
const (
	// SortField orders by a field value.
	SortField SortKind = iota

	// SortScore orders by relevance score, written search.score().
	SortScore

	// SortGeoDistance orders by distance from a reference point, written
	// geo.distance(field, geography'POINT(...)').
	SortGeoDistance
)

// SortClause is one clause of an orderby list.
type SortClause struct {
	Kind  SortKind
	Field FieldPath
	Point Point
	Desc  bool
}

func (c SortClause) String() string {
	var s string
	switch c.Kind {
	case SortScore:
		s = FuncSearchScore + "()"
	case SortGeoDistance:
		s = fmt.Sprintf("%s(%s, geography'%s')", FuncGeoDistance, c.Field.String(), c.Point.WKT())
	default:
		s = c.Field.String()
	}
	if c.Desc {
		return s + " desc"
	}
	return s + " asc"
}

// FormatOrderBy renders clauses as orderby text.
func FormatOrderBy(clauses []SortClause) string {
	parts := make([]string, len(clauses))
	for i, c := range clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// ParseOrderBy parses an orderby list such as
// "rating desc, geo.distance(location, geography'POINT(2.35 48.85)') asc".
// Direction defaults to ascending. At most MaxOrderByClauses clauses are
// accepted.
func ParseOrderBy(input string) ([]SortClause, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks}
	var clauses []SortClause
	for {
		clause, err := parseSortClause(p)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)

		t := p.peek()
		if t.kind == tokEOF {
			break
		}
		if t.kind != tokComma {
			return nil, syntaxErr(t.pos, "expected ',' between orderby clauses, got %s", t.kind)
		}
		p.next()
	}

	if len(clauses) > MaxOrderByClauses {
		return nil, fmt.Errorf("%w: %d exceeds the maximum of %d",
			ErrTooManyClauses, len(clauses), MaxOrderByClauses)
	}
	return clauses, nil
}

func parseSortClause(p *parser) (SortClause, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return SortClause{}, syntaxErr(t.pos, "expected a field or function, got %s", t.kind)
	}

	var clause SortClause
	switch t.text {
	case FuncSearchScore:
		if _, _, err := p.parseCall(); err != nil {
			return SortClause{}, err
		}
		clause.Kind = SortScore

	case FuncGeoDistance:
		op, _, err := p.parseCall()
		if err != nil {
			return SortClause{}, err
		}
		call := op.(*Call)
		path, ok := call.Args[0].(FieldPath)
		if !ok {
			return SortClause{}, syntaxErr(t.pos, "geo.distance: first argument must be a field")
		}
		lit, ok := call.Args[1].(Literal)
		if !ok || lit.Kind != LitGeoPoint {
			return SortClause{}, syntaxErr(t.pos, "geo.distance: second argument must be a geography point")
		}
		clause.Kind = SortGeoDistance
		clause.Field = path
		clause.Point = lit.Point

	default:
		op, lambda, err := p.parsePathOrLambda()
		if err != nil {
			return SortClause{}, err
		}
		if lambda != nil {
			return SortClause{}, syntaxErr(t.pos, "lambda expressions are not allowed in orderby")
		}
		clause.Kind = SortField
		clause.Field = op.(FieldPath)
	}

	// Optional direction keyword.
	switch {
	case p.acceptWord("desc"):
		clause.Desc = true
	case p.acceptWord("asc"):
	}
	return clause, nil
}

// ValidateOrderBy checks sort clauses against a schema: sorted fields must
// exist and be marked Sortable; geo.distance must target a geo point field.
func ValidateOrderBy(clauses []SortClause, schema *Schema) error {
	for _, c := range clauses {
		switch c.Kind {
		case SortScore:
			continue
		case SortGeoDistance:
			f, ok := schema.Resolve(c.Field)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownField, c.Field.String())
			}
			if f.Type != TypeGeoPoint {
				return fmt.Errorf("%w: geo.distance requires a geo point field, %s is %s",
					ErrTypeMismatch, c.Field.String(), f.Type)
			}
			if !f.Sortable {
				return fmt.Errorf("%w: %s", ErrNotSortable, c.Field.String())
			}
		default:
			f, ok := schema.Resolve(c.Field)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownField, c.Field.String())
			}
			if !f.Sortable {
				return fmt.Errorf("%w: %s", ErrNotSortable, c.Field.String())
			}
			if f.Type.IsCollection() || f.Type == TypeComplex {
				return fmt.Errorf("%w: cannot sort by %s field %s",
					ErrTypeMismatch, f.Type, c.Field.String())
			}
		}
	}
	return nil
}
