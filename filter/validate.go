package filter

import (
	"fmt"
	"strings"
)

// Validate checks an expression against an index schema: every referenced
// field must exist, be marked Filterable, and be compared against a
// compatible literal type; lambdas must target collections; geo functions
// must target geo point fields.
func Validate(expr Expr, schema *Schema) error {
	v := &validator{schema: schema, vars: map[string]Field{}}
	return v.expr(expr)
}

type validator struct {
	schema *Schema

	// vars maps lambda range variables to the element field they iterate.
	vars map[string]Field
}

func (v *validator) expr(e Expr) error {
	switch n := e.(type) {
	case *Logical:
		for _, op := range n.Operands {
			if err := v.expr(op); err != nil {
				return err
			}
		}
		return nil

	case *Not:
		return v.expr(n.Expr)

	case *Comparison:
		return v.comparison(n)

	case *Lambda:
		return v.lambda(n)

	case *Call:
		return v.booleanCall(n)
	}
	return fmt.Errorf("unsupported expression node %T", e)
}

func (v *validator) comparison(c *Comparison) error {
	lit, ok := c.Right.(Literal)
	if !ok {
		return fmt.Errorf("right side of %s must be a literal", c.String())
	}

	switch left := c.Left.(type) {
	case FieldPath:
		f, err := v.resolveFilterable(left)
		if err != nil {
			return err
		}
		if err := v.checkNoCollectionCrossing(left); err != nil {
			return err
		}
		return v.checkComparable(f, left, lit)

	case *Call:
		switch left.Name {
		case FuncGeoDistance:
			if err := v.geoArgs(left, LitGeoPoint); err != nil {
				return err
			}
			if _, ok := lit.Numeric(); !ok {
				return fmt.Errorf("%w: geo.distance must be compared to a number, got %s",
					ErrTypeMismatch, lit.String())
			}
			if c.Op == OpEq || c.Op == OpNe {
				return fmt.Errorf("geo.distance supports only lt, le, gt and ge comparisons")
			}
			return nil
		case FuncSearchScore:
			return fmt.Errorf("search.score can only be used in orderby")
		}
		return fmt.Errorf("function %s cannot be used as a comparison operand", left.Name)
	}
	return fmt.Errorf("invalid left operand in %s", c.String())
}

func (v *validator) lambda(l *Lambda) error {
	f, err := v.resolveFilterable(l.Path)
	if err != nil {
		return err
	}
	if !f.Type.IsCollection() {
		return fmt.Errorf("%w: %s is %s, any/all requires a collection",
			ErrTypeMismatch, l.Path.String(), f.Type)
	}
	if l.Body == nil {
		return nil
	}

	// Bind the range variable to the collection element for the body.
	elem := Field{Name: l.Var, Type: TypeString, Filterable: true}
	if f.Type == TypeComplexCollection {
		elem.Type = TypeComplex
		elem.Fields = f.Fields
	}
	if prev, shadowed := v.vars[l.Var]; shadowed {
		defer func() { v.vars[l.Var] = prev }()
	} else {
		defer delete(v.vars, l.Var)
	}
	v.vars[l.Var] = elem

	return v.expr(l.Body)
}

func (v *validator) booleanCall(c *Call) error {
	switch c.Name {
	case FuncSearchIn:
		path, ok := c.Args[0].(FieldPath)
		if !ok {
			return fmt.Errorf("%s: first argument must be a field", c.Name)
		}
		f, err := v.resolveFilterable(path)
		if err != nil {
			return err
		}
		if f.Type != TypeString && f.Type != TypeStringCollection {
			return fmt.Errorf("%w: search.in requires a string field, %s is %s",
				ErrTypeMismatch, c.Args[0].String(), f.Type)
		}
		return v.stringArgs(c, 1)

	case FuncStartsWith, FuncEndsWith, FuncContains:
		path, ok := c.Args[0].(FieldPath)
		if !ok {
			return fmt.Errorf("%s: first argument must be a field", c.Name)
		}
		f, err := v.resolveFilterable(path)
		if err != nil {
			return err
		}
		if f.Type != TypeString {
			return fmt.Errorf("%w: %s requires a string field, %s is %s",
				ErrTypeMismatch, c.Name, c.Args[0].String(), f.Type)
		}
		return v.stringArgs(c, 1)

	case FuncGeoIntersects:
		return v.geoArgs(c, LitGeoPolygon)

	case FuncSearchIsMatch:
		return v.stringArgs(c, 0)
	}
	return fmt.Errorf("unknown function %s", c.Name)
}

// geoArgs validates (field, geometry) argument pairs for geo functions.
func (v *validator) geoArgs(c *Call, wantGeom LiteralKind) error {
	path, ok := c.Args[0].(FieldPath)
	if !ok {
		return fmt.Errorf("%s: first argument must be a field", c.Name)
	}
	f, err := v.resolveFilterable(path)
	if err != nil {
		return err
	}
	if f.Type != TypeGeoPoint {
		return fmt.Errorf("%w: %s requires a geo point field, %s is %s",
			ErrTypeMismatch, c.Name, path.String(), f.Type)
	}
	lit, ok := c.Args[1].(Literal)
	if !ok || lit.Kind != wantGeom {
		return fmt.Errorf("%s: second argument must be a geography literal", c.Name)
	}
	return nil
}

func (v *validator) stringArgs(c *Call, from int) error {
	for _, a := range c.Args[from:] {
		lit, ok := a.(Literal)
		if !ok || lit.Kind != LitString {
			return fmt.Errorf("%s: argument %s must be a string literal", c.Name, a.String())
		}
	}
	return nil
}

// resolveFilterable resolves a field path, honouring lambda range variables,
// and checks the Filterable attribute.
func (v *validator) resolveFilterable(path FieldPath) (Field, error) {
	if err := CheckFieldPath(path); err != nil {
		return Field{}, err
	}

	if bound, ok := v.vars[path.Root()]; ok {
		if len(path) == 1 {
			return bound, nil
		}
		f, ok := resolveIn(bound.Fields, path[1:])
		if !ok {
			return Field{}, fmt.Errorf("%w: %s", ErrUnknownField, path.String())
		}
		if !f.Filterable {
			return Field{}, fmt.Errorf("%w: %s", ErrNotFilterable, path.String())
		}
		return f, nil
	}

	f, ok := v.schema.Resolve(path)
	if !ok {
		return Field{}, fmt.Errorf("%w: %s", ErrUnknownField, path.String())
	}
	if !f.Filterable {
		return Field{}, fmt.Errorf("%w: %s", ErrNotFilterable, path.String())
	}
	return f, nil
}

// checkNoCollectionCrossing rejects paths that step through a complex
// collection without a lambda, such as "rooms/baseRate" outside any()/all().
func (v *validator) checkNoCollectionCrossing(path FieldPath) error {
	fields := v.schema.Fields
	if bound, ok := v.vars[path.Root()]; ok {
		fields = bound.Fields
		path = path[1:]
	}
	for i, seg := range path {
		f, ok := lookupField(fields, seg)
		if !ok {
			return nil // existence already checked by the caller
		}
		if i < len(path)-1 && f.Type == TypeComplexCollection {
			return fmt.Errorf("%w: %s is a collection, use any() or all()",
				ErrTypeMismatch, seg)
		}
		fields = f.Fields
	}
	return nil
}

func resolveIn(fields []Field, path FieldPath) (Field, bool) {
	var f Field
	for i, seg := range path {
		var ok bool
		f, ok = lookupField(fields, seg)
		if !ok {
			return Field{}, false
		}
		if i < len(path)-1 {
			fields = f.Fields
		}
	}
	return f, true
}

// checkComparable verifies that a literal can be compared to a field.
func (v *validator) checkComparable(f Field, path FieldPath, lit Literal) error {
	if f.Type.IsCollection() {
		return fmt.Errorf("%w: %s is a collection, use any() or all()",
			ErrTypeMismatch, path.String())
	}
	if lit.IsNull() {
		return nil
	}

	ok := false
	switch f.Type {
	case TypeString:
		ok = lit.Kind == LitString
	case TypeInt, TypeFloat:
		_, ok = lit.Numeric()
	case TypeBool:
		ok = lit.Kind == LitBool
	case TypeDatetime:
		ok = lit.Kind == LitDatetime
	case TypeComplex:
		// A bare complex field can only be compared to null, handled above.
		ok = false
	case TypeGeoPoint:
		ok = false
	}
	if !ok {
		return fmt.Errorf("%w: cannot compare %s (%s) to %s",
			ErrTypeMismatch, path.String(), f.Type, lit.String())
	}
	return nil
}

// CheckFieldPath verifies that every path segment is a legal field name.
func CheckFieldPath(path FieldPath) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidFieldName)
	}
	for _, seg := range path {
		if !validFieldName(seg) {
			return fmt.Errorf("%w: %q", ErrInvalidFieldName, seg)
		}
	}
	return nil
}

func validFieldName(s string) bool {
	if s == "" || strings.Contains(s, ".") {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isIdentStart(c) || i > 0 && c >= '0' && c <= '9' {
			continue
		}
		return false
	}
	return !reservedWords[s]
}
