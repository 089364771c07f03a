package filter

import (
	"fmt"
	"strings"
	"time"
)

// The builder functions compose filter trees without hand-concatenating
// OData text. Field names are split on '/' into paths, and Go values are
// converted to literals:
//
//	expr := filter.And(
//		filter.Eq("category", "luxury"),
//		filter.Ge("rating", 4),
//		filter.Lt(filter.GeoDistance("location", filter.Point{Lat: 48.85, Lon: 2.35}), 10),
//	)
//
// Invalid field names or unsupported value types surface when the
// expression is validated or rendered; builders themselves never fail, so
// they chain freely.

// Eq builds "field eq value".
func Eq(field string, value interface{}) Expr { return compare(field, OpEq, value) }

// Ne builds "field ne value".
func Ne(field string, value interface{}) Expr { return compare(field, OpNe, value) }

// Gt builds "field gt value".
func Gt(field string, value interface{}) Expr { return compare(field, OpGt, value) }

// Ge builds "field ge value".
func Ge(field string, value interface{}) Expr { return compare(field, OpGe, value) }

// Lt builds "field lt value".
func Lt(field string, value interface{}) Expr { return compare(field, OpLt, value) }

// Le builds "field le value".
func Le(field string, value interface{}) Expr { return compare(field, OpLe, value) }

func compare(field string, op CompareOp, value interface{}) Expr {
	return &Comparison{Left: fieldOperand(field), Op: op, Right: ToLiteral(value)}
}

// IsNull builds "field eq null".
func IsNull(field string) Expr { return Eq(field, nil) }

// NotNull builds "field ne null".
func NotNull(field string) Expr { return Ne(field, nil) }

// And joins expressions with "and". A single expression passes through
// unchanged and nested And chains are flattened.
func And(exprs ...Expr) Expr { return logical(OpAnd, exprs) }

// Or joins expressions with "or", flattening nested Or chains.
func Or(exprs ...Expr) Expr { return logical(OpOr, exprs) }

func logical(op LogicalOp, exprs []Expr) Expr {
	flat := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if l, ok := e.(*Logical); ok && l.Op == op {
			flat = append(flat, l.Operands...)
			continue
		}
		flat = append(flat, e)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &Logical{Op: op, Operands: flat}
}

// Negate builds "not expr", unwrapping a double negation.
func Negate(expr Expr) Expr {
	if n, ok := expr.(*Not); ok {
		return n.Expr
	}
	return &Not{Expr: expr}
}

// In builds "search.in(field, 'a,b,c')". When any value contains a comma
// the pipe delimiter is used instead, with the delimiter passed as the
// third argument.
func In(field string, values ...string) Expr {
	delim := ","
	for _, v := range values {
		if strings.Contains(v, ",") {
			delim = "|"
			break
		}
	}
	args := []Operand{fieldOperand(field), Literal{Kind: LitString, Str: strings.Join(values, delim)}}
	if delim != "," {
		args = append(args, Literal{Kind: LitString, Str: delim})
	}
	return &Call{Name: FuncSearchIn, Args: args}
}

// IsMatch builds "search.ismatch('text', 'field1,field2')", a full-text
// probe inside a filter. With no fields, all searchable fields are used.
func IsMatch(text string, fields ...string) Expr {
	args := []Operand{Literal{Kind: LitString, Str: text}}
	if len(fields) > 0 {
		args = append(args, Literal{Kind: LitString, Str: strings.Join(fields, ",")})
	}
	return &Call{Name: FuncSearchIsMatch, Args: args}
}

// StartsWith builds "startswith(field, 'prefix')".
func StartsWith(field, prefix string) Expr {
	return stringFunc(FuncStartsWith, field, prefix)
}

// EndsWith builds "endswith(field, 'suffix')".
func EndsWith(field, suffix string) Expr {
	return stringFunc(FuncEndsWith, field, suffix)
}

// Contains builds "contains(field, 'substring')".
func Contains(field, substring string) Expr {
	return stringFunc(FuncContains, field, substring)
}

func stringFunc(name, field, value string) Expr {
	return &Call{
		Name: name,
		Args: []Operand{fieldOperand(field), Literal{Kind: LitString, Str: value}},
	}
}

// GeoDistance builds the operand "geo.distance(field, geography'POINT(...)')"
// for use with Lt, Le, Gt or Ge:
//
//	filter.Lt(filter.GeoDistance("location", office), 5)
func GeoDistance(field string, point Point) Operand {
	return &Call{
		Name: FuncGeoDistance,
		Args: []Operand{fieldOperand(field), Literal{Kind: LitGeoPoint, Point: point}},
	}
}

// GeoIntersects builds "geo.intersects(field, geography'POLYGON(...)')".
func GeoIntersects(field string, polygon Polygon) Expr {
	return &Call{
		Name: FuncGeoIntersects,
		Args: []Operand{fieldOperand(field), Literal{Kind: LitGeoPolygon, Polygon: polygon}},
	}
}

// Any builds "path/any(v: body)". The body is built against the range
// variable, e.g. Any("rooms", "r", Lt("r/baseRate", 200)).
func Any(path, rangeVar string, body Expr) Expr {
	return &Lambda{Path: splitPath(path), Var: rangeVar, Body: body}
}

// AnyExists builds the bare existence test "path/any()".
func AnyExists(path string) Expr {
	return &Lambda{Path: splitPath(path)}
}

// All builds "path/all(v: body)".
func All(path, rangeVar string, body Expr) Expr {
	return &Lambda{Path: splitPath(path), All: true, Var: rangeVar, Body: body}
}

// LtOp builds "left lt value" for an arbitrary left operand, typically
// GeoDistance.
func LtOp(left Operand, value interface{}) Expr {
	return &Comparison{Left: left, Op: OpLt, Right: ToLiteral(value)}
}

// LeOp builds "left le value".
func LeOp(left Operand, value interface{}) Expr {
	return &Comparison{Left: left, Op: OpLe, Right: ToLiteral(value)}
}

// GtOp builds "left gt value".
func GtOp(left Operand, value interface{}) Expr {
	return &Comparison{Left: left, Op: OpGt, Right: ToLiteral(value)}
}

// GeOp builds "left ge value".
func GeOp(left Operand, value interface{}) Expr {
	return &Comparison{Left: left, Op: OpGe, Right: ToLiteral(value)}
}

// ToLiteral converts a Go value to a filter literal. Supported types are
// strings, booleans, signed and unsigned integers, floats, time.Time,
// Point, Polygon, and nil. Any other type is formatted with fmt and
// becomes a string literal.
func ToLiteral(value interface{}) Literal {
	switch v := value.(type) {
	case nil:
		return Literal{Kind: LitNull}
	case string:
		return Literal{Kind: LitString, Str: v}
	case bool:
		return Literal{Kind: LitBool, Bool: v}
	case int:
		return Literal{Kind: LitInt, Int: int64(v)}
	case int32:
		return Literal{Kind: LitInt, Int: int64(v)}
	case int64:
		return Literal{Kind: LitInt, Int: v}
	case uint:
		return Literal{Kind: LitInt, Int: int64(v)}
	case uint32:
		return Literal{Kind: LitInt, Int: int64(v)}
	case float32:
		return Literal{Kind: LitFloat, Float: float64(v)}
	case float64:
		return Literal{Kind: LitFloat, Float: v}
	case time.Time:
		return Literal{Kind: LitDatetime, Time: v}
	case Point:
		return Literal{Kind: LitGeoPoint, Point: v}
	case Polygon:
		return Literal{Kind: LitGeoPolygon, Polygon: v}
	case Literal:
		return v
	default:
		return Literal{Kind: LitString, Str: fmt.Sprintf("%v", v)}
	}
}

func fieldOperand(field string) FieldPath { return splitPath(field) }

func splitPath(field string) FieldPath {
	return FieldPath(strings.Split(field, "/"))
}
