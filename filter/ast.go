// Package filter implements the OData filter dialect used by search queries:
// a lexer, a recursive-descent parser, a typed expression tree, a fluent
// builder, schema-aware validation, and structural analysis.
//
// The dialect covers the subset of OData that search services accept in
// $filter: comparison operators (eq, ne, gt, ge, lt, le), the logical
// operators and/or/not, parenthesised groups, collection lambdas
// (tags/any(t: t eq 'wifi')), and the functions geo.distance,
// geo.intersects, search.in, search.ismatch, startswith, endswith and
// contains. Sort ($orderby) and facet expressions share the same lexer.
//
// Expressions can be built two ways: parsed from text with Parse, or
// composed with the builder functions (Eq, And, GeoDistance, ...). Both
// produce the same tree, and every tree renders back to canonical filter
// text through String, so Parse(expr.String()) always succeeds.
package filter

import (
	"strconv"
	"strings"
	"time"
)

// Expr is a boolean filter expression node.
type Expr interface {
	// String renders the expression as canonical OData filter text.
	String() string

	// prec returns the binding strength used to decide parenthesisation.
	prec() int
}

// Operand is a value-producing node: a field path, a literal, or a
// value-returning function call such as geo.distance.
type Operand interface {
	String() string
	operand()
}

// Operator precedence, loosest first.
const (
	precOr = iota + 1
	precAnd
	precNot
	precAtom
)

// CompareOp is a comparison operator keyword.
type CompareOp string

// Comparison operators.
const (
	OpEq CompareOp = "eq"
	OpNe CompareOp = "ne"
	OpGt CompareOp = "gt"
	OpGe CompareOp = "ge"
	OpLt CompareOp = "lt"
	OpLe CompareOp = "le"
)

// LogicalOp is a logical connective.
type LogicalOp string

// Logical connectives.
const (
	OpAnd LogicalOp = "and"
	OpOr  LogicalOp = "or"
)

// Comparison is a binary comparison such as "rating ge 4" or
// "geo.distance(location, geography'POINT(2.35 48.85)') lt 10".
type Comparison struct {
	Left  Operand
	Op    CompareOp
	Right Operand
}

func (c *Comparison) String() string {
	return c.Left.String() + " " + string(c.Op) + " " + c.Right.String()
}

func (c *Comparison) prec() int { return precAtom }

// Logical is an n-ary chain of the same connective. The parser flattens
// "a and b and c" into a single node with three operands.
type Logical struct {
	Op       LogicalOp
	Operands []Expr
}

func (l *Logical) String() string {
	parts := make([]string, len(l.Operands))
	for i, op := range l.Operands {
		parts[i] = renderChild(op, l.prec())
	}
	return strings.Join(parts, " "+string(l.Op)+" ")
}

func (l *Logical) prec() int {
	if l.Op == OpAnd {
		return precAnd
	}
	return precOr
}

// Not negates an expression.
type Not struct {
	Expr Expr
}

func (n *Not) String() string {
	return "not " + renderChild(n.Expr, precNot)
}

func (n *Not) prec() int { return precNot }

// renderChild parenthesises children that bind looser than their parent.
func renderChild(e Expr, parentPrec int) string {
	if e.prec() < parentPrec {
		return "(" + e.String() + ")"
	}
	return e.String()
}

// Lambda is a collection filter: path/any(v: body), path/all(v: body), or
// the bare existence test path/any(). Body is nil for the bare form.
type Lambda struct {
	Path FieldPath
	All  bool
	Var  string
	Body Expr
}

func (l *Lambda) String() string {
	op := "any"
	if l.All {
		op = "all"
	}
	if l.Body == nil {
		return l.Path.String() + "/" + op + "()"
	}
	return l.Path.String() + "/" + op + "(" + l.Var + ": " + l.Body.String() + ")"
}

func (l *Lambda) prec() int { return precAtom }

// Call is a function invocation. Boolean functions (search.in, startswith,
// ...) appear as expressions; value functions (geo.distance, search.score)
// appear as comparison operands.
type Call struct {
	Name string
	Args []Operand
}

func (c *Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return c.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (c *Call) prec() int { return precAtom }
func (c *Call) operand()  {}

// FieldPath is a field reference, possibly into a sub-object ("address/city")
// or a lambda range variable ("t" inside tags/any(t: ...)).
type FieldPath []string

func (f FieldPath) String() string { return strings.Join(f, "/") }
func (f FieldPath) operand()       {}

// Root returns the first path segment.
func (f FieldPath) Root() string {
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// LiteralKind discriminates literal values.
type LiteralKind int

// Literal kinds.
const (
	LitString LiteralKind = iota
	LitInt
	LitFloat
	LitBool
	LitNull
	LitDatetime
	LitGeoPoint
	LitGeoPolygon
)

// Literal is a constant value in a filter expression.
type Literal struct {
	Kind    LiteralKind
	Str     string
	Int     int64
	Float   float64
	Bool    bool
	Time    time.Time
	Point   Point
	Polygon Polygon
}

func (l Literal) String() string {
	switch l.Kind {
	case LitString:
		return "'" + strings.ReplaceAll(l.Str, "'", "''") + "'"
	case LitInt:
		return strconv.FormatInt(l.Int, 10)
	case LitFloat:
		return strconv.FormatFloat(l.Float, 'g', -1, 64)
	case LitBool:
		return strconv.FormatBool(l.Bool)
	case LitNull:
		return "null"
	case LitDatetime:
		return l.Time.UTC().Format(time.RFC3339)
	case LitGeoPoint:
		return "geography'" + l.Point.WKT() + "'"
	case LitGeoPolygon:
		return "geography'" + l.Polygon.WKT() + "'"
	}
	return ""
}

func (l Literal) operand() {}

// IsNull reports whether the literal is the null constant.
func (l Literal) IsNull() bool { return l.Kind == LitNull }

// Numeric reports whether the literal is an int or float, and returns its
// value as a float64.
func (l Literal) Numeric() (float64, bool) {
	switch l.Kind {
	case LitInt:
		return float64(l.Int), true
	case LitFloat:
		return l.Float, true
	}
	return 0, false
}
