package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/remiges-tech/searchquery/filter"
)

// evalExpr evaluates a filter expression against a document. env binds
// lambda range variables to collection elements.
func evalExpr(e filter.Expr, doc map[string]interface{}, env map[string]interface{}) (bool, error) {
	switch n := e.(type) {
	case *filter.Logical:
		for _, op := range n.Operands {
			ok, err := evalExpr(op, doc, env)
			if err != nil {
				return false, err
			}
			if n.Op == filter.OpAnd && !ok {
				return false, nil
			}
			if n.Op == filter.OpOr && ok {
				return true, nil
			}
		}
		return n.Op == filter.OpAnd, nil

	case *filter.Not:
		ok, err := evalExpr(n.Expr, doc, env)
		return !ok, err

	case *filter.Comparison:
		return evalComparison(n, doc, env)

	case *filter.Lambda:
		return evalLambda(n, doc, env)

	case *filter.Call:
		return evalBooleanCall(n, doc, env)
	}
	return false, fmt.Errorf("unsupported expression node %T", e)
}

func evalComparison(c *filter.Comparison, doc map[string]interface{}, env map[string]interface{}) (bool, error) {
	lit, ok := c.Right.(filter.Literal)
	if !ok {
		return false, fmt.Errorf("right side of %s must be a literal", c.String())
	}

	switch left := c.Left.(type) {
	case filter.FieldPath:
		return compareValue(lookupValue(doc, left, env), c.Op, lit)

	case *filter.Call:
		if left.Name != filter.FuncGeoDistance {
			return false, fmt.Errorf("function %s cannot be compared", left.Name)
		}
		path, _ := left.Args[0].(filter.FieldPath)
		geoLit, _ := left.Args[1].(filter.Literal)
		pt, ok := toPoint(lookupValue(doc, path, env))
		if !ok {
			return false, nil
		}
		limit, ok := lit.Numeric()
		if !ok {
			return false, fmt.Errorf("geo.distance must be compared to a number")
		}
		d := pt.DistanceKm(geoLit.Point)
		switch c.Op {
		case filter.OpLt:
			return d < limit, nil
		case filter.OpLe:
			return d <= limit, nil
		case filter.OpGt:
			return d > limit, nil
		case filter.OpGe:
			return d >= limit, nil
		}
		return false, fmt.Errorf("geo.distance supports only lt, le, gt and ge")
	}
	return false, fmt.Errorf("invalid left operand in %s", c.String())
}

// compareValue applies an OData comparison between a document value and a
// literal. Null semantics: "eq null" is true for missing or nil values,
// "ne null" for present ones; ordering against null is always false.
func compareValue(value interface{}, op filter.CompareOp, lit filter.Literal) (bool, error) {
	if lit.IsNull() {
		switch op {
		case filter.OpEq:
			return value == nil, nil
		case filter.OpNe:
			return value != nil, nil
		}
		return false, nil
	}
	if value == nil {
		// Missing values only satisfy "ne literal".
		return op == filter.OpNe, nil
	}

	cmp, err := compareWithLiteral(value, lit)
	if err != nil {
		return false, err
	}
	switch op {
	case filter.OpEq:
		return cmp == 0, nil
	case filter.OpNe:
		return cmp != 0, nil
	case filter.OpGt:
		return cmp > 0, nil
	case filter.OpGe:
		return cmp >= 0, nil
	case filter.OpLt:
		return cmp < 0, nil
	case filter.OpLe:
		return cmp <= 0, nil
	}
	return false, fmt.Errorf("unknown comparison operator %q", op)
}

func compareWithLiteral(value interface{}, lit filter.Literal) (int, error) {
	switch lit.Kind {
	case filter.LitString:
		s, ok := value.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T to string literal", value)
		}
		return strings.Compare(s, lit.Str), nil

	case filter.LitInt, filter.LitFloat:
		f, ok := toFloat(value)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T to numeric literal", value)
		}
		want, _ := lit.Numeric()
		return compareFloats(f, want), nil

	case filter.LitBool:
		b, ok := value.(bool)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T to boolean literal", value)
		}
		// false orders before true.
		switch {
		case b == lit.Bool:
			return 0, nil
		case lit.Bool:
			return -1, nil
		}
		return 1, nil

	case filter.LitDatetime:
		t, ok := toTime(value)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T to datetime literal", value)
		}
		switch {
		case t.Before(lit.Time):
			return -1, nil
		case t.After(lit.Time):
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("literal %s cannot be used in a comparison", lit.String())
}

func evalLambda(l *filter.Lambda, doc map[string]interface{}, env map[string]interface{}) (bool, error) {
	elems := toSlice(lookupValue(doc, l.Path, env))

	if l.Body == nil {
		return len(elems) > 0, nil
	}

	inner := make(map[string]interface{}, len(env)+1)
	for k, v := range env {
		inner[k] = v
	}
	for _, elem := range elems {
		inner[l.Var] = elem
		ok, err := evalExpr(l.Body, doc, inner)
		if err != nil {
			return false, err
		}
		if l.All && !ok {
			return false, nil
		}
		if !l.All && ok {
			return true, nil
		}
	}
	return l.All, nil
}

func evalBooleanCall(c *filter.Call, doc map[string]interface{}, env map[string]interface{}) (bool, error) {
	switch c.Name {
	case filter.FuncSearchIn:
		return evalSearchIn(c, doc, env)

	case filter.FuncStartsWith, filter.FuncEndsWith, filter.FuncContains:
		path, _ := c.Args[0].(filter.FieldPath)
		lit, _ := c.Args[1].(filter.Literal)
		s, ok := lookupValue(doc, path, env).(string)
		if !ok {
			return false, nil
		}
		switch c.Name {
		case filter.FuncStartsWith:
			return strings.HasPrefix(s, lit.Str), nil
		case filter.FuncEndsWith:
			return strings.HasSuffix(s, lit.Str), nil
		default:
			return strings.Contains(s, lit.Str), nil
		}

	case filter.FuncGeoIntersects:
		path, _ := c.Args[0].(filter.FieldPath)
		lit, _ := c.Args[1].(filter.Literal)
		pt, ok := toPoint(lookupValue(doc, path, env))
		if !ok {
			return false, nil
		}
		return lit.Polygon.Contains(pt), nil

	case filter.FuncSearchIsMatch:
		return evalIsMatch(c, doc)
	}
	return false, fmt.Errorf("unknown function %s", c.Name)
}

func evalSearchIn(c *filter.Call, doc map[string]interface{}, env map[string]interface{}) (bool, error) {
	path, _ := c.Args[0].(filter.FieldPath)
	listLit, _ := c.Args[1].(filter.Literal)
	delim := ","
	if len(c.Args) == 3 {
		delimLit, _ := c.Args[2].(filter.Literal)
		delim = delimLit.Str
	}

	allowed := make(map[string]bool)
	for _, v := range strings.Split(listLit.Str, delim) {
		allowed[strings.TrimSpace(v)] = true
	}

	switch v := lookupValue(doc, path, env).(type) {
	case string:
		return allowed[v], nil
	case []string:
		for _, e := range v {
			if allowed[e] {
				return true, nil
			}
		}
	case []interface{}:
		for _, e := range v {
			if s, ok := e.(string); ok && allowed[s] {
				return true, nil
			}
		}
	}
	return false, nil
}

// evalIsMatch runs a full-text probe inside a filter: the document matches
// when any term appears in one of the named fields (or in any string field
// when none are named).
func evalIsMatch(c *filter.Call, doc map[string]interface{}) (bool, error) {
	textLit, _ := c.Args[0].(filter.Literal)
	terms := queryTerms(textLit.Str)
	if len(terms) == 0 {
		return true, nil
	}

	var fields []string
	if len(c.Args) == 2 {
		fieldsLit, _ := c.Args[1].(filter.Literal)
		fields = strings.Split(fieldsLit.Str, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
	}

	matched, _ := scoreDocument(doc, terms, fields, 0)
	return matched, nil
}

// lookupValue resolves a field path against a document, checking lambda
// range variables first. Missing segments yield nil.
func lookupValue(doc map[string]interface{}, path filter.FieldPath, env map[string]interface{}) interface{} {
	var current interface{} = doc
	rest := path
	if env != nil {
		if bound, ok := env[path.Root()]; ok {
			current = bound
			rest = path[1:]
		}
	}
	for _, seg := range rest {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[seg]
	}
	return current
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

func toSlice(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return nil
}

// toPoint accepts the supported geo point document shapes: a filter.Point,
// a {"lat": ..., "lon": ...} map, or a GeoJSON-style
// {"type": "Point", "coordinates": [lon, lat]} map.
func toPoint(v interface{}) (filter.Point, bool) {
	switch t := v.(type) {
	case filter.Point:
		return t, true
	case map[string]interface{}:
		if lat, okLat := toFloat(t["lat"]); okLat {
			if lon, okLon := toFloat(t["lon"]); okLon {
				return filter.Point{Lat: lat, Lon: lon}, true
			}
		}
		if coords, ok := t["coordinates"].([]interface{}); ok && len(coords) == 2 {
			lon, okLon := toFloat(coords[0])
			lat, okLat := toFloat(coords[1])
			if okLon && okLat {
				return filter.Point{Lat: lat, Lon: lon}, true
			}
		}
	}
	return filter.Point{}, false
}

// compareValues orders two values of the same kind for sorting.
func compareValues(a, b interface{}) int {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return compareFloats(fa, fb)
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb)
		}
	}
	if ta, ok := toTime(a); ok {
		if tb, ok := toTime(b); ok {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			}
			return 0
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case !ba && bb:
				return -1
			case ba && !bb:
				return 1
			}
		}
	}
	return 0
}
