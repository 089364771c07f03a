package elasticsearch

import (
	"fmt"
	"strings"
	"time"

	"github.com/remiges-tech/searchquery/filter"
)

// compiler translates filter expressions into the Elasticsearch query DSL.
// The schema decides which fields are text (term-level operations then
// target the .keyword subfield) and which collections are nested.
type compiler struct {
	schema *filter.Schema

	// vars maps lambda range variables to their collection's dotted path.
	vars map[string]lambdaBinding
}

type lambdaBinding struct {
	path   string
	nested bool
}

func newCompiler(schema *filter.Schema) *compiler {
	return &compiler{schema: schema, vars: map[string]lambdaBinding{}}
}

// compile produces a query clause suitable for a bool filter context.
func (c *compiler) compile(e filter.Expr) (map[string]interface{}, error) {
	switch n := e.(type) {
	case *filter.Logical:
		clauses := make([]interface{}, 0, len(n.Operands))
		for _, op := range n.Operands {
			q, err := c.compile(op)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, q)
		}
		if n.Op == filter.OpAnd {
			return map[string]interface{}{
				"bool": map[string]interface{}{"filter": clauses},
			}, nil
		}
		return map[string]interface{}{
			"bool": map[string]interface{}{
				"should":               clauses,
				"minimum_should_match": 1,
			},
		}, nil

	case *filter.Not:
		inner, err := c.compile(n.Expr)
		if err != nil {
			return nil, err
		}
		return mustNot(inner), nil

	case *filter.Comparison:
		return c.comparison(n)

	case *filter.Lambda:
		return c.lambda(n)

	case *filter.Call:
		return c.booleanCall(n)
	}
	return nil, fmt.Errorf("unsupported expression node %T", e)
}

func (c *compiler) comparison(cmp *filter.Comparison) (map[string]interface{}, error) {
	lit, ok := cmp.Right.(filter.Literal)
	if !ok {
		return nil, fmt.Errorf("right side of %s must be a literal", cmp.String())
	}

	if call, ok := cmp.Left.(*filter.Call); ok {
		if call.Name != filter.FuncGeoDistance {
			return nil, fmt.Errorf("function %s cannot be compared", call.Name)
		}
		return c.geoDistance(call, cmp.Op, lit)
	}

	path, ok := cmp.Left.(filter.FieldPath)
	if !ok {
		return nil, fmt.Errorf("invalid left operand in %s", cmp.String())
	}
	name := c.fieldName(path)

	if lit.IsNull() {
		exists := map[string]interface{}{
			"exists": map[string]interface{}{"field": name},
		}
		switch cmp.Op {
		case filter.OpEq:
			return mustNot(exists), nil
		case filter.OpNe:
			return exists, nil
		}
		return nil, fmt.Errorf("null supports only eq and ne comparisons")
	}

	value := literalValue(lit)
	switch cmp.Op {
	case filter.OpEq:
		return term(c.termField(path), value), nil
	case filter.OpNe:
		return mustNot(term(c.termField(path), value)), nil
	case filter.OpGt, filter.OpGe, filter.OpLt, filter.OpLe:
		bound := map[filter.CompareOp]string{
			filter.OpGt: "gt", filter.OpGe: "gte", filter.OpLt: "lt", filter.OpLe: "lte",
		}[cmp.Op]
		return map[string]interface{}{
			"range": map[string]interface{}{
				name: map[string]interface{}{bound: value},
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown comparison operator %q", cmp.Op)
}

func (c *compiler) geoDistance(call *filter.Call, op filter.CompareOp, lit filter.Literal) (map[string]interface{}, error) {
	path, _ := call.Args[0].(filter.FieldPath)
	geoLit, _ := call.Args[1].(filter.Literal)
	km, ok := lit.Numeric()
	if !ok {
		return nil, fmt.Errorf("geo.distance must be compared to a number")
	}

	within := map[string]interface{}{
		"geo_distance": map[string]interface{}{
			"distance": fmt.Sprintf("%gkm", km),
			c.fieldName(path): map[string]interface{}{
				"lat": geoLit.Point.Lat,
				"lon": geoLit.Point.Lon,
			},
		},
	}
	switch op {
	case filter.OpLt, filter.OpLe:
		return within, nil
	case filter.OpGt, filter.OpGe:
		return mustNot(within), nil
	}
	return nil, fmt.Errorf("geo.distance supports only lt, le, gt and ge")
}

func (c *compiler) lambda(l *filter.Lambda) (map[string]interface{}, error) {
	name := c.fieldName(l.Path)
	nested := c.isNested(l.Path)

	if l.Body == nil {
		// Bare any(): the field has at least one element.
		exists := map[string]interface{}{
			"exists": map[string]interface{}{"field": name},
		}
		if nested {
			return nestedQuery(name, exists), nil
		}
		return exists, nil
	}

	prev, shadowed := c.vars[l.Var]
	c.vars[l.Var] = lambdaBinding{path: name, nested: nested}
	body, err := c.compile(l.Body)
	if shadowed {
		c.vars[l.Var] = prev
	} else {
		delete(c.vars, l.Var)
	}
	if err != nil {
		return nil, err
	}

	if nested {
		// all(x: P) rewrites to "no nested element violates P".
		if l.All {
			return mustNot(nestedQuery(name, mustNot(body))), nil
		}
		return nestedQuery(name, body), nil
	}

	// Flattened arrays cannot express per-element negation.
	if l.All {
		return nil, fmt.Errorf("all() on %s requires a nested mapping; only complex collections support all()", l.Path.String())
	}
	return body, nil
}

func (c *compiler) booleanCall(call *filter.Call) (map[string]interface{}, error) {
	switch call.Name {
	case filter.FuncSearchIn:
		path, _ := call.Args[0].(filter.FieldPath)
		listLit, _ := call.Args[1].(filter.Literal)
		delim := ","
		if len(call.Args) == 3 {
			delimLit, _ := call.Args[2].(filter.Literal)
			delim = delimLit.Str
		}
		values := strings.Split(listLit.Str, delim)
		trimmed := make([]interface{}, len(values))
		for i, v := range values {
			trimmed[i] = strings.TrimSpace(v)
		}
		return map[string]interface{}{
			"terms": map[string]interface{}{c.termField(path): trimmed},
		}, nil

	case filter.FuncStartsWith:
		path, _ := call.Args[0].(filter.FieldPath)
		lit, _ := call.Args[1].(filter.Literal)
		return map[string]interface{}{
			"prefix": map[string]interface{}{c.termField(path): lit.Str},
		}, nil

	case filter.FuncEndsWith:
		path, _ := call.Args[0].(filter.FieldPath)
		lit, _ := call.Args[1].(filter.Literal)
		return wildcard(c.termField(path), "*"+escapeWildcard(lit.Str)), nil

	case filter.FuncContains:
		path, _ := call.Args[0].(filter.FieldPath)
		lit, _ := call.Args[1].(filter.Literal)
		return wildcard(c.termField(path), "*"+escapeWildcard(lit.Str)+"*"), nil

	case filter.FuncGeoIntersects:
		path, _ := call.Args[0].(filter.FieldPath)
		lit, _ := call.Args[1].(filter.Literal)
		points := make([]interface{}, len(lit.Polygon))
		for i, p := range lit.Polygon {
			points[i] = map[string]interface{}{"lat": p.Lat, "lon": p.Lon}
		}
		return map[string]interface{}{
			"geo_polygon": map[string]interface{}{
				c.fieldName(path): map[string]interface{}{"points": points},
			},
		}, nil

	case filter.FuncSearchIsMatch:
		textLit, _ := call.Args[0].(filter.Literal)
		match := map[string]interface{}{"query": textLit.Str}
		if len(call.Args) == 2 {
			fieldsLit, _ := call.Args[1].(filter.Literal)
			fields := strings.Split(fieldsLit.Str, ",")
			for i := range fields {
				fields[i] = strings.TrimSpace(fields[i])
			}
			match["fields"] = fields
		}
		return map[string]interface{}{"multi_match": match}, nil
	}
	return nil, fmt.Errorf("unknown function %s", call.Name)
}

// fieldName maps a field path to its dotted Elasticsearch name, resolving
// lambda range variables to their collection path.
func (c *compiler) fieldName(path filter.FieldPath) string {
	if bound, ok := c.vars[path.Root()]; ok {
		if len(path) == 1 {
			return bound.path
		}
		return bound.path + "." + strings.Join(path[1:], ".")
	}
	return strings.Join(path, ".")
}

// termField returns the field name to use for term-level operations,
// appending .keyword for searchable string fields mapped as text.
func (c *compiler) termField(path filter.FieldPath) string {
	name := c.fieldName(path)
	if c.schema == nil {
		return name
	}
	f, ok := c.resolve(path)
	if !ok {
		return name
	}
	if (f.Type == filter.TypeString || f.Type == filter.TypeStringCollection) && f.Searchable {
		return name + ".keyword"
	}
	return name
}

// isNested reports whether the path names a complex collection.
func (c *compiler) isNested(path filter.FieldPath) bool {
	if c.schema == nil {
		return false
	}
	f, ok := c.resolve(path)
	return ok && f.Type == filter.TypeComplexCollection
}

// resolve follows a path through the schema, starting from a lambda
// binding's collection when the root is a range variable.
func (c *compiler) resolve(path filter.FieldPath) (filter.Field, bool) {
	if bound, ok := c.vars[path.Root()]; ok {
		collection, found := c.schema.Resolve(filter.FieldPath(strings.Split(bound.path, ".")))
		if !found {
			return filter.Field{}, false
		}
		if len(path) == 1 {
			// The bare range variable stands for a string element.
			return filter.Field{Type: filter.TypeString, Searchable: collection.Searchable}, true
		}
		fields := collection.Fields
		var f filter.Field
		for i, seg := range path[1:] {
			var ok bool
			f, ok = fieldByName(fields, seg)
			if !ok {
				return filter.Field{}, false
			}
			if i < len(path)-2 {
				fields = f.Fields
			}
		}
		return f, true
	}
	return c.schema.Resolve(path)
}

func fieldByName(fields []filter.Field, name string) (filter.Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return filter.Field{}, false
}

func literalValue(lit filter.Literal) interface{} {
	switch lit.Kind {
	case filter.LitString:
		return lit.Str
	case filter.LitInt:
		return lit.Int
	case filter.LitFloat:
		return lit.Float
	case filter.LitBool:
		return lit.Bool
	case filter.LitDatetime:
		return lit.Time.UTC().Format(time.RFC3339)
	}
	return nil
}

func term(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{field: value},
	}
}

func mustNot(clause map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"bool": map[string]interface{}{"must_not": []interface{}{clause}},
	}
}

func nestedQuery(path string, query map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"nested": map[string]interface{}{
			"path":  path,
			"query": query,
		},
	}
}

func wildcard(field, pattern string) map[string]interface{} {
	return map[string]interface{}{
		"wildcard": map[string]interface{}{field: pattern},
	}
}

func escapeWildcard(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "*", "\\*")
	return strings.ReplaceAll(s, "?", "\\?")
}
