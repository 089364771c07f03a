package filter

import (
	"fmt"
	"sort"
)

// Advisory thresholds for Report.Warnings.
const (
	warnDepth    = 5
	warnClauses  = 20
	warnOrFanout = 10
)

// Report describes the structure of a filter expression.
type Report struct {
	// Clauses is the number of comparison, lambda and boolean-function
	// leaves in the tree.
	Clauses int

	// Depth is the maximum nesting depth of logical operators.
	Depth int

	// Fields lists every referenced field path, sorted and de-duplicated.
	// Lambda range variables are resolved to their collection path.
	Fields []string

	// Functions counts uses per function name.
	Functions map[string]int

	// Warnings are advisory notes about structures that tend to be slow or
	// hard to maintain.
	Warnings []string
}

// Analyze walks an expression tree and reports its structure. Unlike a
// substring count over the raw filter text, the walk cannot be confused by
// operators inside string literals.
func Analyze(expr Expr) Report {
	a := &analyzer{
		report: Report{Functions: map[string]int{}},
		fields: map[string]bool{},
		vars:   map[string]string{},
	}
	a.walk(expr, 1)

	for f := range a.fields {
		a.report.Fields = append(a.report.Fields, f)
	}
	sort.Strings(a.report.Fields)

	if a.report.Depth > warnDepth {
		a.warnf("nesting depth %d exceeds %d; consider flattening the expression", a.report.Depth, warnDepth)
	}
	if a.report.Clauses > warnClauses {
		a.warnf("%d clauses exceeds %d; consider search.in for long value lists", a.report.Clauses, warnClauses)
	}
	if a.maxOrFanout > warnOrFanout {
		a.warnf("an or chain with %d branches; search.in is faster for membership tests", a.maxOrFanout)
	}
	if a.leadingNot {
		a.warnf("top-level not forces a full scan on most backends")
	}
	return a.report
}

type analyzer struct {
	report      Report
	fields      map[string]bool
	vars        map[string]string
	maxOrFanout int
	leadingNot  bool
}

func (a *analyzer) warnf(format string, args ...interface{}) {
	a.report.Warnings = append(a.report.Warnings, fmt.Sprintf(format, args...))
}

func (a *analyzer) walk(e Expr, depth int) {
	if depth > a.report.Depth {
		a.report.Depth = depth
	}

	switch n := e.(type) {
	case *Logical:
		if n.Op == OpOr && len(n.Operands) > a.maxOrFanout {
			a.maxOrFanout = len(n.Operands)
		}
		for _, op := range n.Operands {
			a.walk(op, depth+1)
		}

	case *Not:
		if depth == 1 {
			a.leadingNot = true
		}
		a.walk(n.Expr, depth+1)

	case *Comparison:
		a.report.Clauses++
		a.operand(n.Left)
		a.operand(n.Right)

	case *Lambda:
		a.report.Clauses++
		a.field(n.Path)
		if n.Body != nil {
			prev, shadowed := a.vars[n.Var]
			a.vars[n.Var] = n.Path.String()
			a.walk(n.Body, depth+1)
			if shadowed {
				a.vars[n.Var] = prev
			} else {
				delete(a.vars, n.Var)
			}
		}

	case *Call:
		a.report.Clauses++
		a.call(n)
	}
}

func (a *analyzer) operand(op Operand) {
	switch o := op.(type) {
	case FieldPath:
		a.field(o)
	case *Call:
		a.call(o)
	}
}

func (a *analyzer) call(c *Call) {
	a.report.Functions[c.Name]++
	for _, arg := range c.Args {
		a.operand(arg)
	}
}

func (a *analyzer) field(path FieldPath) {
	name := path.String()
	if base, ok := a.vars[path.Root()]; ok {
		name = base
		if len(path) > 1 {
			name += "/" + FieldPath(path[1:]).String()
		}
	}
	a.fields[name] = true
}
