package filter

// Function names accepted in filter expressions.
const (
	FuncGeoDistance   = "geo.distance"
	FuncGeoIntersects = "geo.intersects"
	FuncSearchIn      = "search.in"
	FuncSearchIsMatch = "search.ismatch"
	FuncSearchScore   = "search.score"
	FuncStartsWith    = "startswith"
	FuncEndsWith      = "endswith"
	FuncContains      = "contains"
)

// funcArity maps each function to its accepted argument counts.
var funcArity = map[string][2]int{
	FuncGeoDistance:   {2, 2},
	FuncGeoIntersects: {2, 2},
	FuncSearchIn:      {2, 3},
	FuncSearchIsMatch: {1, 2},
	FuncSearchScore:   {0, 0},
	FuncStartsWith:    {2, 2},
	FuncEndsWith:      {2, 2},
	FuncContains:      {2, 2},
}

// booleanFuncs are functions usable as standalone expressions.
var booleanFuncs = map[string]bool{
	FuncGeoIntersects: true,
	FuncSearchIn:      true,
	FuncSearchIsMatch: true,
	FuncStartsWith:    true,
	FuncEndsWith:      true,
	FuncContains:      true,
}

var compareOps = map[string]CompareOp{
	"eq": OpEq, "ne": OpNe, "gt": OpGt, "ge": OpGe, "lt": OpLt, "le": OpLe,
}

// reservedWords cannot be used as field names.
var reservedWords = map[string]bool{
	"and": true, "or": true, "not": true,
	"eq": true, "ne": true, "gt": true, "ge": true, "lt": true, "le": true,
	"true": true, "false": true, "null": true,
}

// Parse parses an OData filter expression.
func Parse(input string) (Expr, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		t := p.peek()
		return nil, syntaxErr(t.pos, "unexpected %s after expression", t.kind)
	}
	return expr, nil
}

// MustParse is Parse that panics on error, for use with known-good filters
// such as package-level constants.
func MustParse(input string) Expr {
	expr, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return expr
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.peek()
	if t.kind != kind {
		return token{}, syntaxErr(t.pos, "expected %s, got %s", kind, t.kind)
	}
	return p.next(), nil
}

// acceptWord consumes the next token if it is the given identifier keyword.
func (p *parser) acceptWord(word string) bool {
	t := p.peek()
	if t.kind == tokIdent && t.text == word {
		p.next()
		return true
	}
	return false
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	if !p.acceptWord("or") {
		return left, nil
	}
	operands := []Expr{left}
	for {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		operands = append(operands, right)
		if !p.acceptWord("or") {
			return &Logical{Op: OpOr, Operands: operands}, nil
		}
	}
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if !p.acceptWord("and") {
		return left, nil
	}
	operands := []Expr{left}
	for {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		operands = append(operands, right)
		if !p.acceptWord("and") {
			return &Logical{Op: OpAnd, Operands: operands}, nil
		}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	if p.acceptWord("not") {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Expr: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	}

	pos := p.peek().pos
	left, lambda, err := p.parseOperandOrLambda()
	if err != nil {
		return nil, err
	}
	if lambda != nil {
		return lambda, nil
	}

	if t := p.peek(); t.kind == tokIdent {
		if op, ok := compareOps[t.text]; ok {
			p.next()
			right, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			return &Comparison{Left: left, Op: op, Right: right}, nil
		}
	}

	if call, ok := left.(*Call); ok && booleanFuncs[call.Name] {
		return call, nil
	}
	return nil, syntaxErr(pos, "expected a comparison operator after %s", left.String())
}

// parseOperand parses a field path, literal, or function call.
func (p *parser) parseOperand() (Operand, error) {
	op, lambda, err := p.parseOperandOrLambda()
	if err != nil {
		return nil, err
	}
	if lambda != nil {
		return nil, syntaxErr(0, "lambda expression %s cannot be used as a comparison operand", lambda.String())
	}
	return op, nil
}

// parseOperandOrLambda parses an operand, or a lambda when a field path is
// followed by /any(...) or /all(...).
func (p *parser) parseOperandOrLambda() (Operand, *Lambda, error) {
	t := p.peek()

	switch t.kind {
	case tokString:
		p.next()
		return Literal{Kind: LitString, Str: t.text}, nil, nil
	case tokInt:
		p.next()
		return Literal{Kind: LitInt, Int: t.intVal}, nil, nil
	case tokFloat:
		p.next()
		return Literal{Kind: LitFloat, Float: t.floatVal}, nil, nil
	case tokDatetime:
		p.next()
		return Literal{Kind: LitDatetime, Time: t.timeVal}, nil, nil
	case tokGeo:
		p.next()
		return t.geoVal, nil, nil

	case tokIdent:
		switch t.text {
		case "true", "false":
			p.next()
			return Literal{Kind: LitBool, Bool: t.text == "true"}, nil, nil
		case "null":
			p.next()
			return Literal{Kind: LitNull}, nil, nil
		}

		if _, isFunc := funcArity[t.text]; isFunc {
			return p.parseCall()
		}
		if reservedWords[t.text] {
			return nil, nil, syntaxErr(t.pos, "unexpected keyword %q", t.text)
		}
		return p.parsePathOrLambda()
	}

	return nil, nil, syntaxErr(t.pos, "expected a field, literal, or function, got %s", t.kind)
}

func (p *parser) parseCall() (Operand, *Lambda, error) {
	name := p.next()
	if _, err := p.expect(tokLParen); err != nil {
		return nil, nil, err
	}

	var args []Operand
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseOperand()
			if err != nil {
				return nil, nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, nil, err
	}

	arity := funcArity[name.text]
	if len(args) < arity[0] || len(args) > arity[1] {
		return nil, nil, syntaxErr(name.pos, "%s expects %d to %d arguments, got %d",
			name.text, arity[0], arity[1], len(args))
	}
	return &Call{Name: name.text, Args: args}, nil, nil
}

// parsePathOrLambda parses "a/b/c" and detects the lambda forms
// "path/any(v: expr)", "path/all(v: expr)" and "path/any()".
func (p *parser) parsePathOrLambda() (Operand, *Lambda, error) {
	first := p.next()
	path := FieldPath{first.text}

	for p.peek().kind == tokSlash {
		p.next()
		seg, err := p.expect(tokIdent)
		if err != nil {
			return nil, nil, err
		}

		if (seg.text == "any" || seg.text == "all") && p.peek().kind == tokLParen {
			lambda, err := p.parseLambda(path, seg)
			if err != nil {
				return nil, nil, err
			}
			return nil, lambda, nil
		}

		if reservedWords[seg.text] {
			return nil, nil, syntaxErr(seg.pos, "unexpected keyword %q in field path", seg.text)
		}
		path = append(path, seg.text)
	}
	return path, nil, nil
}

func (p *parser) parseLambda(path FieldPath, op token) (*Lambda, error) {
	p.next() // consume '('

	lambda := &Lambda{Path: path, All: op.text == "all"}

	if p.peek().kind == tokRParen {
		p.next()
		if lambda.All {
			return nil, syntaxErr(op.pos, "all requires a lambda body")
		}
		return lambda, nil
	}

	v, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	if reservedWords[v.text] {
		return nil, syntaxErr(v.pos, "invalid range variable %q", v.text)
	}
	lambda.Var = v.text

	if _, err := p.expect(tokColon); err != nil {
		return nil, err
	}
	body, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	lambda.Body = body

	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	return lambda, nil
}
