package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokInt
	tokFloat
	tokDatetime
	tokGeo
	tokLParen
	tokRParen
	tokComma
	tokSlash
	tokColon
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string literal"
	case tokInt:
		return "integer literal"
	case tokFloat:
		return "float literal"
	case tokDatetime:
		return "datetime literal"
	case tokGeo:
		return "geography literal"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	case tokSlash:
		return "'/'"
	case tokColon:
		return "':'"
	}
	return "unknown token"
}

type token struct {
	kind tokenKind
	text string
	pos  int

	// Decoded literal values, populated per kind.
	intVal   int64
	floatVal float64
	timeVal  time.Time
	geoVal   Literal
}

// SyntaxError reports a lexing or parsing failure with the byte offset of
// the offending input.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

func syntaxErr(pos int, format string, args ...interface{}) error {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// lex splits the input into a token slice terminated by a tokEOF entry.
func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	n := len(input)

	for i < n {
		c := input[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == '/':
			toks = append(toks, token{kind: tokSlash, text: "/", pos: i})
			i++
		case c == ':':
			toks = append(toks, token{kind: tokColon, text: ":", pos: i})
			i++

		case c == '\'':
			tok, next, err := lexString(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next

		case c >= '0' && c <= '9' || c == '-' && i+1 < n && input[i+1] >= '0' && input[i+1] <= '9':
			tok, next, err := lexNumberOrDatetime(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next

		case isIdentStart(c):
			tok, next, err := lexIdent(input, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next

		default:
			return nil, syntaxErr(i, "unexpected character %q", c)
		}
	}

	toks = append(toks, token{kind: tokEOF, pos: n})
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '.'
}

// lexIdent scans an identifier. Dots are allowed inside identifiers to
// cover qualified function names (geo.distance, search.in). A "geography"
// identifier immediately followed by a quote introduces a geo literal.
func lexIdent(input string, start int) (token, int, error) {
	i := start
	for i < len(input) && isIdentPart(input[i]) {
		i++
	}
	word := input[start:i]

	if word == "geography" && i < len(input) && input[i] == '\'' {
		return lexGeo(input, start, i)
	}

	return token{kind: tokIdent, text: word, pos: start}, i, nil
}

// lexGeo scans geography'...' where quoteAt points at the opening quote.
func lexGeo(input string, start, quoteAt int) (token, int, error) {
	end := strings.IndexByte(input[quoteAt+1:], '\'')
	if end < 0 {
		return token{}, 0, syntaxErr(start, "unterminated geography literal")
	}
	wkt := input[quoteAt+1 : quoteAt+1+end]
	lit, err := parseWKT(wkt)
	if err != nil {
		return token{}, 0, syntaxErr(start, "%v", err)
	}
	next := quoteAt + 1 + end + 1
	return token{kind: tokGeo, text: input[start:next], pos: start, geoVal: lit}, next, nil
}

// lexString scans a single-quoted string; a doubled quote escapes a quote.
func lexString(input string, start int) (token, int, error) {
	var sb strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		if c == '\'' {
			if i+1 < len(input) && input[i+1] == '\'' {
				sb.WriteByte('\'')
				i += 2
				continue
			}
			return token{kind: tokString, text: sb.String(), pos: start}, i + 1, nil
		}
		sb.WriteByte(c)
		i++
	}
	return token{}, 0, syntaxErr(start, "unterminated string literal")
}

// lexNumberOrDatetime scans an integer, a float, or an ISO-8601 datetime.
// Datetimes are recognised by a '-' after four leading digits, as in
// 2024-06-01T00:00:00Z.
func lexNumberOrDatetime(input string, start int) (token, int, error) {
	i := start
	if input[i] == '-' {
		i++
	}
	digits := 0
	for i < len(input) && input[i] >= '0' && input[i] <= '9' {
		i++
		digits++
	}

	if digits == 4 && input[start] != '-' && i < len(input) && input[i] == '-' {
		return lexDatetime(input, start)
	}

	isFloat := false
	if i < len(input) && input[i] == '.' && i+1 < len(input) && input[i+1] >= '0' && input[i+1] <= '9' {
		isFloat = true
		i++
		for i < len(input) && input[i] >= '0' && input[i] <= '9' {
			i++
		}
	}
	if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
		j := i + 1
		if j < len(input) && (input[j] == '+' || input[j] == '-') {
			j++
		}
		if j < len(input) && input[j] >= '0' && input[j] <= '9' {
			isFloat = true
			i = j
			for i < len(input) && input[i] >= '0' && input[i] <= '9' {
				i++
			}
		}
	}

	text := input[start:i]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, 0, syntaxErr(start, "invalid number %q", text)
		}
		return token{kind: tokFloat, text: text, pos: start, floatVal: f}, i, nil
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return token{}, 0, syntaxErr(start, "invalid number %q", text)
	}
	return token{kind: tokInt, text: text, pos: start, intVal: v}, i, nil
}

func lexDatetime(input string, start int) (token, int, error) {
	i := start
	for i < len(input) && isDatetimeChar(input[i]) {
		i++
	}
	text := input[start:i]
	t, err := time.Parse(time.RFC3339, text)
	if err != nil {
		// Date-only form, midnight UTC.
		t, err = time.Parse("2006-01-02", text)
		if err != nil {
			return token{}, 0, syntaxErr(start, "invalid datetime literal %q", text)
		}
	}
	return token{kind: tokDatetime, text: text, pos: start, timeVal: t}, i, nil
}

func isDatetimeChar(c byte) bool {
	return c >= '0' && c <= '9' || c == '-' || c == ':' || c == '+' ||
		c == 'T' || c == 'Z' || c == '.'
}
