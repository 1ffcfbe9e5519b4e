package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrSyntax is wrapped by every parse failure.
var ErrSyntax = errors.New("condition: syntax error")

// Expr is a parsed `when` clause.
//
// Supported forms:
//   - truthiness: `has_carryover`, `!has_carryover`
//   - comparisons: `kind == "approver"`, `days >= 3`, `limit != null`
//   - composition: `a && (b || c != 0)`
//
// Identifiers are dotted paths resolved through a Source. The right-hand side
// of a comparison is a literal; bare words are read as strings. An empty
// expression always evaluates to true.
type Expr struct {
	raw  string
	root node
	refs []string
}

// Parse compiles expression into an Expr.
func Parse(expression string) (*Expr, error) {
	trimmed := strings.TrimSpace(expression)
	out := &Expr{raw: trimmed}
	if trimmed == "" {
		return out, nil
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return out, nil
	}

	stream := &tokenStream{tokens: tokens}
	root, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("%w: unexpected token %q", ErrSyntax, stream.tokens[stream.pos].raw)
	}
	out.root = root
	out.refs = stream.refs
	return out, nil
}

// MustParse is like Parse but panics on error. Intended for static rules.
func MustParse(expression string) *Expr {
	expr, err := Parse(expression)
	if err != nil {
		panic(err)
	}
	return expr
}

// Eval implements Predicate.
func (e *Expr) Eval(src Source) (bool, error) {
	if e == nil || e.root == nil {
		return true, nil
	}
	if src == nil {
		src = Values(nil)
	}
	return e.root.eval(src)
}

// String returns the normalised source text.
func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	return e.raw
}

// Identifiers returns the distinct paths referenced by the expression in
// order of first appearance.
func (e *Expr) Identifiers() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.refs...)
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDelimiter(c byte) bool {
	return isSpace(c) || strings.IndexByte("()!=&|<>", c) >= 0
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	emit := func(kind tokenKind, raw string, width int) {
		tokens = append(tokens, token{kind: kind, raw: raw})
		i += width
	}

	for i < len(input) {
		ch := input[i]
		if isSpace(ch) {
			i++
			continue
		}
		var next byte
		if i+1 < len(input) {
			next = input[i+1]
		}

		switch ch {
		case '(':
			emit(tokenLParen, "(", 1)
		case ')':
			emit(tokenRParen, ")", 1)
		case '!':
			if next == '=' {
				emit(tokenNeq, "!=", 2)
			} else {
				emit(tokenNot, "!", 1)
			}
		case '<':
			if next == '=' {
				emit(tokenLte, "<=", 2)
			} else {
				emit(tokenLt, "<", 1)
			}
		case '>':
			if next == '=' {
				emit(tokenGte, ">=", 2)
			} else {
				emit(tokenGt, ">", 1)
			}
		case '=':
			if next != '=' {
				return nil, fmt.Errorf("%w: unexpected '='; use '=='", ErrSyntax)
			}
			emit(tokenEq, "==", 2)
		case '&':
			if next != '&' {
				return nil, fmt.Errorf("%w: unexpected '&'; use '&&'", ErrSyntax)
			}
			emit(tokenAnd, "&&", 2)
		case '|':
			if next != '|' {
				return nil, fmt.Errorf("%w: unexpected '|'; use '||'", ErrSyntax)
			}
			emit(tokenOr, "||", 2)
		case '"', '\'':
			value, width, err := scanString(input[i:])
			if err != nil {
				return nil, err
			}
			emit(tokenString, value, width)
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			raw := input[start:i]
			switch strings.ToLower(raw) {
			case "true", "false":
				tokens = append(tokens, token{kind: tokenBool, raw: strings.ToLower(raw)})
			case "null", "nil":
				tokens = append(tokens, token{kind: tokenNull, raw: "null"})
			default:
				if looksLikeNumber(raw) {
					tokens = append(tokens, token{kind: tokenNumber, raw: raw})
				} else {
					tokens = append(tokens, token{kind: tokenIdentifier, raw: raw})
				}
			}
		}
	}
	return tokens, nil
}

// scanString reads a quoted literal at the start of input and returns the
// unquoted value and the number of bytes consumed.
func scanString(input string) (string, int, error) {
	quote := input[0]
	escaped := false
	for j := 1; j < len(input); j++ {
		c := input[j]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c != quote {
			continue
		}
		body := input[1:j]
		if quote == '\'' {
			body = strings.ReplaceAll(body, `\'`, `'`)
			body = strings.ReplaceAll(body, `"`, `\"`)
		}
		value, err := strconv.Unquote(`"` + body + `"`)
		if err != nil {
			return "", 0, fmt.Errorf("%w: invalid string literal: %v", ErrSyntax, err)
		}
		return value, j + 1, nil
	}
	return "", 0, fmt.Errorf("%w: unterminated string literal", ErrSyntax)
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	ch := raw[0]
	return (ch >= '0' && ch <= '9') || ch == '-' || ch == '+'
}

type tokenStream struct {
	tokens []token
	pos    int
	refs   []string
}

func (s *tokenStream) match(kinds ...tokenKind) (token, bool) {
	if s.pos >= len(s.tokens) {
		return token{}, false
	}
	tok := s.tokens[s.pos]
	for _, kind := range kinds {
		if tok.kind == kind {
			s.pos++
			return tok, true
		}
	}
	return token{}, false
}

func (s *tokenStream) reference(path string) {
	for _, existing := range s.refs {
		if existing == path {
			return
		}
	}
	s.refs = append(s.refs, path)
}

func parseOr(stream *tokenStream) (node, error) {
	left, err := parseAnd(stream)
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := stream.match(tokenOr); !ok {
			return left, nil
		}
		right, err := parseAnd(stream)
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
}

func parseAnd(stream *tokenStream) (node, error) {
	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := stream.match(tokenAnd); !ok {
			return left, nil
		}
		right, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
}

func parseUnary(stream *tokenStream) (node, error) {
	if _, ok := stream.match(tokenNot); ok {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (node, error) {
	if _, ok := stream.match(tokenLParen); ok {
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if _, ok := stream.match(tokenRParen); !ok {
			return nil, fmt.Errorf("%w: missing closing ')'", ErrSyntax)
		}
		return inner, nil
	}

	ident, ok := stream.match(tokenIdentifier)
	if !ok {
		if stream.pos >= len(stream.tokens) {
			return nil, fmt.Errorf("%w: incomplete expression", ErrSyntax)
		}
		return nil, fmt.Errorf("%w: expected identifier, got %q", ErrSyntax, stream.tokens[stream.pos].raw)
	}
	stream.reference(ident.raw)

	op, ok := stream.match(tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte)
	if !ok {
		return truthyNode{path: ident.raw}, nil
	}
	lit, err := parseLiteral(stream)
	if err != nil {
		return nil, err
	}
	if op.kind != tokenEq && op.kind != tokenNeq && lit.kind != litNumber {
		return nil, fmt.Errorf("%w: operator %q needs a number, got %q", ErrSyntax, op.raw, lit.raw)
	}
	return compareNode{path: ident.raw, op: op.kind, literal: lit}, nil
}

type literalKind int

const (
	litString literalKind = iota
	litNumber
	litBool
	litNull
)

type literal struct {
	kind   literalKind
	raw    string
	number decimal.Decimal
}

func parseLiteral(stream *tokenStream) (literal, error) {
	if stream.pos >= len(stream.tokens) {
		return literal{}, fmt.Errorf("%w: missing literal", ErrSyntax)
	}
	tok := stream.tokens[stream.pos]
	stream.pos++
	switch tok.kind {
	case tokenString, tokenIdentifier:
		return literal{kind: litString, raw: tok.raw}, nil
	case tokenNumber:
		n, err := decimal.NewFromString(tok.raw)
		if err != nil {
			return literal{}, fmt.Errorf("%w: invalid number literal %q", ErrSyntax, tok.raw)
		}
		return literal{kind: litNumber, raw: tok.raw, number: n}, nil
	case tokenBool:
		return literal{kind: litBool, raw: tok.raw}, nil
	case tokenNull:
		return literal{kind: litNull, raw: "null"}, nil
	default:
		return literal{}, fmt.Errorf("%w: expected literal, got %q", ErrSyntax, tok.raw)
	}
}
