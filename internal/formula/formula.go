// Package formula evaluates the small arithmetic expression language used by
// emission-factor quantity derivations (e.g. "volume*density").
//
// The grammar is deliberately closed: binary + - * /, unary minus,
// parentheses, numeric literals, and variable references. Formulas originate
// from operator data entry and are never treated as trusted code, so there is
// no function call syntax and no access to anything beyond the supplied
// variable mapping.
package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// EvaluationError describes why a formula could not be evaluated: a syntax
// problem, an unresolved or non-numeric variable, or division by zero.
type EvaluationError struct {
	Expression string
	Reason     string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("cannot evaluate %q: %s", e.Expression, e.Reason)
}

// Evaluate parses and evaluates expr against vars using standard operator
// precedence. Values in vars may be any JSON-decoded scalar; a variable is
// coerced to a number only when the expression references it. Evaluation is
// deterministic and side-effect free.
func Evaluate(expr string, vars map[string]any) (float64, error) {
	p := &parser{expr: expr, vars: vars}
	p.next()
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.tok.kind != tokenEOF {
		return 0, p.errorf("unexpected %q", p.tok.text)
	}
	return v, nil
}

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenNumber
	tokenIdent
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenLParen
	tokenRParen
	tokenInvalid
)

type token struct {
	kind tokenKind
	text string
}

type parser struct {
	expr string
	vars map[string]any
	pos  int
	tok  token
}

func (p *parser) errorf(format string, args ...any) error {
	return &EvaluationError{Expression: p.expr, Reason: fmt.Sprintf(format, args...)}
}

// next advances to the following token.
func (p *parser) next() {
	for p.pos < len(p.expr) && (p.expr[p.pos] == ' ' || p.expr[p.pos] == '\t') {
		p.pos++
	}
	if p.pos >= len(p.expr) {
		p.tok = token{kind: tokenEOF}
		return
	}

	c := p.expr[p.pos]
	switch {
	case c == '+':
		p.pos++
		p.tok = token{kind: tokenPlus, text: "+"}
	case c == '-':
		p.pos++
		p.tok = token{kind: tokenMinus, text: "-"}
	case c == '*':
		p.pos++
		p.tok = token{kind: tokenStar, text: "*"}
	case c == '/':
		p.pos++
		p.tok = token{kind: tokenSlash, text: "/"}
	case c == '(':
		p.pos++
		p.tok = token{kind: tokenLParen, text: "("}
	case c == ')':
		p.pos++
		p.tok = token{kind: tokenRParen, text: ")"}
	case c >= '0' && c <= '9' || c == '.':
		start := p.pos
		for p.pos < len(p.expr) && (p.expr[p.pos] >= '0' && p.expr[p.pos] <= '9' || p.expr[p.pos] == '.') {
			p.pos++
		}
		p.tok = token{kind: tokenNumber, text: p.expr[start:p.pos]}
	case isIdentStart(c):
		start := p.pos
		for p.pos < len(p.expr) && isIdentPart(p.expr[p.pos]) {
			p.pos++
		}
		p.tok = token{kind: tokenIdent, text: p.expr[start:p.pos]}
	default:
		p.tok = token{kind: tokenInvalid, text: string(c)}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// parseExpr handles + and - (lowest precedence).
func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.tok.kind {
		case tokenPlus:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case tokenMinus:
			p.next()
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

// parseTerm handles * and /.
func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		switch p.tok.kind {
		case tokenStar:
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			left *= right
		case tokenSlash:
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, p.errorf("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (float64, error) {
	if p.tok.kind == tokenMinus {
		p.next()
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (float64, error) {
	switch p.tok.kind {
	case tokenNumber:
		v, err := strconv.ParseFloat(p.tok.text, 64)
		if err != nil {
			return 0, p.errorf("invalid number %q", p.tok.text)
		}
		p.next()
		return v, nil
	case tokenIdent:
		name := p.tok.text
		raw, ok := p.vars[name]
		if !ok {
			return 0, p.errorf("unknown variable %q", name)
		}
		v, err := ToNumber(raw)
		if err != nil {
			return 0, p.errorf("variable %q: %v", name, err)
		}
		p.next()
		return v, nil
	case tokenLParen:
		p.next()
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.tok.kind != tokenRParen {
			return 0, p.errorf("missing closing parenthesis")
		}
		p.next()
		return v, nil
	case tokenEOF:
		return 0, p.errorf("unexpected end of expression")
	default:
		return 0, p.errorf("unexpected %q", p.tok.text)
	}
}

// ToNumber coerces a JSON-decoded scalar to float64. Strings are parsed so
// spreadsheet-imported inputs like "100" still work.
func ToNumber(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
