package formula

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Expression errors.
var (
	ErrCharset        = errors.New("expression contains disallowed characters")
	ErrSyntax         = errors.New("malformed expression")
	ErrDivisionByZero = errors.New("division by zero")
)

// allowedCharset is checked before any parsing happens.
var allowedCharset = regexp.MustCompile(`^[0-9+\-*/().\s]*$`)

// Evaluate computes an arithmetic expression over digits, + - * / ( ) and dots.
// The result is rounded to 2 decimal places.
func Evaluate(input string) (decimal.Decimal, error) {
	if !allowedCharset.MatchString(input) {
		return decimal.Zero, ErrCharset
	}
	if strings.TrimSpace(input) == "" {
		return decimal.Zero, fmt.Errorf("%w: empty expression", ErrSyntax)
	}

	p := &exprParser{src: input}
	value, err := p.parseSum()
	if err != nil {
		return decimal.Zero, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return decimal.Zero, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, p.src[p.pos], p.pos)
	}

	return value.Round(2), nil
}

// EvalExpression evaluates a quantity field. Empty input yields the fallback
// and counts as valid; any failure yields the fallback and false.
func EvalExpression(input string, fallback decimal.Decimal) (decimal.Decimal, bool) {
	if strings.TrimSpace(input) == "" && allowedCharset.MatchString(input) {
		return fallback, true
	}

	value, err := Evaluate(input)
	if err != nil {
		return fallback, false
	}
	return value, true
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			p.pos++
		default:
			return
		}
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *exprParser) parseSum() (decimal.Decimal, error) {
	left, err := p.parseProduct()
	if err != nil {
		return decimal.Zero, err
	}

	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++

		right, err := p.parseProduct()
		if err != nil {
			return decimal.Zero, err
		}
		if op == '+' {
			left = left.Add(right)
		} else {
			left = left.Sub(right)
		}
	}
}

func (p *exprParser) parseProduct() (decimal.Decimal, error) {
	left, err := p.parseUnary()
	if err != nil {
		return decimal.Zero, err
	}

	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++

		right, err := p.parseUnary()
		if err != nil {
			return decimal.Zero, err
		}
		if op == '*' {
			left = left.Mul(right)
			continue
		}
		if right.IsZero() {
			return decimal.Zero, ErrDivisionByZero
		}
		left = left.Div(right)
	}
}

func (p *exprParser) parseUnary() (decimal.Decimal, error) {
	switch p.peek() {
	case '-':
		p.pos++
		v, err := p.parseUnary()
		return v.Neg(), err
	case '+':
		p.pos++
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (decimal.Decimal, error) {
	c := p.peek()
	if c == 0 {
		return decimal.Zero, fmt.Errorf("%w: unexpected end of input", ErrSyntax)
	}

	if c == '(' {
		p.pos++
		v, err := p.parseSum()
		if err != nil {
			return decimal.Zero, err
		}
		if p.peek() != ')' {
			return decimal.Zero, fmt.Errorf("%w: unbalanced parentheses", ErrSyntax)
		}
		p.pos++
		return v, nil
	}

	start := p.pos
	dots := 0
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		if ch == '.' {
			dots++
		} else if ch < '0' || ch > '9' {
			break
		}
		p.pos++
	}

	literal := p.src[start:p.pos]
	if literal == "" || literal == "." || dots > 1 {
		return decimal.Zero, fmt.Errorf("%w: bad number %q at %d", ErrSyntax, literal, start)
	}
	if strings.HasSuffix(literal, ".") {
		literal += "0"
	}
	if strings.HasPrefix(literal, ".") {
		literal = "0" + literal
	}

	v, err := decimal.NewFromString(literal)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return v, nil
}
