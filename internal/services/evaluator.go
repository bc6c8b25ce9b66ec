package services

import (
	"errors"
	"math"
	"strings"
)

var (
	ErrEmptyExpression      = errors.New("expression is empty")
	ErrIncompleteExpression = errors.New("expression ends with an operator")
	ErrMalformedExpression  = errors.New("malformed expression")
	ErrNonFiniteResult      = errors.New("expression result is not finite")
)

func isOperator(r byte) bool {
	return r == '+' || r == '-' || r == '*' || r == '/'
}

func isSpace(r byte) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// Evaluate computes an expression made of non-negative integer literals and
// the four binary operators, with * and / binding tighter than + and -.
// Operators are left associative. Unary signs and parentheses are rejected.
func Evaluate(expr string) (float64, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return 0, ErrEmptyExpression
	}
	if isOperator(trimmed[len(trimmed)-1]) {
		return 0, ErrIncompleteExpression
	}

	p := exprParser{src: trimmed}
	v, err := p.parseSum()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, ErrMalformedExpression
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNonFiniteResult
	}
	return v, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *exprParser) peekOperator(ops string) (byte, bool) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0, false
	}
	c := p.src[p.pos]
	if strings.IndexByte(ops, c) < 0 {
		return 0, false
	}
	return c, true
}

func (p *exprParser) parseSum() (float64, error) {
	left, err := p.parseProduct()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peekOperator("+-")
		if !ok {
			return left, nil
		}
		p.pos++
		right, err := p.parseProduct()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *exprParser) parseProduct() (float64, error) {
	left, err := p.parseNumber()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peekOperator("*/")
		if !ok {
			return left, nil
		}
		p.pos++
		right, err := p.parseNumber()
		if err != nil {
			return 0, err
		}
		// IEEE division: x/0 is ±Inf and 0/0 is NaN, both rejected by Evaluate.
		if op == '*' {
			left *= right
		} else {
			left /= right
		}
	}
}

// parseNumber reads an unsigned integer literal. A sign in operand position
// ("-10+35", "5*-1") is malformed: every operator in a guess must sit between
// two numbers, so negative literals are never accepted.
func (p *exprParser) parseNumber() (float64, error) {
	p.skipSpace()
	start := p.pos
	var v float64
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		v = v*10 + float64(p.src[p.pos]-'0')
		p.pos++
	}
	if p.pos == start {
		return 0, ErrMalformedExpression
	}
	return v, nil
}
