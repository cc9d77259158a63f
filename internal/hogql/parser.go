// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package hogql

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseSelect parses a single SELECT statement.
func ParseSelect(sql string) (*SelectQuery, error) {
	p, err := newParser(sql)
	if err != nil {
		return nil, err
	}
	q, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return q, nil
}

// ParseExpr parses a standalone expression, e.g. "count(DISTINCT person_id)".
func ParseExpr(sql string) (Expr, error) {
	p, err := newParser(sql)
	if err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return e, nil
}

type parser struct {
	tokens []token
	pos    int
}

func newParser(sql string) (*parser, error) {
	tokens, err := tokenize(sql)
	if err != nil {
		return nil, err
	}
	return &parser{tokens: tokens}, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...interface{}) error {
	return &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func describe(t token) string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.text)
}

func (p *parser) expectKeyword(kw string) error {
	t := p.next()
	if !t.isKeyword(kw) {
		return p.errorf(t, "expected %s, got %s", kw, describe(t))
	}
	return nil
}

func (p *parser) expectEOF() error {
	if t := p.peek(); t.kind != tokEOF {
		return p.errorf(t, "unexpected %s", describe(t))
	}
	return nil
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.peek().isKeyword(kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseSelect() (*SelectQuery, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	q := &SelectQuery{}

	sel, err := p.parseExprList(true)
	if err != nil {
		return nil, err
	}
	q.Select = sel

	if p.acceptKeyword("FROM") {
		join, err := p.parseJoinExpr()
		if err != nil {
			return nil, err
		}
		q.SelectFrom = join
	}

	if p.acceptKeyword("WHERE") {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		q.Where = where
	}

	if p.acceptKeyword("GROUP") {
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		groupBy, err := p.parseExprList(false)
		if err != nil {
			return nil, err
		}
		q.GroupBy = groupBy
	}

	return q, nil
}

func (p *parser) parseJoinExpr() (*JoinExpr, error) {
	t := p.peek()
	if t.kind != tokIdent && t.kind != tokQuotedIdent {
		return nil, p.errorf(t, "expected table name, got %s", describe(t))
	}
	table, err := p.parseChain()
	if err != nil {
		return nil, err
	}
	join := &JoinExpr{Table: table}
	if alias, ok, err := p.parseAlias(); err != nil {
		return nil, err
	} else if ok {
		join.Alias = alias
	}
	return join, nil
}

// parseAlias reads "AS name" or a bare non-keyword identifier.
func (p *parser) parseAlias() (string, bool, error) {
	if p.acceptKeyword("AS") {
		t := p.next()
		if t.kind == tokQuotedIdent || (t.kind == tokIdent && !keywords[strings.ToUpper(t.text)]) {
			return t.text, true, nil
		}
		return "", false, p.errorf(t, "expected alias after AS, got %s", describe(t))
	}
	t := p.peek()
	if t.kind == tokQuotedIdent || (t.kind == tokIdent && !keywords[strings.ToUpper(t.text)]) {
		p.pos++
		return t.text, true, nil
	}
	return "", false, nil
}

func (p *parser) parseExprList(allowAlias bool) ([]Expr, error) {
	var exprs []Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if allowAlias {
			alias, ok, err := p.parseAlias()
			if err != nil {
				return nil, err
			}
			if ok {
				e = &Alias{Alias: alias, Expr: e}
			}
		}
		exprs = append(exprs, e)
		if p.peek().kind != tokComma {
			return exprs, nil
		}
		p.pos++
	}
}

func (p *parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	exprs := []Expr{left}
	for p.acceptKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, right)
	}
	if len(exprs) == 1 {
		return left, nil
	}
	return &Or{Exprs: exprs}, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	exprs := []Expr{left}
	for p.acceptKeyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, right)
	}
	if len(exprs) == 1 {
		return left, nil
	}
	return &And{Exprs: exprs}, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.acceptKeyword("NOT") {
		e, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Not{Expr: e}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	var op CompareOp
	switch {
	case t.kind == tokOp:
		switch t.text {
		case "=", "==":
			op = OpEq
		case "!=", "<>":
			op = OpNotEq
		case "<":
			op = OpLt
		case "<=":
			op = OpLtEq
		case ">":
			op = OpGt
		case ">=":
			op = OpGtEq
		default:
			return left, nil
		}
		p.pos++
	case t.isKeyword("LIKE"):
		op = OpLike
		p.pos++
	case t.isKeyword("NOT") && p.tokens[p.pos+1].isKeyword("LIKE"):
		op = OpNotLike
		p.pos += 2
	default:
		return left, nil
	}

	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &CompareOperation{Op: op, Left: left, Right: right}, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.pos++
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ArithmeticOperation{Op: ArithmeticOp(t.text), Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "*" && t.text != "/" && t.text != "%") {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ArithmeticOperation{Op: ArithmeticOp(t.text), Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.peek()
	if t.kind == tokOp && t.text == "-" {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if c, ok := operand.(*Constant); ok {
			switch v := c.Value.(type) {
			case int64:
				return &Constant{Value: -v}, nil
			case float64:
				return &Constant{Value: -v}, nil
			}
		}
		return &ArithmeticOperation{Op: OpSub, Left: &Constant{Value: int64(0)}, Right: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokInt:
		p.pos++
		v, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errorf(t, "integer out of range: %s", t.text)
		}
		return &Constant{Value: v}, nil

	case tokFloat:
		p.pos++
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid number: %s", t.text)
		}
		return &Constant{Value: v}, nil

	case tokString:
		p.pos++
		return &Constant{Value: t.text}, nil

	case tokLParen:
		p.pos++
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.errorf(closing, "expected ), got %s", describe(closing))
		}
		return e, nil

	case tokOp:
		if t.text == "*" {
			p.pos++
			return &Field{Chain: []string{"*"}}, nil
		}

	case tokIdent:
		switch strings.ToUpper(t.text) {
		case "TRUE":
			p.pos++
			return &Constant{Value: true}, nil
		case "FALSE":
			p.pos++
			return &Constant{Value: false}, nil
		case "NULL":
			p.pos++
			return &Constant{Value: nil}, nil
		case "NAN":
			p.pos++
			return &Constant{Value: math.NaN()}, nil
		case "INF":
			p.pos++
			return &Constant{Value: math.Inf(1)}, nil
		}
		if keywords[strings.ToUpper(t.text)] {
			return nil, p.errorf(t, "unexpected keyword %s", strings.ToUpper(t.text))
		}
		if p.tokens[p.pos+1].kind == tokLParen {
			return p.parseCall()
		}
		return p.parseChain()

	case tokQuotedIdent:
		return p.parseChain()
	}

	return nil, p.errorf(t, "unexpected %s", describe(t))
}

func (p *parser) parseChain() (*Field, error) {
	first := p.next()
	chain := []string{first.text}
	for p.peek().kind == tokDot {
		p.pos++
		t := p.next()
		switch {
		case t.kind == tokIdent || t.kind == tokQuotedIdent:
			chain = append(chain, t.text)
		case t.kind == tokInt:
			chain = append(chain, t.text)
		case t.kind == tokOp && t.text == "*":
			chain = append(chain, "*")
		default:
			return nil, p.errorf(t, "expected identifier after '.', got %s", describe(t))
		}
	}
	return &Field{Chain: chain}, nil
}

func (p *parser) parseCall() (*Call, error) {
	name := p.next()
	p.pos++ // (
	call := &Call{Name: name.text}

	if p.peek().kind == tokRParen {
		p.pos++
		return call, nil
	}
	if p.acceptKeyword("DISTINCT") {
		call.Distinct = true
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		t := p.next()
		switch t.kind {
		case tokComma:
			continue
		case tokRParen:
			return call, nil
		default:
			return nil, p.errorf(t, "expected , or ) in call to %s, got %s", name.text, describe(t))
		}
	}
}
