// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

// Package hogql holds a small SQL dialect used to compose insight queries:
// an AST, a parser for the SELECT subset insights need, a printer that renders
// the AST back to canonical text, and QueryModifier for appending clauses to a
// parsed query.
//
// Only this shape is supported:
//
//	SELECT <exprs> FROM <table> [AS alias] [WHERE <expr>] [GROUP BY <exprs>]
package hogql

// Expr is any expression node. Nodes are plain structs; consumers switch on
// the concrete type.
type Expr interface {
	exprNode()
}

// SelectQuery is a single SELECT statement.
type SelectQuery struct {
	Select     []Expr
	SelectFrom *JoinExpr
	Where      Expr
	GroupBy    []Expr
}

// JoinExpr is the FROM target. Table is usually a *Field.
type JoinExpr struct {
	Table Expr
	Alias string
}

// Field references a column or table by a dotted chain, e.g. properties.$browser.
// The chain ["*"] is the asterisk.
type Field struct {
	Chain []string
}

// Constant is a literal: string, int64, float64, bool or nil.
type Constant struct {
	Value interface{}
}

// Call is a function call such as count(DISTINCT person_id).
type Call struct {
	Name     string
	Args     []Expr
	Distinct bool
}

// Alias names an expression in a select list.
type Alias struct {
	Alias string
	Expr  Expr
}

// CompareOp is a comparison operator.
type CompareOp string

const (
	OpEq      CompareOp = "="
	OpNotEq   CompareOp = "!="
	OpLt      CompareOp = "<"
	OpLtEq    CompareOp = "<="
	OpGt      CompareOp = ">"
	OpGtEq    CompareOp = ">="
	OpLike    CompareOp = "LIKE"
	OpNotLike CompareOp = "NOT LIKE"
)

// CompareOperation compares two expressions.
type CompareOperation struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

// And is a conjunction of two or more expressions.
type And struct {
	Exprs []Expr
}

// Or is a disjunction of two or more expressions.
type Or struct {
	Exprs []Expr
}

// Not negates an expression.
type Not struct {
	Expr Expr
}

// ArithmeticOp is one of + - * / %.
type ArithmeticOp string

const (
	OpAdd ArithmeticOp = "+"
	OpSub ArithmeticOp = "-"
	OpMul ArithmeticOp = "*"
	OpDiv ArithmeticOp = "/"
	OpMod ArithmeticOp = "%"
)

// ArithmeticOperation is a binary arithmetic expression.
type ArithmeticOperation struct {
	Op    ArithmeticOp
	Left  Expr
	Right Expr
}

func (*SelectQuery) exprNode()         {}
func (*JoinExpr) exprNode()            {}
func (*Field) exprNode()               {}
func (*Constant) exprNode()            {}
func (*Call) exprNode()                {}
func (*Alias) exprNode()               {}
func (*CompareOperation) exprNode()    {}
func (*And) exprNode()                 {}
func (*Or) exprNode()                  {}
func (*Not) exprNode()                 {}
func (*ArithmeticOperation) exprNode() {}

// NewField is shorthand for &Field{Chain: chain}.
func NewField(chain ...string) *Field {
	return &Field{Chain: chain}
}
