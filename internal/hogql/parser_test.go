// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package hogql

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSelect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sql  string
		want *SelectQuery
	}{
		{
			name: "simple",
			sql:  "SELECT event from events",
			want: &SelectQuery{
				Select:     []Expr{NewField("event")},
				SelectFrom: &JoinExpr{Table: NewField("events")},
			},
		},
		{
			name: "group by",
			sql:  "select event FROM events GROUP BY uuid",
			want: &SelectQuery{
				Select:     []Expr{NewField("event")},
				SelectFrom: &JoinExpr{Table: NewField("events")},
				GroupBy:    []Expr{NewField("uuid")},
			},
		},
		{
			name: "aggregation with alias and where",
			sql:  "SELECT count(DISTINCT person_id) AS total, properties.$browser FROM events e WHERE event = '$pageview' AND timestamp >= '2024-01-01'",
			want: &SelectQuery{
				Select: []Expr{
					&Alias{Alias: "total", Expr: &Call{Name: "count", Distinct: true, Args: []Expr{NewField("person_id")}}},
					NewField("properties", "$browser"),
				},
				SelectFrom: &JoinExpr{Table: NewField("events"), Alias: "e"},
				Where: &And{Exprs: []Expr{
					&CompareOperation{Op: OpEq, Left: NewField("event"), Right: &Constant{Value: "$pageview"}},
					&CompareOperation{Op: OpGtEq, Left: NewField("timestamp"), Right: &Constant{Value: "2024-01-01"}},
				}},
			},
		},
		{
			name: "star and empty call",
			sql:  "SELECT *, count() FROM events",
			want: &SelectQuery{
				Select:     []Expr{NewField("*"), &Call{Name: "count"}},
				SelectFrom: &JoinExpr{Table: NewField("events")},
			},
		},
		{
			name: "quoted identifiers",
			sql:  "SELECT `weird name`, \"select\" FROM events",
			want: &SelectQuery{
				Select:     []Expr{NewField("weird name"), NewField("select")},
				SelectFrom: &JoinExpr{Table: NewField("events")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseSelect(tt.sql)
			if err != nil {
				t.Fatalf("ParseSelect(%q) error = %v", tt.sql, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseSelect(%q) mismatch (-want +got):\n%s", tt.sql, diff)
			}
		})
	}
}

func TestParseExpr_Precedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sql  string
		want Expr
	}{
		{
			sql: "1 + 2 * 3",
			want: &ArithmeticOperation{Op: OpAdd,
				Left:  &Constant{Value: int64(1)},
				Right: &ArithmeticOperation{Op: OpMul, Left: &Constant{Value: int64(2)}, Right: &Constant{Value: int64(3)}},
			},
		},
		{
			sql: "a OR b AND c",
			want: &Or{Exprs: []Expr{
				NewField("a"),
				&And{Exprs: []Expr{NewField("b"), NewField("c")}},
			}},
		},
		{
			sql:  "NOT x LIKE '%a%'",
			want: &Not{Expr: &CompareOperation{Op: OpLike, Left: NewField("x"), Right: &Constant{Value: "%a%"}}},
		},
		{
			sql:  "x NOT LIKE 'b' ",
			want: &CompareOperation{Op: OpNotLike, Left: NewField("x"), Right: &Constant{Value: "b"}},
		},
		{
			sql:  "y <> -1.5",
			want: &CompareOperation{Op: OpNotEq, Left: NewField("y"), Right: &Constant{Value: -1.5}},
		},
		{
			sql:  "(TRUE) = null",
			want: &CompareOperation{Op: OpEq, Left: &Constant{Value: true}, Right: &Constant{Value: nil}},
		},
		{
			sql: "quantile(0.9, toFloat(properties.load_time))",
			want: &Call{Name: "quantile", Args: []Expr{
				&Constant{Value: 0.9},
				&Call{Name: "toFloat", Args: []Expr{NewField("properties", "load_time")}},
			}},
		},
		{
			sql:  "'it''s' ",
			want: &Constant{Value: "it's"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			t.Parallel()
			got, err := ParseExpr(tt.sql)
			if err != nil {
				t.Fatalf("ParseExpr(%q) error = %v", tt.sql, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseExpr(%q) mismatch (-want +got):\n%s", tt.sql, diff)
			}
		})
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sql      string
		isSelect bool
		pos      int
	}{
		{"trailing input", "SELECT a FROM events LIMIT 10", true, 21},
		{"missing select", "event FROM events", true, 0},
		{"unterminated string", "a = 'oops", false, 4},
		{"bad character", "a ; b", false, 2},
		{"unclosed paren", "(a + b", false, 6},
		{"group without by", "SELECT a FROM t GROUP a", true, 22},
		{"keyword as value", "a = FROM", false, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var err error
			if tt.isSelect {
				_, err = ParseSelect(tt.sql)
			} else {
				_, err = ParseExpr(tt.sql)
			}
			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("expected *SyntaxError, got %v", err)
			}
			if syntaxErr.Pos != tt.pos {
				t.Errorf("Pos = %d, want %d (%v)", syntaxErr.Pos, tt.pos, syntaxErr)
			}
		})
	}
}
