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

// Binding strength used to decide where parentheses are needed.
const (
	precOr = iota + 1
	precAnd
	precNot
	precCompare
	precAdditive
	precMultiplicative
	precAtom
)

// Print renders a node as canonical text: uppercase keywords, single-quoted
// strings, and identifiers backquoted only when they need it. Printing then
// parsing yields an equal tree.
func Print(e Expr) string {
	var sb strings.Builder
	printExpr(&sb, e, 0)
	return sb.String()
}

func precedence(e Expr) int {
	switch n := e.(type) {
	case *Or:
		return precOr
	case *And:
		return precAnd
	case *Not:
		return precNot
	case *CompareOperation:
		return precCompare
	case *ArithmeticOperation:
		if n.Op == OpAdd || n.Op == OpSub {
			return precAdditive
		}
		return precMultiplicative
	case *Constant:
		// Negative numbers must be wrapped as the right operand of "-".
		switch v := n.Value.(type) {
		case int64:
			if v < 0 {
				return precAdditive
			}
		case float64:
			if v < 0 {
				return precAdditive
			}
		}
	}
	return precAtom
}

func printExpr(sb *strings.Builder, e Expr, minPrec int) {
	if e == nil {
		sb.WriteString("NULL")
		return
	}
	wrap := precedence(e) < minPrec
	if wrap {
		sb.WriteByte('(')
	}

	switch n := e.(type) {
	case *SelectQuery:
		printSelect(sb, n)

	case *JoinExpr:
		printExpr(sb, n.Table, precAtom)
		if n.Alias != "" {
			sb.WriteString(" AS ")
			sb.WriteString(escapeIdentifier(n.Alias))
		}

	case *Field:
		for i, part := range n.Chain {
			if i > 0 {
				sb.WriteByte('.')
			}
			if part == "*" {
				sb.WriteByte('*')
				continue
			}
			sb.WriteString(escapeIdentifier(part))
		}

	case *Constant:
		sb.WriteString(printConstant(n.Value))

	case *Call:
		sb.WriteString(n.Name)
		sb.WriteByte('(')
		if n.Distinct {
			sb.WriteString("DISTINCT ")
		}
		for i, arg := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			printExpr(sb, arg, 0)
		}
		sb.WriteByte(')')

	case *Alias:
		printExpr(sb, n.Expr, 0)
		sb.WriteString(" AS ")
		sb.WriteString(escapeIdentifier(n.Alias))

	case *CompareOperation:
		printExpr(sb, n.Left, precAdditive)
		sb.WriteByte(' ')
		sb.WriteString(string(n.Op))
		sb.WriteByte(' ')
		printExpr(sb, n.Right, precAdditive)

	case *And:
		printJoined(sb, n.Exprs, " AND ", precAnd+1)

	case *Or:
		printJoined(sb, n.Exprs, " OR ", precOr+1)

	case *Not:
		sb.WriteString("NOT ")
		printExpr(sb, n.Expr, precNot)

	case *ArithmeticOperation:
		prec := precedence(n)
		printExpr(sb, n.Left, prec)
		sb.WriteByte(' ')
		sb.WriteString(string(n.Op))
		sb.WriteByte(' ')
		printExpr(sb, n.Right, prec+1)

	default:
		fmt.Fprintf(sb, "<unknown %T>", e)
	}

	if wrap {
		sb.WriteByte(')')
	}
}

func printJoined(sb *strings.Builder, exprs []Expr, sep string, minPrec int) {
	for i, e := range exprs {
		if i > 0 {
			sb.WriteString(sep)
		}
		printExpr(sb, e, minPrec)
	}
}

func printSelect(sb *strings.Builder, q *SelectQuery) {
	sb.WriteString("SELECT ")
	for i, e := range q.Select {
		if i > 0 {
			sb.WriteString(", ")
		}
		printExpr(sb, e, 0)
	}
	if q.SelectFrom != nil {
		sb.WriteString(" FROM ")
		printExpr(sb, q.SelectFrom, 0)
	}
	if q.Where != nil {
		sb.WriteString(" WHERE ")
		printExpr(sb, q.Where, 0)
	}
	if len(q.GroupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		for i, e := range q.GroupBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			printExpr(sb, e, 0)
		}
	}
}

func printConstant(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		return quoteString(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		switch {
		case math.IsNaN(t):
			return "nan"
		case math.IsInf(t, 1):
			return "inf"
		case math.IsInf(t, -1):
			return "-inf"
		}
		s := strconv.FormatFloat(t, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	default:
		return quoteString(fmt.Sprint(t))
	}
}

var stringEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\t", `\t`, "\r", `\r`)

func quoteString(s string) string {
	return "'" + stringEscaper.Replace(s) + "'"
}

var identifierEscaper = strings.NewReplacer(`\`, `\\`, "`", "\\`")

// escapeIdentifier backquotes identifiers that are keywords or contain
// characters outside [A-Za-z0-9_$].
func escapeIdentifier(name string) string {
	if isPlainIdentifier(name) {
		return name
	}
	return "`" + identifierEscaper.Replace(name) + "`"
}

func isPlainIdentifier(name string) bool {
	if name == "" || !isIdentStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isIdentPart(name[i]) {
			return false
		}
	}
	return !keywords[strings.ToUpper(name)]
}
