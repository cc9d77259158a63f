// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package hogql

import (
	"fmt"
	"strings"
)

// SyntaxError reports malformed input with the byte offset it was found at.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokQuotedIdent
	tokString
	tokInt
	tokFloat
	tokOp
	tokComma
	tokDot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

var keywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "GROUP": true, "BY": true,
	"AS": true, "AND": true, "OR": true, "NOT": true, "LIKE": true,
	"DISTINCT": true, "TRUE": true, "FALSE": true, "NULL": true,
	"NAN": true, "INF": true,
	// Reserved so they are never read as implicit aliases.
	"LIMIT": true, "OFFSET": true, "ORDER": true, "HAVING": true,
	"JOIN": true, "LEFT": true, "INNER": true, "ON": true, "UNION": true,
}

// isKeyword reports whether an identifier token is the given keyword.
func (t token) isKeyword(kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// tokenize splits input into tokens, always ending with tokEOF.
func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: input[start:i], pos: start})

		case isDigit(c):
			start := i
			kind := tokInt
			for i < len(input) && isDigit(input[i]) {
				i++
			}
			if i < len(input) && input[i] == '.' && i+1 < len(input) && isDigit(input[i+1]) {
				kind = tokFloat
				i++
				for i < len(input) && isDigit(input[i]) {
					i++
				}
			}
			if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
				j := i + 1
				if j < len(input) && (input[j] == '+' || input[j] == '-') {
					j++
				}
				if j < len(input) && isDigit(input[j]) {
					kind = tokFloat
					i = j
					for i < len(input) && isDigit(input[i]) {
						i++
					}
				}
			}
			if i < len(input) && isIdentStart(input[i]) {
				return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected %q after number", input[i])}
			}
			tokens = append(tokens, token{kind: kind, text: input[start:i], pos: start})

		case c == '\'':
			text, next, err := readQuoted(input, i, '\'')
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, text: text, pos: i})
			i = next

		case c == '`' || c == '"':
			text, next, err := readQuoted(input, i, c)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokQuotedIdent, text: text, pos: i})
			i = next

		case c == ',':
			tokens = append(tokens, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == '.':
			tokens = append(tokens, token{kind: tokDot, text: ".", pos: i})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++

		default:
			op, ok := readOperator(input, i)
			if !ok {
				return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
			}
			tokens = append(tokens, token{kind: tokOp, text: op, pos: i})
			i += len(op)
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(input)})
	return tokens, nil
}

var twoCharOps = []string{"<=", ">=", "!=", "<>", "=="}

func readOperator(input string, i int) (string, bool) {
	if i+1 < len(input) {
		pair := input[i : i+2]
		for _, op := range twoCharOps {
			if pair == op {
				return op, true
			}
		}
	}
	switch input[i] {
	case '=', '<', '>', '+', '-', '*', '/', '%':
		return input[i : i+1], true
	}
	return "", false
}

// readQuoted reads a quoted literal starting at input[start] == quote. A
// backslash escapes the next byte, and a doubled quote stands for one quote.
func readQuoted(input string, start int, quote byte) (string, int, error) {
	var sb strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		switch {
		case c == '\\' && i+1 < len(input):
			sb.WriteByte(unescape(input[i+1]))
			i += 2
		case c == quote && i+1 < len(input) && input[i+1] == quote:
			sb.WriteByte(quote)
			i += 2
		case c == quote:
			return sb.String(), i + 1, nil
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return "", 0, &SyntaxError{Pos: start, Msg: "unterminated quoted literal"}
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return c
	}
}
