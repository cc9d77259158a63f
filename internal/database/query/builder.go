// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

// Package query builds parameterized SQL WHERE clauses for the database package.
package query

import (
	"fmt"
	"strings"
	"time"
)

// EmptyCondition is returned by Build when no clause was added.
const EmptyCondition = "1=1"

// WhereBuilder accumulates SQL conditions joined with AND.
//
//	wb := query.NewWhereBuilder()
//	wb.AddClause("team_id = ?", teamID)
//	wb.AddTimeRange("created_at", after, before)
//	where, args := wb.Build()
//	// team_id = ? AND created_at > ? AND created_at < ?
//
// Column names are interpolated verbatim and must never come from user input.
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates an empty builder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []interface{}{},
	}
}

// AddClause adds a raw condition with its placeholder arguments.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddTimeRange adds exclusive bounds on column. Nil bounds are skipped.
func (wb *WhereBuilder) AddTimeRange(column string, after, before *time.Time) *WhereBuilder {
	if after != nil {
		wb.AddClause(column+" > ?", *after)
	}
	if before != nil {
		wb.AddClause(column+" < ?", *before)
	}
	return wb
}

// AddIn adds "column IN (?, ...)". An empty list adds nothing.
func AddIn[T any](wb *WhereBuilder, column string, values []T) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	return wb
}

// Build returns the joined condition (without "WHERE") and its arguments.
// An empty builder yields EmptyCondition with no arguments.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return EmptyCondition, []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix returns the condition prefixed with "WHERE ".
func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	where, args := wb.Build()
	return "WHERE " + where, args
}

// Count returns the number of clauses.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty reports whether no clause was added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}
