// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package hogql

// QueryModifier queues additions to a parsed query and applies them in place
// on Build.
//
//	q, _ := hogql.ParseSelect("SELECT event FROM events")
//	m := hogql.NewQueryModifier(q)
//	m.AppendSelect(hogql.NewField("uuid"))
//	m.AppendGroupBy(hogql.NewField("event"))
//	m.Build() // q now selects event, uuid and groups by event
type QueryModifier struct {
	query      *SelectQuery
	selects    []Expr
	groupBys   []Expr
	selectFrom *JoinExpr
}

// NewQueryModifier wraps q. q itself is mutated by Build.
func NewQueryModifier(q *SelectQuery) *QueryModifier {
	return &QueryModifier{query: q}
}

// AppendSelect queues an expression for the select list.
func (m *QueryModifier) AppendSelect(e Expr) *QueryModifier {
	m.selects = append(m.selects, e)
	return m
}

// AppendGroupBy queues a GROUP BY expression. The query need not have a
// GROUP BY clause yet.
func (m *QueryModifier) AppendGroupBy(e Expr) *QueryModifier {
	m.groupBys = append(m.groupBys, e)
	return m
}

// ReplaceSelectFrom queues a new FROM target.
func (m *QueryModifier) ReplaceSelectFrom(join *JoinExpr) *QueryModifier {
	m.selectFrom = join
	return m
}

// Build applies queued changes to the wrapped query and returns it. The queue
// is cleared, so a second Build without new calls changes nothing.
func (m *QueryModifier) Build() *SelectQuery {
	if len(m.selects) > 0 {
		m.query.Select = append(m.query.Select, m.selects...)
	}
	if len(m.groupBys) > 0 {
		m.query.GroupBy = append(m.query.GroupBy, m.groupBys...)
	}
	if m.selectFrom != nil {
		m.query.SelectFrom = m.selectFrom
	}
	m.selects = nil
	m.groupBys = nil
	m.selectFrom = nil
	return m.query
}
