// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package trends

import (
	"fmt"

	"github.com/tomtom215/trailmark/internal/hogql"
)

// baseEventsQuery buckets events per day. Aggregation and breakdown columns
// are appended with a QueryModifier.
const baseEventsQuery = "SELECT toStartOfDay(timestamp) AS day FROM events GROUP BY day"

// Series is one line of a trends insight.
type Series struct {
	// Event is the event name. Empty means all events.
	Event        string `json:"event"`
	Math         string `json:"math,omitempty"`
	MathProperty string `json:"math_property,omitempty"`
}

// BuildEventsQuery composes the per-day query for one series, optionally
// broken down by an event property.
func BuildEventsQuery(series Series, breakdown string) (*hogql.SelectQuery, error) {
	agg := AggregationOperation{Math: series.Math, MathProperty: series.MathProperty}
	aggregation, err := agg.SelectAggregation()
	if err != nil {
		return nil, err
	}

	query, err := hogql.ParseSelect(baseEventsQuery)
	if err != nil {
		return nil, fmt.Errorf("parse base query: %w", err)
	}
	if series.Event != "" {
		query.Where = &hogql.CompareOperation{
			Op:    hogql.OpEq,
			Left:  hogql.NewField("event"),
			Right: &hogql.Constant{Value: series.Event},
		}
	}

	modifier := hogql.NewQueryModifier(query).
		AppendSelect(&hogql.Alias{Alias: "total", Expr: aggregation})
	if breakdown != "" {
		field := hogql.NewField("properties", breakdown)
		modifier.AppendSelect(field).AppendGroupBy(field)
	}
	return modifier.Build(), nil
}
