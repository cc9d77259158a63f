// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package insights

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/trailmark/internal/hogql"
	"github.com/tomtom215/trailmark/internal/trends"
)

// ErrUncompilable is returned for a trends query with a series or breakdown
// that has no single-query HogQL form.
var ErrUncompilable = errors.New("trends query cannot be compiled")

type vizNode struct {
	Kind   string      `json:"kind"`
	Source *sourceNode `json:"source"`
}

type sourceNode struct {
	Kind            string         `json:"kind"`
	Series          []seriesNode   `json:"series"`
	BreakdownFilter *breakdownNode `json:"breakdownFilter"`
}

type seriesNode struct {
	Kind         string  `json:"kind"`
	Event        *string `json:"event"`
	Math         string  `json:"math"`
	MathProperty string  `json:"math_property"`
}

type breakdownNode struct {
	Breakdown     interface{} `json:"breakdown"`
	BreakdownType *string     `json:"breakdown_type"`
}

// CompileTrends prints one HogQL select per series of a TrendsQuery. Other
// query kinds compile to nothing.
func CompileTrends(query json.RawMessage) ([]string, error) {
	if len(query) == 0 {
		return nil, nil
	}
	var node vizNode
	if err := json.Unmarshal(query, &node); err != nil {
		return nil, fmt.Errorf("decode query: %w", err)
	}
	if node.Kind != "InsightVizNode" || node.Source == nil || node.Source.Kind != "TrendsQuery" {
		return nil, nil
	}

	breakdown, err := eventBreakdown(node.Source.BreakdownFilter)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(node.Source.Series))
	for i, s := range node.Source.Series {
		if s.Kind != "EventsNode" {
			return nil, fmt.Errorf("%w: series[%d] is %s", ErrUncompilable, i, s.Kind)
		}
		series := trends.Series{Math: s.Math, MathProperty: s.MathProperty}
		if s.Event != nil {
			series.Event = *s.Event
		}
		q, err := trends.BuildEventsQuery(series, breakdown)
		if err != nil {
			return nil, fmt.Errorf("series[%d]: %w", i, err)
		}
		out = append(out, hogql.Print(q))
	}
	return out, nil
}

// eventBreakdown returns the event property to break down by. Only a single
// event property is supported.
func eventBreakdown(bf *breakdownNode) (string, error) {
	if bf == nil || bf.Breakdown == nil {
		return "", nil
	}
	if bf.BreakdownType != nil && *bf.BreakdownType != "" && *bf.BreakdownType != "event" {
		return "", fmt.Errorf("%w: %s breakdown", ErrUncompilable, *bf.BreakdownType)
	}
	name, ok := bf.Breakdown.(string)
	if !ok {
		return "", fmt.Errorf("%w: breakdown %v is not a property name", ErrUncompilable, bf.Breakdown)
	}
	return name, nil
}
