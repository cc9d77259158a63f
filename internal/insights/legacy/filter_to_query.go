// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

// Package legacy converts filter-based insight definitions into query nodes.
//
// A legacy insight stores a flat filters object:
//
//	{"insight": "TRENDS", "events": [{"id": "$pageview", "math": "dau"}], "interval": "day"}
//
// The converted form is a query source node wrapped in an InsightVizNode:
//
//	{"kind": "InsightVizNode", "source": {"kind": "TrendsQuery", "series": [...], "interval": "day"}}
package legacy

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownInsight is returned for a missing or unsupported insight type.
var ErrUnknownInsight = errors.New("unknown insight type")

// MigratedAtKey marks filters whose insight was converted by the backfill.
const MigratedAtKey = "migrated_at"

var sourceKinds = map[string]string{
	"TRENDS":     "TrendsQuery",
	"FUNNELS":    "FunnelsQuery",
	"RETENTION":  "RetentionQuery",
	"PATHS":      "PathsQuery",
	"STICKINESS": "StickinessQuery",
	"LIFECYCLE":  "LifecycleQuery",
}

// InsightVizNode wraps a query source node.
func InsightVizNode(source map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"kind":   "InsightVizNode",
		"source": source,
	}
}

// FilterToQuery converts legacy filters into a query source node.
func FilterToQuery(filters map[string]interface{}) (map[string]interface{}, error) {
	insight := strings.ToUpper(stringValue(filters["insight"]))
	kind, ok := sourceKinds[insight]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInsight, filters["insight"])
	}

	source := map[string]interface{}{"kind": kind}

	switch insight {
	case "TRENDS", "FUNNELS", "STICKINESS", "LIFECYCLE":
		series, err := seriesFromFilters(filters)
		if err != nil {
			return nil, err
		}
		source["series"] = series
	}

	if dr := dateRange(filters); dr != nil {
		source["dateRange"] = dr
	}

	switch insight {
	case "TRENDS", "STICKINESS", "LIFECYCLE":
		if v := stringValue(filters["interval"]); v != "" {
			source["interval"] = v
		}
	}

	if insight == "TRENDS" || insight == "FUNNELS" {
		if bf := breakdownFilter(filters); bf != nil {
			source["breakdownFilter"] = bf
		}
	}

	if v, ok := filters["filter_test_accounts"].(bool); ok {
		source["filterTestAccounts"] = v
	}
	if v, ok := filters["properties"]; ok && v != nil {
		source["properties"] = v
	}
	if v, ok := toFloat(filters["sampling_factor"]); ok {
		source["samplingFactor"] = v
	}

	if insightFilter := insightSpecificFilter(insight, filters); len(insightFilter) > 0 {
		source[lowerFirst(kind[:len(kind)-len("Query")])+"Filter"] = insightFilter
	}

	return source, nil
}

type entity struct {
	order int
	node  map[string]interface{}
}

// seriesFromFilters merges "events" and "actions" ordered by their "order" key.
func seriesFromFilters(filters map[string]interface{}) ([]map[string]interface{}, error) {
	var entities []entity

	for i, raw := range listValue(filters["events"]) {
		e, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("events[%d] is not an object", i)
		}
		node := map[string]interface{}{"kind": "EventsNode"}
		if id := e["id"]; id != nil {
			node["event"] = stringValue(id)
		} else {
			node["event"] = nil
		}
		if name := stringValue(e["name"]); name != "" {
			node["name"] = name
		}
		copyEntityMath(e, node)
		entities = append(entities, entity{order: orderOf(e, i), node: node})
	}

	offset := len(entities)
	for i, raw := range listValue(filters["actions"]) {
		e, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("actions[%d] is not an object", i)
		}
		id, err := strconv.ParseInt(stringValue(e["id"]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("actions[%d] has non-numeric id %v", i, e["id"])
		}
		node := map[string]interface{}{"kind": "ActionsNode", "id": id}
		if name := stringValue(e["name"]); name != "" {
			node["name"] = name
		}
		copyEntityMath(e, node)
		entities = append(entities, entity{order: orderOf(e, offset+i), node: node})
	}

	sort.SliceStable(entities, func(a, b int) bool { return entities[a].order < entities[b].order })

	series := make([]map[string]interface{}, len(entities))
	for i, e := range entities {
		series[i] = e.node
	}
	return series, nil
}

func copyEntityMath(src, dst map[string]interface{}) {
	if v := stringValue(src["math"]); v != "" {
		dst["math"] = v
	}
	if v := stringValue(src["math_property"]); v != "" {
		dst["math_property"] = v
	}
	if v := stringValue(src["custom_name"]); v != "" {
		dst["custom_name"] = v
	}
	if v, ok := src["properties"]; ok && v != nil {
		dst["properties"] = v
	}
}

func orderOf(e map[string]interface{}, fallback int) int {
	if f, ok := toFloat(e["order"]); ok {
		return int(f)
	}
	return fallback
}

func dateRange(filters map[string]interface{}) map[string]interface{} {
	dr := map[string]interface{}{}
	if v := stringValue(filters["date_from"]); v != "" {
		dr["date_from"] = v
	}
	if v := stringValue(filters["date_to"]); v != "" {
		dr["date_to"] = v
	}
	if len(dr) == 0 {
		return nil
	}
	return dr
}

func breakdownFilter(filters map[string]interface{}) map[string]interface{} {
	bd, ok := filters["breakdown"]
	if !ok || bd == nil || bd == "" {
		return nil
	}
	bf := map[string]interface{}{"breakdown": bd}
	if v := stringValue(filters["breakdown_type"]); v != "" {
		bf["breakdown_type"] = v
	}
	return bf
}

// insightSpecificFilter maps the per-insight display settings.
func insightSpecificFilter(insight string, filters map[string]interface{}) map[string]interface{} {
	var keys map[string]string
	switch insight {
	case "TRENDS":
		keys = map[string]string{"display": "display", "formula": "formula", "smoothing_intervals": "smoothingIntervals"}
	case "FUNNELS":
		keys = map[string]string{
			"funnel_viz_type":             "funnelVizType",
			"funnel_window_interval":      "funnelWindowInterval",
			"funnel_window_interval_unit": "funnelWindowIntervalUnit",
			"funnel_order_type":           "funnelOrderType",
		}
	case "RETENTION":
		keys = map[string]string{
			"retention_type":   "retentionType",
			"total_intervals":  "totalIntervals",
			"period":           "period",
			"target_entity":    "targetEntity",
			"returning_entity": "returningEntity",
		}
	case "PATHS":
		keys = map[string]string{
			"include_event_types": "includeEventTypes",
			"start_point":         "startPoint",
			"end_point":           "endPoint",
			"step_limit":          "stepLimit",
		}
	case "STICKINESS", "LIFECYCLE":
		keys = map[string]string{"display": "display"}
	}

	out := map[string]interface{}{}
	for from, to := range keys {
		if v, ok := filters[from]; ok && v != nil {
			out[to] = v
		}
	}
	return out
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

func listValue(v interface{}) []interface{} {
	l, _ := v.([]interface{})
	return l
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
