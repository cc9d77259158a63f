// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package legacy

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilterToQuery_Trends(t *testing.T) {
	t.Parallel()

	filters := map[string]interface{}{
		"insight":  "TRENDS",
		"interval": "week",
		"events": []interface{}{
			map[string]interface{}{"id": "$pageview", "name": "$pageview", "order": float64(1), "math": "dau"},
		},
		"actions": []interface{}{
			map[string]interface{}{"id": "12", "name": "Signed up", "order": float64(0)},
		},
		"date_from":            "-7d",
		"breakdown":            "$browser",
		"breakdown_type":       "event",
		"filter_test_accounts": true,
		"display":              "ActionsLineGraph",
	}

	got, err := FilterToQuery(filters)
	if err != nil {
		t.Fatalf("FilterToQuery() error = %v", err)
	}

	want := map[string]interface{}{
		"kind": "TrendsQuery",
		"series": []map[string]interface{}{
			{"kind": "ActionsNode", "id": int64(12), "name": "Signed up"},
			{"kind": "EventsNode", "event": "$pageview", "name": "$pageview", "math": "dau"},
		},
		"dateRange":          map[string]interface{}{"date_from": "-7d"},
		"interval":           "week",
		"breakdownFilter":    map[string]interface{}{"breakdown": "$browser", "breakdown_type": "event"},
		"filterTestAccounts": true,
		"trendsFilter":       map[string]interface{}{"display": "ActionsLineGraph"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FilterToQuery() mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterToQuery_Retention(t *testing.T) {
	t.Parallel()

	got, err := FilterToQuery(map[string]interface{}{
		"insight":         "retention",
		"period":          "Week",
		"total_intervals": float64(8),
		"events":          []interface{}{map[string]interface{}{"id": "ignored"}},
	})
	if err != nil {
		t.Fatalf("FilterToQuery() error = %v", err)
	}

	if got["kind"] != "RetentionQuery" {
		t.Errorf("kind = %v, want RetentionQuery", got["kind"])
	}
	if _, ok := got["series"]; ok {
		t.Error("retention queries must not carry series")
	}
	want := map[string]interface{}{"period": "Week", "totalIntervals": float64(8)}
	if diff := cmp.Diff(want, got["retentionFilter"]); diff != "" {
		t.Errorf("retentionFilter mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterToQuery_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		filters map[string]interface{}
		unknown bool
	}{
		{"missing insight", map[string]interface{}{}, true},
		{"unsupported insight", map[string]interface{}{"insight": "SQL"}, true},
		{"bad action id", map[string]interface{}{
			"insight": "TRENDS",
			"actions": []interface{}{map[string]interface{}{"id": "abc"}},
		}, false},
		{"event not an object", map[string]interface{}{
			"insight": "FUNNELS",
			"events":  []interface{}{"$pageview"},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := FilterToQuery(tt.filters)
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrUnknownInsight) != tt.unknown {
				t.Errorf("errors.Is(err, ErrUnknownInsight) = %v, want %v (err: %v)", !tt.unknown, tt.unknown, err)
			}
		})
	}
}

func TestInsightVizNode(t *testing.T) {
	t.Parallel()

	node := InsightVizNode(map[string]interface{}{"kind": "PathsQuery"})
	if node["kind"] != "InsightVizNode" {
		t.Errorf("kind = %v, want InsightVizNode", node["kind"])
	}
	if src, ok := node["source"].(map[string]interface{}); !ok || src["kind"] != "PathsQuery" {
		t.Errorf("unexpected source %v", node["source"])
	}
}
