// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package insights

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/trailmark/internal/hogql"
)

func TestCompileTrends(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "no query",
			query: "",
			want:  nil,
		},
		{
			name:  "not a trends query",
			query: `{"kind":"InsightVizNode","source":{"kind":"RetentionQuery"}}`,
			want:  nil,
		},
		{
			name:  "one series",
			query: `{"kind":"InsightVizNode","source":{"kind":"TrendsQuery","series":[{"kind":"EventsNode","event":"$pageview"}]}}`,
			want:  []string{"SELECT toStartOfDay(timestamp) AS day, count() AS total FROM events WHERE event = '$pageview' GROUP BY day"},
		},
		{
			name: "all events and dau with event breakdown",
			query: `{"kind":"InsightVizNode","source":{"kind":"TrendsQuery",
				"series":[{"kind":"EventsNode","event":null},{"kind":"EventsNode","event":"signup","math":"dau"}],
				"breakdownFilter":{"breakdown":"$browser","breakdown_type":"event"}}}`,
			want: []string{
				"SELECT toStartOfDay(timestamp) AS day, count() AS total, properties.$browser FROM events GROUP BY day, properties.$browser",
				"SELECT toStartOfDay(timestamp) AS day, count(DISTINCT person_id) AS total, properties.$browser " +
					"FROM events WHERE event = 'signup' GROUP BY day, properties.$browser",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CompileTrends(json.RawMessage(tt.query))
			if err != nil {
				t.Fatalf("CompileTrends() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CompileTrends() mismatch (-want +got):\n%s", diff)
			}
			for _, q := range got {
				if _, err := hogql.ParseSelect(q); err != nil {
					t.Errorf("printed query %q does not parse: %v", q, err)
				}
			}
		})
	}
}

func TestCompileTrends_Uncompilable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
	}{
		{"actions series", `{"kind":"InsightVizNode","source":{"kind":"TrendsQuery","series":[{"kind":"ActionsNode","id":4}]}}`},
		{"person breakdown", `{"kind":"InsightVizNode","source":{"kind":"TrendsQuery","series":[{"kind":"EventsNode","event":"a"}],"breakdownFilter":{"breakdown":"email","breakdown_type":"person"}}}`},
		{"cohort list breakdown", `{"kind":"InsightVizNode","source":{"kind":"TrendsQuery","series":[{"kind":"EventsNode","event":"a"}],"breakdownFilter":{"breakdown":[1,2]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := CompileTrends(json.RawMessage(tt.query))
			if !errors.Is(err, ErrUncompilable) {
				t.Errorf("CompileTrends() error = %v, want ErrUncompilable", err)
			}
		})
	}
}

func TestCompileTrends_BadMath(t *testing.T) {
	t.Parallel()

	query := `{"kind":"InsightVizNode","source":{"kind":"TrendsQuery","series":[{"kind":"EventsNode","event":"a","math":"sum"}]}}`
	if _, err := CompileTrends(json.RawMessage(query)); err == nil {
		t.Fatal("expected error for sum without math_property")
	}
}
