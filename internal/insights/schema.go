// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package insights

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/insight_viz_node.json
var insightVizNodeSchema string

var (
	compileOnce    sync.Once
	compiledSchema *gojsonschema.Schema
	compileErr     error
)

// SchemaViolation is one failed rule of an insight query.
type SchemaViolation struct {
	Path    string      `json:"path"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// QueryValidationError lists every rule a query broke.
type QueryValidationError struct {
	Violations []SchemaViolation
}

func (e *QueryValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Path+": "+v.Message)
	}
	return "invalid insight query: " + strings.Join(parts, "; ")
}

func schema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(insightVizNodeSchema))
	})
	return compiledSchema, compileErr
}

// ValidateQuery checks raw against the InsightVizNode schema. It returns a
// *QueryValidationError when the document is well-formed JSON that breaks
// the schema.
func ValidateQuery(raw json.RawMessage) error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("compile insight schema: %w", err)
	}

	doc := strings.TrimSpace(string(raw))
	if doc == "" {
		doc = "null"
	}
	res, err := s.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("validate insight query: %w", err)
	}
	if res.Valid() {
		return nil
	}

	violations := make([]SchemaViolation, 0, len(res.Errors()))
	for _, item := range res.Errors() {
		violations = append(violations, SchemaViolation{
			Path:    item.Field(),
			Message: item.Description(),
			Value:   item.Value(),
		})
	}
	return &QueryValidationError{Violations: violations}
}
