// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package flags

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileSource reads definitions from a YAML document:
//
//	flags:
//	  - key: hogql-insights
//	    active: true
//	    filters:
//	      groups:
//	        - properties:
//	            - key: email
//	              value: "@example.com"
//	              operator: icontains
//	          rollout_percentage: 50
type FileSource struct {
	Path string
}

// Load reads and parses the file on every call so edits are picked up by
// the poller.
func (s FileSource) Load(_ context.Context) ([]FlagDefinition, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read flags file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML parses a flags YAML document.
func ParseYAML(data []byte) ([]FlagDefinition, error) {
	var payload definitionsPayload
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse flags yaml: %w", err)
	}
	for i, def := range payload.Flags {
		if def.Key == "" {
			return nil, fmt.Errorf("flag %d: key is required", i)
		}
	}
	return payload.Flags, nil
}

// StaticSource serves a fixed definition list.
type StaticSource []FlagDefinition

// Load returns the list unchanged.
func (s StaticSource) Load(_ context.Context) ([]FlagDefinition, error) {
	return s, nil
}
