// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

// Package flags evaluates feature flags locally and gates features on them.
//
// Definitions come from a Source (a YAML file, a literal list, or a remote
// endpoint guarded by a circuit breaker and backed by a durable cache). A
// Poller refreshes the Evaluator, and Gate exposes the product checks built
// on top of it. Evaluation never calls out to the network and never emits
// events; results are only counted in Prometheus.
package flags

import "context"

// Property filter operators.
const (
	OperatorExact     = "exact"
	OperatorIsNot     = "is_not"
	OperatorIContains = "icontains"
	OperatorRegex     = "regex"
	OperatorIsSet     = "is_set"
)

// Property filter types.
const (
	PropertyTypePerson = "person"
	PropertyTypeGroup  = "group"
)

// FlagDefinition is one flag as served by the definitions endpoint.
type FlagDefinition struct {
	Key               string  `json:"key" yaml:"key"`
	Active            bool    `json:"active" yaml:"active"`
	RolloutPercentage *int    `json:"rollout_percentage,omitempty" yaml:"rollout_percentage,omitempty"`
	Filters           Filters `json:"filters" yaml:"filters"`
}

// Filters holds the release conditions of a flag.
type Filters struct {
	// AggregationGroupType makes the flag roll out per group (e.g.
	// "organization") instead of per person.
	AggregationGroupType string      `json:"aggregation_group_type,omitempty" yaml:"aggregation_group_type,omitempty"`
	Groups               []Condition `json:"groups" yaml:"groups"`
}

// Condition matches when all of its properties match and the identifier
// falls inside the rollout.
type Condition struct {
	Properties        []PropertyFilter `json:"properties" yaml:"properties"`
	RolloutPercentage *int             `json:"rollout_percentage,omitempty" yaml:"rollout_percentage,omitempty"`
}

// PropertyFilter compares one person or group property.
type PropertyFilter struct {
	Key      string      `json:"key" yaml:"key"`
	Value    interface{} `json:"value" yaml:"value"`
	Operator string      `json:"operator,omitempty" yaml:"operator,omitempty"`
	Type     string      `json:"type,omitempty" yaml:"type,omitempty"`
}

// Source loads the full set of flag definitions.
type Source interface {
	Load(ctx context.Context) ([]FlagDefinition, error)
}

// definitionsPayload is the document shape shared by the YAML file, the
// remote endpoint and the durable cache.
type definitionsPayload struct {
	Flags []FlagDefinition `json:"flags" yaml:"flags"`
}
