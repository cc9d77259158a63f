// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package flags

import (
	"crypto/sha1" // #nosec G505 -- rollout bucketing, not a security boundary
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/tomtom215/trailmark/internal/metrics"
)

// ErrNotLoaded is returned while no definitions have been loaded yet.
var ErrNotLoaded = errors.New("flag definitions not loaded")

// longScale is the largest value of the 15 hex digit hash prefix.
const longScale = float64(0xFFFFFFFFFFFFFFF)

// EvalOptions carries the properties that conditions match against.
type EvalOptions struct {
	PersonProperties map[string]interface{}
	// Groups maps a group type to the group key, e.g. "organization" -> id.
	Groups          map[string]string
	GroupProperties map[string]map[string]interface{}
}

// Evaluator evaluates flags against an in-memory definition set.
// It is safe for concurrent use.
type Evaluator struct {
	mu     sync.RWMutex
	flags  map[string]FlagDefinition
	loaded bool
}

// NewEvaluator creates an evaluator. It reports ErrNotLoaded until
// SetDefinitions is called.
func NewEvaluator() *Evaluator {
	return &Evaluator{flags: make(map[string]FlagDefinition)}
}

// SetDefinitions atomically replaces the definition set.
func (e *Evaluator) SetDefinitions(defs []FlagDefinition) {
	flags := make(map[string]FlagDefinition, len(defs))
	for _, d := range defs {
		flags[d.Key] = d
	}

	e.mu.Lock()
	e.flags = flags
	e.loaded = true
	e.mu.Unlock()

	metrics.FlagDefinitionsLoaded.Set(float64(len(flags)))
}

// IsEnabled evaluates flag key for distinctID. Unknown and inactive flags
// are disabled.
func (e *Evaluator) IsEnabled(key, distinctID string, opts EvalOptions) (bool, error) {
	e.mu.RLock()
	def, ok := e.flags[key]
	loaded := e.loaded
	e.mu.RUnlock()

	if !loaded {
		return false, ErrNotLoaded
	}
	if !ok || !def.Active {
		metrics.RecordFlagEvaluation(key, false)
		return false, nil
	}

	enabled, err := evaluate(def, distinctID, opts)
	if err != nil {
		return false, fmt.Errorf("evaluate flag %s: %w", key, err)
	}
	metrics.RecordFlagEvaluation(key, enabled)
	return enabled, nil
}

func evaluate(def FlagDefinition, distinctID string, opts EvalOptions) (bool, error) {
	identifier := distinctID
	properties := opts.PersonProperties

	if groupType := def.Filters.AggregationGroupType; groupType != "" {
		groupKey, ok := opts.Groups[groupType]
		if !ok || groupKey == "" {
			return false, nil
		}
		identifier = groupKey
		properties = opts.GroupProperties[groupType]
	}

	conditions := def.Filters.Groups
	if len(conditions) == 0 {
		conditions = []Condition{{RolloutPercentage: def.RolloutPercentage}}
	}

	for _, cond := range conditions {
		matched, err := matchCondition(def.Key, identifier, cond, properties)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

func matchCondition(key, identifier string, cond Condition, properties map[string]interface{}) (bool, error) {
	for _, filter := range cond.Properties {
		ok, err := matchProperty(filter, properties)
		if err != nil || !ok {
			return false, err
		}
	}
	return inRollout(key, identifier, cond.RolloutPercentage), nil
}

func inRollout(key, identifier string, pct *int) bool {
	if pct == nil {
		return true
	}
	return hash(key, identifier) < float64(*pct)/100
}

// hash maps key and identifier to a stable value in [0, 1].
func hash(key, identifier string) float64 {
	sum := sha1.Sum([]byte(key + "." + identifier)) // #nosec G401
	prefix := hex.EncodeToString(sum[:])[:15]
	n, err := strconv.ParseUint(prefix, 16, 64)
	if err != nil {
		return 1
	}
	return float64(n) / longScale
}

func matchProperty(filter PropertyFilter, properties map[string]interface{}) (bool, error) {
	operator := filter.Operator
	if operator == "" {
		operator = OperatorExact
	}

	value, present := properties[filter.Key]
	if operator == OperatorIsSet {
		return present, nil
	}
	if !present {
		return false, nil
	}

	actual := stringify(value)
	switch operator {
	case OperatorExact:
		return matchesAny(filter.Value, actual), nil
	case OperatorIsNot:
		return !matchesAny(filter.Value, actual), nil
	case OperatorIContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(stringify(filter.Value))), nil
	case OperatorRegex:
		re, err := regexp.Compile(stringify(filter.Value))
		if err != nil {
			return false, fmt.Errorf("invalid regex for property %s: %w", filter.Key, err)
		}
		return re.MatchString(actual), nil
	default:
		return false, fmt.Errorf("unsupported operator %q", operator)
	}
}

// matchesAny compares case-insensitively against a scalar or a list.
func matchesAny(expected interface{}, actual string) bool {
	if list, ok := expected.([]interface{}); ok {
		for _, v := range list {
			if strings.EqualFold(stringify(v), actual) {
				return true
			}
		}
		return false
	}
	return strings.EqualFold(stringify(expected), actual)
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
