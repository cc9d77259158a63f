// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

// Package trends builds the HogQL queries behind trends insights.
package trends

import (
	"errors"
	"fmt"

	"github.com/tomtom215/trailmark/internal/hogql"
)

// Math types accepted on a series.
const (
	MathTotal         = "total"
	MathDAU           = "dau"
	MathUniqueSession = "unique_session"
	MathWeeklyActive  = "weekly_active"
	MathMonthlyActive = "monthly_active"
	MathSum           = "sum"
	MathAvg           = "avg"
	MathMin           = "min"
	MathMax           = "max"
	MathMedian        = "median"
	MathP90           = "p90"
	MathP95           = "p95"
	MathP99           = "p99"
)

var (
	// ErrUnknownMath is returned for a math type this package cannot aggregate.
	ErrUnknownMath = errors.New("unknown math type")
	// ErrMissingMathProperty is returned for property math without a property.
	ErrMissingMathProperty = errors.New("math property is required")
)

var propertyFuncs = map[string]string{
	MathSum: "sum",
	MathAvg: "avg",
	MathMin: "min",
	MathMax: "max",
}

var quantiles = map[string]float64{
	MathMedian: 0.5,
	MathP90:    0.9,
	MathP95:    0.95,
	MathP99:    0.99,
}

// AggregationOperation turns a series' math settings into the aggregate
// expression of its select list.
type AggregationOperation struct {
	Math         string
	MathProperty string
}

// RequiresQueryOrchestration reports whether the math needs a wrapping query
// over a sliding window instead of a single aggregate.
func (a AggregationOperation) RequiresQueryOrchestration() bool {
	return a.Math == MathWeeklyActive || a.Math == MathMonthlyActive
}

// IsPropertyMath reports whether the math aggregates a numeric property.
func (a AggregationOperation) IsPropertyMath() bool {
	_, fn := propertyFuncs[a.Math]
	_, q := quantiles[a.Math]
	return fn || q
}

// SelectAggregation returns the aggregate expression for the math type. An
// empty math counts events.
func (a AggregationOperation) SelectAggregation() (hogql.Expr, error) {
	switch a.Math {
	case "", MathTotal:
		return &hogql.Call{Name: "count"}, nil
	case MathDAU, MathWeeklyActive, MathMonthlyActive:
		return &hogql.Call{Name: "count", Distinct: true, Args: []hogql.Expr{hogql.NewField("person_id")}}, nil
	case MathUniqueSession:
		return &hogql.Call{Name: "count", Distinct: true, Args: []hogql.Expr{hogql.NewField("properties", "$session_id")}}, nil
	}

	if !a.IsPropertyMath() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMath, a.Math)
	}
	if a.MathProperty == "" {
		return nil, fmt.Errorf("%w for math %q", ErrMissingMathProperty, a.Math)
	}

	value := &hogql.Call{Name: "toFloat", Args: []hogql.Expr{hogql.NewField("properties", a.MathProperty)}}
	if fn, ok := propertyFuncs[a.Math]; ok {
		return &hogql.Call{Name: fn, Args: []hogql.Expr{value}}, nil
	}
	return &hogql.Call{Name: "quantile", Args: []hogql.Expr{&hogql.Constant{Value: quantiles[a.Math]}, value}}, nil
}
