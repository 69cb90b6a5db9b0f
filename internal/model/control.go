package model

import "strings"

// PointWeight is the number of points a control is worth in the weighted score
type PointWeight int

const (
	WeightHigh   PointWeight = 5
	WeightMedium PointWeight = 3
	WeightLow    PointWeight = 1
	WeightNone   PointWeight = 0
)

// WeightTiers lists the tiers reported in score breakdowns, highest first
var WeightTiers = []PointWeight{WeightHigh, WeightMedium, WeightLow, WeightNone}

// Priority is the remediation priority label attached to a control
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// priorityByWeight is the business rule mapping point weights to priorities.
// Edit this table, not the lookup.
var priorityByWeight = map[PointWeight]Priority{
	WeightHigh:   PriorityHigh,
	WeightMedium: PriorityHigh,
	WeightLow:    PriorityMedium,
}

// PriorityForWeight returns the priority label for a point weight
func PriorityForWeight(w PointWeight) Priority {
	if p, ok := priorityByWeight[w]; ok {
		return p
	}
	return PriorityLow
}

// Control is a single catalog requirement
type Control struct {
	ID          string      `json:"id" yaml:"id"`         // Stable code, e.g. "03.01.01"
	Family      string      `json:"family" yaml:"family"` // Family code, e.g. "AC"
	Title       string      `json:"title" yaml:"title"`
	Requirement string      `json:"requirement,omitempty" yaml:"requirement,omitempty"`
	Discussion  string      `json:"discussion,omitempty" yaml:"discussion,omitempty"`
	Weight      PointWeight `json:"weight" yaml:"weight"`
	Exempt      bool        `json:"exempt,omitempty" yaml:"exempt,omitempty"` // Never deducts points
}

// Priority returns the remediation priority derived from the point weight
func (c Control) Priority() Priority {
	return PriorityForWeight(c.Weight)
}

// Family groups controls under a two-letter code
type Family struct {
	Code   string `json:"code" yaml:"code"`
	Number string `json:"number" yaml:"number"` // e.g. "03.01"
	Name   string `json:"name" yaml:"name"`
}

// NormalizeFamily upper-cases and trims a family code for lookups
func NormalizeFamily(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
