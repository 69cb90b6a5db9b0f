// Package coverage computes per-control coverage across the technical,
// operational, documentation and physical dimensions.
package coverage

import (
	"fmt"

	"github.com/ppiankov/controlgap/internal/freshness"
	"github.com/ppiankov/controlgap/internal/model"
)

// Calculator computes coverage for a single control
type Calculator struct {
	weights model.DimensionWeights
	dims    *DimensionTable
}

// NewCalculator creates a calculator with the given blend weights and dimension table
func NewCalculator(weights model.DimensionWeights, dims *DimensionTable) *Calculator {
	if dims == nil {
		dims = DefaultDimensionTable()
	}
	return &Calculator{weights: weights, dims: dims}
}

type tally struct {
	satisfied int
	total     int
}

func (t tally) breakdown() model.DimensionBreakdown {
	if t.total == 0 {
		return model.DimensionBreakdown{Applies: false, Percent: 100}
	}
	return model.DimensionBreakdown{
		Satisfied: t.satisfied,
		Total:     t.total,
		Applies:   true,
		Percent:   model.ClampPercent(float64(t.satisfied) / float64(t.total) * 100),
	}
}

// Calculate computes the coverage result for one control.
//
// Each dimension is satisfied items / declared items. A dimension with no
// declared items is 100 so that it cannot depress the overall blend.
func (c *Calculator) Calculate(control model.Control, in model.ControlInputs, cls *freshness.Classifier) (model.CoverageResult, error) {
	tallies := map[model.Dimension]*tally{
		model.DimensionTechnical:     {},
		model.DimensionOperational:   {},
		model.DimensionDocumentation: {},
		model.DimensionPhysical:      {},
	}

	// Technical: mapped settings, manual review wins, absent counts as non-compliant
	for _, s := range in.Settings {
		t := tallies[model.DimensionTechnical]
		t.total++
		if s.Compliant() {
			t.satisfied++
		}
	}

	for _, req := range in.Requirements {
		dim := c.dims.For(req.Type)
		if dim == model.DimensionNone {
			continue
		}
		status, err := cls.Classify(req)
		if err != nil {
			return model.CoverageResult{}, fmt.Errorf("classify requirement %s: %w", req.ID, err)
		}
		t := tallies[dim]
		t.total++
		if status == model.FreshnessFresh {
			t.satisfied++
		}
	}

	if n := len(in.Activities); n > 0 {
		t := tallies[model.DimensionOperational]
		t.total += n
		if ActivitiesSatisfied(model.LatestAssessment(in.Assessments)) {
			t.satisfied += n
		}
	}

	breakdown := make(map[model.Dimension]model.DimensionBreakdown, len(tallies))
	for dim, t := range tallies {
		breakdown[dim] = t.breakdown()
	}

	result := model.CoverageResult{
		ControlID:     control.ID,
		Family:        control.Family,
		Technical:     breakdown[model.DimensionTechnical].Percent,
		Operational:   breakdown[model.DimensionOperational].Percent,
		Documentation: breakdown[model.DimensionDocumentation].Percent,
		Physical:      breakdown[model.DimensionPhysical].Percent,
		Breakdown:     breakdown,
	}
	result.Overall = c.Overall(result)

	return result, nil
}

// Overall blends the four dimension percentages with the configured weights
func (c *Calculator) Overall(r model.CoverageResult) float64 {
	w := c.weights
	// explicit conversions keep each product rounded so results are identical across platforms
	return model.ClampPercent(
		float64(r.Technical*w.Technical) +
			float64(r.Documentation*w.Documentation) +
			float64(r.Operational*w.Operational) +
			float64(r.Physical*w.Physical),
	)
}

// ActivitiesSatisfied reports whether the latest assessment evidences the
// control's operational activities as implemented and tested
func ActivitiesSatisfied(latest *model.AssessmentAnswer) bool {
	return latest != nil && latest.Implemented && latest.Tested
}
