// Package aggregate rolls per-control coverage up to family and
// organization summaries.
package aggregate

import (
	"sort"

	"github.com/ppiankov/controlgap/internal/model"
)

// Bands are the coverage thresholds used to bucket controls
type Bands struct {
	CriticalBelow float64 // Overall strictly below this is critical
	CompliantAt   float64 // Overall at or above this is compliant
}

// DefaultBands returns the 50/90 split
func DefaultBands() Bands {
	return Bands{CriticalBelow: 50, CompliantAt: 90}
}

// Aggregator summarizes coverage results. It averages exactly what it is
// given; callers supply a complete control set.
type Aggregator struct {
	bands Bands
	names map[string]string // family code -> display name
}

// NewAggregator creates an aggregator. names may be nil.
func NewAggregator(bands Bands, names map[string]string) *Aggregator {
	return &Aggregator{bands: bands, names: names}
}

// Band classifies a single overall percentage
func (a *Aggregator) Band(overall float64) string {
	switch {
	case overall < a.bands.CriticalBelow:
		return "critical"
	case overall >= a.bands.CompliantAt:
		return "compliant"
	default:
		return "moderate"
	}
}

// Families returns one summary per family present in results, sorted by code
func (a *Aggregator) Families(results []model.CoverageResult) []model.FamilySummary {
	type acc struct {
		sum   float64
		count int
	}
	byFamily := make(map[string]*acc)
	for _, r := range results {
		f := byFamily[r.Family]
		if f == nil {
			f = &acc{}
			byFamily[r.Family] = f
		}
		f.sum += r.Overall
		f.count++
	}

	summaries := make([]model.FamilySummary, 0, len(byFamily))
	for code, f := range byFamily {
		summaries = append(summaries, model.FamilySummary{
			Family:          code,
			Name:            a.names[code],
			ControlCount:    f.count,
			AverageCoverage: f.sum / float64(f.count),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Family < summaries[j].Family
	})
	return summaries
}

// Family summarizes a single family. Results from other families are ignored.
func (a *Aggregator) Family(code string, results []model.CoverageResult, failed []model.Failure) model.FamilySummary {
	summary := model.FamilySummary{Family: code, Name: a.names[code], Failed: failed}
	var sum float64
	for _, r := range results {
		if r.Family != code {
			continue
		}
		sum += r.Overall
		summary.ControlCount++
	}
	if summary.ControlCount > 0 {
		summary.AverageCoverage = sum / float64(summary.ControlCount)
	}
	return summary
}

// Organization produces the organization-wide summary. failed lists controls
// whose coverage could not be computed; they are reported, not averaged.
func (a *Aggregator) Organization(results []model.CoverageResult, failed []model.Failure) model.OrganizationSummary {
	summary := model.OrganizationSummary{
		TotalControls: len(results),
		Families:      a.Families(results),
		Failed:        failed,
	}
	if len(results) == 0 {
		return summary
	}

	var avg model.DimensionAverages
	for _, r := range results {
		avg.Technical += r.Technical
		avg.Operational += r.Operational
		avg.Documentation += r.Documentation
		avg.Physical += r.Physical
		avg.Overall += r.Overall

		switch a.Band(r.Overall) {
		case "critical":
			summary.CriticalControls++
		case "compliant":
			summary.CompliantControls++
		default:
			summary.ModerateControls++
		}
	}

	n := float64(len(results))
	summary.Averages = model.DimensionAverages{
		Technical:     avg.Technical / n,
		Operational:   avg.Operational / n,
		Documentation: avg.Documentation / n,
		Physical:      avg.Physical / n,
		Overall:       avg.Overall / n,
	}
	return summary
}
