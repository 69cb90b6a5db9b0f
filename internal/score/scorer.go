package score

import (
	"sort"

	"github.com/ppiankov/controlgap/internal/model"
)

// Scorer calculates the weighted point score
type Scorer struct {
	minScore int
	bands    []model.ScoreBand
	rules    []Rule
}

// NewScorer creates a new scorer. bands must be ordered by descending floor.
func NewScorer(minScore int, bands []model.ScoreBand, rules []Rule) *Scorer {
	return &Scorer{
		minScore: minScore,
		bands:    bands,
		rules:    rules,
	}
}

// StateOf derives the scoring state from the latest assessment.
// An unassessed control is non-compliant.
func StateOf(latest *model.AssessmentAnswer) model.ComplianceState {
	switch {
	case latest == nil:
		return model.StateNonCompliant
	case latest.NotApplicable:
		return model.StateNotApplicable
	case latest.Implemented && latest.MeetsRequirement:
		return model.StateCompliant
	default:
		return model.StateNonCompliant
	}
}

// Calculate scores every control in states.
//
// The score starts at the sum of all positive weights and loses each
// non-compliant, non-exempt control's weight, floored at the minimum score.
// Not-applicable controls keep their points and leave the compliance
// percentage denominator.
func (s *Scorer) Calculate(states []ControlState) model.ComplianceScoreResult {
	result := model.ComplianceScoreResult{
		MinScore:               s.minScore,
		SpecialScoringControls: []model.SpecialScoring{},
	}

	tiers := make(map[model.PointWeight]*model.TierScore)
	for _, w := range model.WeightTiers {
		tiers[w] = &model.TierScore{Weight: w}
	}
	families := make(map[string]*model.FamilyScore)

	for _, st := range states {
		c := st.Control
		points := int(c.Weight)
		if points < 0 {
			points = 0
		}

		tier := tiers[c.Weight]
		if tier == nil {
			tier = &model.TierScore{Weight: c.Weight}
			tiers[c.Weight] = tier
		}
		fam := families[c.Family]
		if fam == nil {
			fam = &model.FamilyScore{Family: c.Family}
			families[c.Family] = fam
		}

		result.TotalControls++
		result.MaxScore += points
		tier.Total++
		fam.Total++
		fam.MaxPoints += points

		deduction := points
		if c.Exempt {
			deduction = 0
		}

		state := StateOf(st.Latest)
		if state == model.StateCompliant {
			if rule, reason, failed := s.firstFailingRule(st); failed {
				state = model.StateNonCompliant
				result.SpecialScoringControls = append(result.SpecialScoringControls, model.SpecialScoring{
					ControlID: c.ID,
					Rule:      rule,
					Reason:    reason,
					Points:    deduction,
				})
			}
		}

		switch state {
		case model.StateNotApplicable:
			result.NotApplicableControls++
			tier.NotApplicable++
			fam.NotApplicable++
		case model.StateCompliant:
			result.VerifiedControls++
			tier.Compliant++
			fam.Compliant++
		default:
			result.NonCompliantControls++
			tier.NonCompliant++
			result.PointsDeducted += deduction
			tier.PointsDeducted += deduction
			fam.PointsDeducted += deduction
		}
	}

	result.CurrentScore = result.MaxScore - result.PointsDeducted
	if result.CurrentScore < s.minScore {
		result.CurrentScore = s.minScore
	}

	if applicable := result.TotalControls - result.NotApplicableControls; applicable > 0 {
		result.CompliancePercentage = float64(result.VerifiedControls) / float64(applicable) * 100
	}

	result.ScoreBreakdown = make([]model.TierScore, 0, len(tiers))
	for _, t := range tiers {
		result.ScoreBreakdown = append(result.ScoreBreakdown, *t)
	}
	sort.Slice(result.ScoreBreakdown, func(i, j int) bool {
		return result.ScoreBreakdown[i].Weight > result.ScoreBreakdown[j].Weight
	})

	result.FamilyScores = make([]model.FamilyScore, 0, len(families))
	for _, f := range families {
		f.Score = f.MaxPoints - f.PointsDeducted
		result.FamilyScores = append(result.FamilyScores, *f)
	}
	sort.Slice(result.FamilyScores, func(i, j int) bool {
		return result.FamilyScores[i].Family < result.FamilyScores[j].Family
	})

	band := s.Band(ScorePercent(result.CurrentScore, result.MaxScore))
	result.ScoreLabel = band.Label
	result.ScoreColor = band.Color

	return result
}

func (s *Scorer) firstFailingRule(st ControlState) (string, string, bool) {
	for _, r := range s.rules {
		if !r.Applies(st.Control) {
			continue
		}
		if ok, reason := r.Evaluate(st); !ok {
			return r.Name(), reason, true
		}
	}
	return "", "", false
}

// ScorePercent expresses the score as a percentage of the maximum.
// With nothing to score the result is 100.
func ScorePercent(current, maxScore int) float64 {
	if maxScore <= 0 {
		return 100
	}
	return float64(current) / float64(maxScore) * 100
}

// Band returns the first band whose floor the percentage reaches; the last
// band catches everything below
func (s *Scorer) Band(percent float64) model.ScoreBand {
	if len(s.bands) == 0 {
		return model.ScoreBand{}
	}
	for _, b := range s.bands {
		if percent >= b.MinPercent {
			return b
		}
	}
	return s.bands[len(s.bands)-1]
}
