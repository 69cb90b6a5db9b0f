package score

import (
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/controlgap/internal/model"
)

var defaultBands = []model.ScoreBand{
	{MinPercent: 80, Label: "pass", Color: "green"},
	{MinPercent: 0, Label: "warn", Color: "yellow"},
	{MinPercent: -100, Label: "fail", Color: "red"},
}

func compliant() *model.AssessmentAnswer {
	return &model.AssessmentAnswer{Implemented: true, MeetsRequirement: true, AssessedAt: time.Now()}
}

func nonCompliant() *model.AssessmentAnswer {
	return &model.AssessmentAnswer{Implemented: true, MeetsRequirement: false, AssessedAt: time.Now()}
}

func notApplicable() *model.AssessmentAnswer {
	return &model.AssessmentAnswer{NotApplicable: true, AssessedAt: time.Now()}
}

func state(id, family string, weight model.PointWeight, latest *model.AssessmentAnswer) ControlState {
	return ControlState{
		Control: model.Control{ID: id, Family: family, Weight: weight},
		Latest:  latest,
	}
}

func catalogStates() []ControlState {
	return []ControlState{
		state("03.01.01", "AC", 5, compliant()),
		state("03.01.02", "AC", 5, compliant()),
		state("03.01.05", "AC", 3, compliant()),
		state("03.03.01", "AU", 5, compliant()),
		state("03.03.07", "AU", 1, compliant()),
		state("03.12.04", "CA", 0, compliant()),
	}
}

func TestScorer_AllCompliant(t *testing.T) {
	scorer := NewScorer(-203, defaultBands, nil)

	result := scorer.Calculate(catalogStates())

	if result.MaxScore != 19 {
		t.Errorf("expected max score 19, got %d", result.MaxScore)
	}
	if result.CurrentScore != result.MaxScore {
		t.Errorf("expected current score %d, got %d", result.MaxScore, result.CurrentScore)
	}
	if result.PointsDeducted != 0 {
		t.Errorf("expected no deductions, got %d", result.PointsDeducted)
	}
	if result.CompliancePercentage != 100 {
		t.Errorf("expected 100%% compliance, got %v", result.CompliancePercentage)
	}
	if result.ScoreLabel != "pass" || result.ScoreColor != "green" {
		t.Errorf("expected pass/green, got %s/%s", result.ScoreLabel, result.ScoreColor)
	}
}

func TestScorer_SingleWeightFiveFailure(t *testing.T) {
	scorer := NewScorer(-203, defaultBands, nil)

	states := catalogStates()
	states[0].Latest = nonCompliant()

	result := scorer.Calculate(states)

	if result.CurrentScore != result.MaxScore-5 {
		t.Errorf("expected current score %d, got %d", result.MaxScore-5, result.CurrentScore)
	}
	if result.PointsDeducted != 5 {
		t.Errorf("expected 5 points deducted, got %d", result.PointsDeducted)
	}
	if result.NonCompliantControls != 1 {
		t.Errorf("expected 1 non-compliant control, got %d", result.NonCompliantControls)
	}
}

func TestScorer_UnassessedIsNonCompliant(t *testing.T) {
	scorer := NewScorer(-203, defaultBands, nil)

	result := scorer.Calculate([]ControlState{state("03.01.05", "AC", 3, nil)})
	if result.PointsDeducted != 3 {
		t.Errorf("expected 3 points deducted for unassessed control, got %d", result.PointsDeducted)
	}
}

func TestScorer_MonotonicAndBounded(t *testing.T) {
	scorer := NewScorer(-10, defaultBands, nil)

	states := make([]ControlState, 0, 20)
	for i := 0; i < 20; i++ {
		states = append(states, state("c", "AC", 5, compliant()))
	}

	previous := scorer.Calculate(states).CurrentScore
	for i := range states {
		states[i].Latest = nonCompliant()
		result := scorer.Calculate(states)

		if result.CurrentScore > previous {
			t.Fatalf("score increased from %d to %d after %d failures", previous, result.CurrentScore, i+1)
		}
		if result.CurrentScore < result.MinScore || result.CurrentScore > result.MaxScore {
			t.Fatalf("score %d outside [%d, %d]", result.CurrentScore, result.MinScore, result.MaxScore)
		}
		previous = result.CurrentScore
	}

	if previous != -10 {
		t.Errorf("expected score floored at -10, got %d", previous)
	}
}

func TestScorer_NotApplicable(t *testing.T) {
	scorer := NewScorer(-203, defaultBands, nil)

	states := catalogStates()
	states[1].Latest = notApplicable()
	states[2].Latest = nonCompliant()

	result := scorer.Calculate(states)

	if result.NotApplicableControls != 1 {
		t.Errorf("expected 1 not-applicable control, got %d", result.NotApplicableControls)
	}
	if result.PointsDeducted != 3 {
		t.Errorf("expected only the non-compliant control's 3 points deducted, got %d", result.PointsDeducted)
	}
	if result.MaxScore != 19 {
		t.Errorf("expected not-applicable control to stay in max score (19), got %d", result.MaxScore)
	}
	// 4 verified of 5 applicable
	if result.CompliancePercentage != 80 {
		t.Errorf("expected 80%% compliance, got %v", result.CompliancePercentage)
	}
}

func TestScorer_ExemptControlDoesNotDeduct(t *testing.T) {
	scorer := NewScorer(-203, defaultBands, nil)

	st := state("03.12.04", "CA", 5, nonCompliant())
	st.Control.Exempt = true

	result := scorer.Calculate([]ControlState{st})
	if result.PointsDeducted != 0 {
		t.Errorf("expected exempt control not to deduct, got %d", result.PointsDeducted)
	}
	if result.NonCompliantControls != 1 {
		t.Errorf("expected exempt control to still count as non-compliant, got %d", result.NonCompliantControls)
	}
}

func TestScorer_SpecialRuleDeductsWhenImplemented(t *testing.T) {
	rules, err := RulesFromConfig([]model.SpecialRuleConfig{{
		ControlID: "03.05.03",
		Name:      "mfa-enforced",
		Settings:  []string{"mfa-all-users"},
		Reason:    "MFA not enforced",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scorer := NewScorer(-203, defaultBands, rules)

	mfa := state("03.05.03", "IA", 5, compliant())
	mfa.Settings = []model.SettingResult{{SettingID: "mfa-all-users", Automated: model.SettingNonCompliant}}

	result := scorer.Calculate([]ControlState{mfa, state("03.01.01", "AC", 5, compliant())})

	if result.PointsDeducted != 5 {
		t.Errorf("expected 5 points deducted by special rule, got %d", result.PointsDeducted)
	}
	if len(result.SpecialScoringControls) != 1 {
		t.Fatalf("expected 1 special scoring entry, got %d", len(result.SpecialScoringControls))
	}
	special := result.SpecialScoringControls[0]
	if special.ControlID != "03.05.03" || special.Rule != "mfa-enforced" || special.Points != 5 {
		t.Errorf("unexpected special scoring entry: %+v", special)
	}
	if !strings.Contains(special.Reason, "MFA not enforced") || !strings.Contains(special.Reason, "mfa-all-users") {
		t.Errorf("expected reason to explain the failing setting, got %q", special.Reason)
	}
}

func TestScorer_SpecialRulePassesWithManualOverride(t *testing.T) {
	rules, _ := RulesFromConfig([]model.SpecialRuleConfig{{ControlID: "03.13.11", Settings: []string{"fips"}}})
	scorer := NewScorer(-203, defaultBands, rules)

	st := state("03.13.11", "SC", 5, compliant())
	st.Settings = []model.SettingResult{{
		SettingID: "fips",
		Automated: model.SettingNonCompliant,
		Manual:    &model.ManualReview{Status: model.SettingCompliant},
	}}

	result := scorer.Calculate([]ControlState{st})
	if result.PointsDeducted != 0 || len(result.SpecialScoringControls) != 0 {
		t.Errorf("expected manual review to satisfy rule, got %d deducted, %d special", result.PointsDeducted, len(result.SpecialScoringControls))
	}
}

func TestScorer_SpecialRuleIgnoredWhenAlreadyNonCompliant(t *testing.T) {
	rules, _ := RulesFromConfig([]model.SpecialRuleConfig{{ControlID: "03.05.03", Settings: []string{"mfa"}}})
	scorer := NewScorer(-203, defaultBands, rules)

	result := scorer.Calculate([]ControlState{state("03.05.03", "IA", 5, nonCompliant())})
	if len(result.SpecialScoringControls) != 0 {
		t.Errorf("expected no special entry for an ordinary deduction, got %+v", result.SpecialScoringControls)
	}
	if result.PointsDeducted != 5 {
		t.Errorf("expected 5 points deducted, got %d", result.PointsDeducted)
	}
}

func TestScorer_Breakdowns(t *testing.T) {
	scorer := NewScorer(-203, defaultBands, nil)

	states := catalogStates()
	states[0].Latest = nonCompliant()
	states[4].Latest = nonCompliant()

	result := scorer.Calculate(states)

	if len(result.ScoreBreakdown) != 4 {
		t.Fatalf("expected 4 weight tiers, got %d", len(result.ScoreBreakdown))
	}
	five := result.ScoreBreakdown[0]
	if five.Weight != 5 || five.Total != 3 || five.Compliant != 2 || five.PointsDeducted != 5 {
		t.Errorf("unexpected weight-5 tier: %+v", five)
	}
	one := result.ScoreBreakdown[2]
	if one.Weight != 1 || one.PointsDeducted != 1 {
		t.Errorf("unexpected weight-1 tier: %+v", one)
	}

	if len(result.FamilyScores) != 3 {
		t.Fatalf("expected 3 families, got %d", len(result.FamilyScores))
	}
	ac := result.FamilyScores[0]
	if ac.Family != "AC" || ac.MaxPoints != 13 || ac.PointsDeducted != 5 || ac.Score != 8 {
		t.Errorf("unexpected AC family score: %+v", ac)
	}
}

func TestScorer_Bands(t *testing.T) {
	scorer := NewScorer(-203, defaultBands, nil)

	tests := []struct {
		percent float64
		label   string
	}{
		{100, "pass"},
		{80, "pass"},
		{79.9, "warn"},
		{0, "warn"},
		{-0.1, "fail"},
		{-500, "fail"},
	}
	for _, tt := range tests {
		if got := scorer.Band(tt.percent).Label; got != tt.label {
			t.Errorf("percent %v: expected %s, got %s", tt.percent, tt.label, got)
		}
	}
}

func TestRulesFromConfig_Invalid(t *testing.T) {
	if _, err := RulesFromConfig([]model.SpecialRuleConfig{{ControlID: "x", Kind: "astrology", Settings: []string{"a"}}}); err == nil {
		t.Error("expected error for unknown rule kind")
	}
	if _, err := RulesFromConfig([]model.SpecialRuleConfig{{ControlID: "x"}}); err == nil {
		t.Error("expected error for rule without settings")
	}
}
