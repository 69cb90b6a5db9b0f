package model

import "math"

// Dimension names one of the four coverage dimensions
type Dimension string

const (
	DimensionTechnical     Dimension = "technical"
	DimensionOperational   Dimension = "operational"
	DimensionDocumentation Dimension = "documentation"
	DimensionPhysical      Dimension = "physical"
	DimensionNone          Dimension = "" // Evidence type not counted toward coverage
)

// Dimensions lists the coverage dimensions in report order
var Dimensions = []Dimension{DimensionTechnical, DimensionOperational, DimensionDocumentation, DimensionPhysical}

// DimensionBreakdown shows the counts behind one dimension's percentage
type DimensionBreakdown struct {
	Satisfied int     `json:"satisfied"`
	Total     int     `json:"total"`
	Applies   bool    `json:"applies"` // False when the control declares nothing here
	Percent   float64 `json:"percent"`
}

// CoverageResult is the derived per-control coverage. Percentages are exact;
// use Rounded for display.
type CoverageResult struct {
	ControlID     string                           `json:"control_id"`
	Family        string                           `json:"family"`
	Technical     float64                          `json:"technical"`
	Operational   float64                          `json:"operational"`
	Documentation float64                          `json:"documentation"`
	Physical      float64                          `json:"physical"`
	Overall       float64                          `json:"overall"`
	Breakdown     map[Dimension]DimensionBreakdown `json:"breakdown"`
}

// RoundedCoverage holds whole-number display values
type RoundedCoverage struct {
	Technical     int `json:"technical"`
	Operational   int `json:"operational"`
	Documentation int `json:"documentation"`
	Physical      int `json:"physical"`
	Overall       int `json:"overall"`
}

// Rounded returns the display values, rounded half away from zero
func (c CoverageResult) Rounded() RoundedCoverage {
	return RoundedCoverage{
		Technical:     RoundPercent(c.Technical),
		Operational:   RoundPercent(c.Operational),
		Documentation: RoundPercent(c.Documentation),
		Physical:      RoundPercent(c.Physical),
		Overall:       RoundPercent(c.Overall),
	}
}

// ClampPercent limits v to [0,100]; NaN becomes 0
func ClampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// RoundPercent clamps and rounds a percentage for display
func RoundPercent(v float64) int {
	return int(math.Round(ClampPercent(v)))
}

// Failure records a control skipped by a batch computation
type Failure struct {
	ControlID string `json:"control_id"`
	Error     string `json:"error"`
}

// FamilySummary is the family-level coverage roll-up
type FamilySummary struct {
	Family          string    `json:"family"`
	Name            string    `json:"name,omitempty"`
	ControlCount    int       `json:"control_count"`
	AverageCoverage float64   `json:"average_coverage"`
	Failed          []Failure `json:"failed,omitempty"`
}

// DimensionAverages holds organization-wide averages per dimension
type DimensionAverages struct {
	Technical     float64 `json:"technical"`
	Operational   float64 `json:"operational"`
	Documentation float64 `json:"documentation"`
	Physical      float64 `json:"physical"`
	Overall       float64 `json:"overall"`
}

// OrganizationSummary is the organization-level coverage roll-up
type OrganizationSummary struct {
	TotalControls     int               `json:"total_controls"`
	Averages          DimensionAverages `json:"averages"`
	CriticalControls  int               `json:"critical_controls"`
	ModerateControls  int               `json:"moderate_controls"`
	CompliantControls int               `json:"compliant_controls"`
	Families          []FamilySummary   `json:"families"`
	Failed            []Failure         `json:"failed,omitempty"`
}

// ComplianceState is a control's standing for weighted scoring
type ComplianceState string

const (
	StateCompliant     ComplianceState = "compliant"
	StateNonCompliant  ComplianceState = "non_compliant"
	StateNotApplicable ComplianceState = "not_applicable"
)

// TierScore summarizes all controls sharing one point weight
type TierScore struct {
	Weight         PointWeight `json:"weight"`
	Total          int         `json:"total"`
	Compliant      int         `json:"compliant"`
	NonCompliant   int         `json:"non_compliant"`
	NotApplicable  int         `json:"not_applicable"`
	PointsDeducted int         `json:"points_deducted"`
}

// FamilyScore is the weighted score restricted to one family
type FamilyScore struct {
	Family         string `json:"family"`
	MaxPoints      int    `json:"max_points"`
	PointsDeducted int    `json:"points_deducted"`
	Score          int    `json:"score"`
	Total          int    `json:"total"`
	Compliant      int    `json:"compliant"`
	NotApplicable  int    `json:"not_applicable"`
}

// SpecialScoring explains a deduction triggered by a special rule
type SpecialScoring struct {
	ControlID string `json:"control_id"`
	Rule      string `json:"rule"`
	Reason    string `json:"reason"`
	Points    int    `json:"points"`
}

// ComplianceScoreResult is the weighted point score for the organization
type ComplianceScoreResult struct {
	MaxScore               int              `json:"max_score"`
	MinScore               int              `json:"min_score"`
	CurrentScore           int              `json:"current_score"`
	PointsDeducted         int              `json:"points_deducted"`
	VerifiedControls       int              `json:"verified_controls"`
	NotApplicableControls  int              `json:"not_applicable_controls"`
	NonCompliantControls   int              `json:"non_compliant_controls"`
	TotalControls          int              `json:"total_controls"`
	CompliancePercentage   float64          `json:"compliance_percentage"`
	ScoreBreakdown         []TierScore      `json:"score_breakdown"`
	FamilyScores           []FamilyScore    `json:"family_scores"`
	SpecialScoringControls []SpecialScoring `json:"special_scoring_controls"`
	ScoreColor             string           `json:"score_color"`
	ScoreLabel             string           `json:"score_label"`
	Failed                 []Failure        `json:"failed,omitempty"`
}
