package model

import "time"

// AssessmentAnswer is one recorded self-assessment of a control.
// Records are never edited; corrections are new records.
type AssessmentAnswer struct {
	ID               string    `json:"id" yaml:"id"`
	ControlID        string    `json:"control_id" yaml:"control_id"`
	Implemented      bool      `json:"implemented" yaml:"implemented"`
	HasEvidence      bool      `json:"has_evidence" yaml:"has_evidence"`
	Tested           bool      `json:"tested" yaml:"tested"`
	MeetsRequirement bool      `json:"meets_requirement" yaml:"meets_requirement"`
	NotApplicable    bool      `json:"not_applicable,omitempty" yaml:"not_applicable,omitempty"`
	Notes            string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	AssessedAt       time.Time `json:"assessed_at" yaml:"assessed_at"`
}

// LatestAssessment returns the authoritative (most recent) answer.
// Ties on AssessedAt go to the lexically greater ID.
func LatestAssessment(answers []AssessmentAnswer) *AssessmentAnswer {
	var latest *AssessmentAnswer
	for i := range answers {
		a := &answers[i]
		if latest == nil ||
			a.AssessedAt.After(latest.AssessedAt) ||
			(a.AssessedAt.Equal(latest.AssessedAt) && a.ID > latest.ID) {
			latest = a
		}
	}
	return latest
}

// SettingStatus is the tri-state outcome of a configuration setting check
type SettingStatus string

const (
	SettingUnknown      SettingStatus = "" // No result recorded
	SettingCompliant    SettingStatus = "compliant"
	SettingNonCompliant SettingStatus = "non_compliant"
)

// ManualReview overrides an automated setting result
type ManualReview struct {
	Status     SettingStatus `json:"status" yaml:"status"`
	Reviewer   string        `json:"reviewer,omitempty" yaml:"reviewer,omitempty"`
	ReviewedAt time.Time     `json:"reviewed_at,omitempty" yaml:"reviewed_at,omitempty"`
	Notes      string        `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// SettingResult is a configuration setting mapped to a control, with its outcome
type SettingResult struct {
	SettingID string        `json:"setting_id" yaml:"setting_id"`
	Name      string        `json:"name" yaml:"name"`
	Automated SettingStatus `json:"automated,omitempty" yaml:"automated,omitempty"`
	Manual    *ManualReview `json:"manual,omitempty" yaml:"manual,omitempty"`
}

// Effective returns the status that counts: manual review wins when present
func (s SettingResult) Effective() SettingStatus {
	if s.Manual != nil && s.Manual.Status != SettingUnknown {
		return s.Manual.Status
	}
	return s.Automated
}

// Compliant reports whether the effective status is compliant.
// An absent result is not compliant.
func (s SettingResult) Compliant() bool {
	return s.Effective() == SettingCompliant
}

// ControlInputs bundles everything the engine reads for one control
type ControlInputs struct {
	Requirements []EvidenceRequirement `json:"requirements"`
	Assessments  []AssessmentAnswer    `json:"assessments"`
	Settings     []SettingResult       `json:"settings"`
	Activities   []string              `json:"activities"`
}
