package model

import "time"

// GapKind groups gap items for display and remediation text
type GapKind string

const (
	GapPolicy    GapKind = "policy"
	GapProcedure GapKind = "procedure"
	GapEvidence  GapKind = "evidence"
	GapSetting   GapKind = "setting"
	GapActivity  GapKind = "activity"
)

// GapItem is one missing, stale or non-compliant fact for a control.
// IDs are synthetic keys valid within a session only; do not persist them.
type GapItem struct {
	ID          string          `json:"id"`
	Kind        GapKind         `json:"kind"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Rationale   string          `json:"rationale,omitempty"`
	Frequency   string          `json:"frequency,omitempty"`
	Freshness   FreshnessStatus `json:"freshness,omitempty"`
}

// GapSet is every gap extracted for a control
type GapSet struct {
	ControlID             string    `json:"control_id"`
	Priority              Priority  `json:"priority"`
	MissingPolicies       []GapItem `json:"missing_policies"`
	MissingProcedures     []GapItem `json:"missing_procedures"`
	MissingEvidence       []GapItem `json:"missing_evidence"`
	MissingSettings       []GapItem `json:"missing_settings"`
	OperationalActivities []GapItem `json:"operational_activities"`
}

// Count returns the number of gap items across all groups
func (g GapSet) Count() int {
	return len(g.MissingPolicies) + len(g.MissingProcedures) + len(g.MissingEvidence) +
		len(g.MissingSettings) + len(g.OperationalActivities)
}

// RemediationDraft seeds a new POA&M record
type RemediationDraft struct {
	ID              string    `json:"id"`
	ControlID       string    `json:"control_id"`
	Title           string    `json:"title"`
	Priority        Priority  `json:"priority"`
	GapDescription  string    `json:"gap_description"`
	RemediationPlan string    `json:"remediation_plan"`
	GapItemIDs      []string  `json:"gap_item_ids"`
	CreatedAt       time.Time `json:"created_at"`
}
