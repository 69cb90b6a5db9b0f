package model

import "time"

// EvidenceType tags what kind of artifact satisfies a requirement
type EvidenceType string

const (
	EvidencePolicy        EvidenceType = "policy"
	EvidenceProcedure     EvidenceType = "procedure"
	EvidenceExecution     EvidenceType = "execution" // Proof an activity was performed
	EvidencePhysical      EvidenceType = "physical"  // Facility and physical safeguards
	EvidenceScreenshot    EvidenceType = "screenshot"
	EvidenceLog           EvidenceType = "log"
	EvidenceReport        EvidenceType = "report"
	EvidenceConfiguration EvidenceType = "configuration" // Exported settings or baselines
	EvidenceGeneral       EvidenceType = "general"
)

// EvidenceTypes lists every known evidence type
var EvidenceTypes = []EvidenceType{
	EvidencePolicy,
	EvidenceProcedure,
	EvidenceExecution,
	EvidencePhysical,
	EvidenceScreenshot,
	EvidenceLog,
	EvidenceReport,
	EvidenceConfiguration,
	EvidenceGeneral,
}

// Valid reports whether t is a known evidence type
func (t EvidenceType) Valid() bool {
	for _, known := range EvidenceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// EvidenceRequirement is an artifact a control expects to have on file
type EvidenceRequirement struct {
	ID            string             `json:"id" yaml:"id"`
	ControlID     string             `json:"control_id" yaml:"control_id"`
	Type          EvidenceType       `json:"type" yaml:"type"`
	Name          string             `json:"name" yaml:"name"`
	Description   string             `json:"description,omitempty" yaml:"description,omitempty"`
	Rationale     string             `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Frequency     string             `json:"frequency,omitempty" yaml:"frequency,omitempty"`           // e.g. "annual", "quarterly"
	FreshnessDays float64            `json:"freshness_days,omitempty" yaml:"freshness_days,omitempty"` // <= 0 disables freshness
	Instances     []EvidenceInstance `json:"instances,omitempty" yaml:"instances,omitempty"`
}

// EvidenceInstance is one uploaded artifact attached to a requirement
type EvidenceInstance struct {
	ID         string     `json:"id" yaml:"id"`
	FileName   string     `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	UploadedAt time.Time  `json:"uploaded_at" yaml:"uploaded_at"`
	ExecutedAt *time.Time `json:"executed_at,omitempty" yaml:"executed_at,omitempty"` // Preferred reference date
}

// ReferenceDate is the date freshness is measured from
func (e EvidenceInstance) ReferenceDate() time.Time {
	if e.ExecutedAt != nil && !e.ExecutedAt.IsZero() {
		return *e.ExecutedAt
	}
	return e.UploadedAt
}

// FreshnessStatus classifies the age of the latest evidence
type FreshnessStatus string

const (
	FreshnessMissing  FreshnessStatus = "missing"
	FreshnessFresh    FreshnessStatus = "fresh"
	FreshnessAging    FreshnessStatus = "aging"
	FreshnessStale    FreshnessStatus = "stale"
	FreshnessCritical FreshnessStatus = "critical"
)

// Rank orders statuses by remediation urgency (higher is more urgent)
func (s FreshnessStatus) Rank() int {
	switch s {
	case FreshnessFresh:
		return 0
	case FreshnessAging:
		return 1
	case FreshnessStale:
		return 2
	case FreshnessCritical:
		return 3
	case FreshnessMissing:
		return 4
	default:
		return -1
	}
}
