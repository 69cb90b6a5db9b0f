package remediation

import (
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/controlgap/internal/model"
)

// NewDraft builds a remediation record pre-filled from the selected gaps
func NewDraft(control model.Control, title string, gaps model.GapSet, selectedIDs []string, now time.Time) model.RemediationDraft {
	if title == "" {
		title = control.Title
	}
	return model.RemediationDraft{
		ID:              uuid.New().String(),
		ControlID:       control.ID,
		Title:           title,
		Priority:        gaps.Priority,
		GapDescription:  Describe(control.ID, title, gaps, selectedIDs),
		RemediationPlan: DefaultPlan,
		GapItemIDs:      Selected(gaps, selectedIDs),
		CreatedAt:       now,
	}
}
