// Package remediation renders selected gap items into the default text of a
// new remediation record.
package remediation

import (
	"strings"

	"github.com/ppiankov/controlgap/internal/model"
)

// DefaultPlan is the placeholder remediation plan for new records
const DefaultPlan = "Describe the remediation actions, responsible parties, and target milestone dates for the gaps listed above."

type group struct {
	label string
	items []model.GapItem
}

func groups(gaps model.GapSet) []group {
	return []group{
		{"Policies", gaps.MissingPolicies},
		{"Procedures", gaps.MissingProcedures},
		{"Evidence", gaps.MissingEvidence},
		{"Settings", gaps.MissingSettings},
		{"Activities", gaps.OperationalActivities},
	}
}

// Describe renders the gap description for the selected items.
//
// Groups appear in a fixed order and items keep their order within the gap
// set, so the same selection always renders identically. Selected ids that
// match no item are ignored.
func Describe(controlID, title string, gaps model.GapSet, selectedIDs []string) string {
	selected := make(map[string]bool, len(selectedIDs))
	for _, id := range selectedIDs {
		selected[id] = true
	}

	header := "Control " + controlID
	if title != "" {
		header += " - " + title
	}
	blocks := []string{header + ": identified gaps"}

	for _, g := range groups(gaps) {
		var b strings.Builder
		for _, item := range g.items {
			if !selected[item.ID] {
				continue
			}
			if b.Len() == 0 {
				b.WriteString(g.label + ":")
			}
			b.WriteString("\n" + Line(item))
		}
		if b.Len() > 0 {
			blocks = append(blocks, b.String())
		}
	}

	return strings.TrimSpace(strings.Join(blocks, "\n\n"))
}

// Line renders one gap item as a list entry
func Line(item model.GapItem) string {
	line := "- " + strings.TrimSpace(item.Name)
	if item.Freshness != "" {
		line += " [" + string(item.Freshness) + "]"
	}
	if d := strings.TrimSpace(item.Description); d != "" {
		line += " - " + d
	}
	return line
}

// Selected returns the ids of gap items present in the selection, in
// rendering order
func Selected(gaps model.GapSet, selectedIDs []string) []string {
	want := make(map[string]bool, len(selectedIDs))
	for _, id := range selectedIDs {
		want[id] = true
	}
	ids := []string{}
	for _, g := range groups(gaps) {
		for _, item := range g.items {
			if want[item.ID] {
				ids = append(ids, item.ID)
			}
		}
	}
	return ids
}
