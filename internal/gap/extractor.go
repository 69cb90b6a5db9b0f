// Package gap partitions a control's inputs into the missing, stale and
// non-compliant facts that seed remediation.
package gap

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ppiankov/controlgap/internal/coverage"
	"github.com/ppiankov/controlgap/internal/freshness"
	"github.com/ppiankov/controlgap/internal/model"
)

// ID prefixes for synthetic gap item keys
const (
	prefixPolicy    = "policy:"
	prefixProcedure = "procedure:"
	prefixEvidence  = "evidence:"
	prefixSetting   = "setting:"
	prefixActivity  = "activity:"
)

// Extractor builds gap sets
type Extractor struct {
	dims *coverage.DimensionTable
}

// NewExtractor creates an extractor. dims decides which evidence types are
// freshness tracked; nil uses the default table.
func NewExtractor(dims *coverage.DimensionTable) *Extractor {
	if dims == nil {
		dims = coverage.DefaultDimensionTable()
	}
	return &Extractor{dims: dims}
}

// Extract returns every gap for the control. Items keep input order.
func (e *Extractor) Extract(control model.Control, in model.ControlInputs, cls *freshness.Classifier) (model.GapSet, error) {
	set := model.GapSet{
		ControlID:             control.ID,
		Priority:              control.Priority(),
		MissingPolicies:       []model.GapItem{},
		MissingProcedures:     []model.GapItem{},
		MissingEvidence:       []model.GapItem{},
		MissingSettings:       []model.GapItem{},
		OperationalActivities: []model.GapItem{},
	}

	for _, req := range in.Requirements {
		switch req.Type {
		case model.EvidencePolicy:
			if len(req.Instances) == 0 {
				set.MissingPolicies = append(set.MissingPolicies, requirementItem(prefixPolicy, model.GapPolicy, req, ""))
			}
			continue
		case model.EvidenceProcedure:
			if len(req.Instances) == 0 {
				set.MissingProcedures = append(set.MissingProcedures, requirementItem(prefixProcedure, model.GapProcedure, req, ""))
			}
			continue
		}

		dim := e.dims.For(req.Type)
		if dim == model.DimensionNone || dim == model.DimensionDocumentation {
			continue
		}
		status, err := cls.Classify(req)
		if err != nil {
			return model.GapSet{}, fmt.Errorf("classify requirement %s: %w", req.ID, err)
		}
		if status != model.FreshnessFresh {
			set.MissingEvidence = append(set.MissingEvidence, requirementItem(prefixEvidence, model.GapEvidence, req, status))
		}
	}

	for _, s := range in.Settings {
		if s.Compliant() {
			continue
		}
		name := s.Name
		if name == "" {
			name = s.SettingID
		}
		desc := "no result recorded"
		if status := s.Effective(); status != model.SettingUnknown {
			desc = "status: " + string(status)
		}
		set.MissingSettings = append(set.MissingSettings, model.GapItem{
			ID:          prefixSetting + s.SettingID,
			Kind:        model.GapSetting,
			Name:        name,
			Description: desc,
		})
	}

	if !coverage.ActivitiesSatisfied(model.LatestAssessment(in.Assessments)) {
		for i, activity := range in.Activities {
			set.OperationalActivities = append(set.OperationalActivities, model.GapItem{
				ID:   prefixActivity + strconv.Itoa(i),
				Kind: model.GapActivity,
				Name: activity,
			})
		}
	}

	return set, nil
}

func requirementItem(prefix string, kind model.GapKind, req model.EvidenceRequirement, status model.FreshnessStatus) model.GapItem {
	return model.GapItem{
		ID:          prefix + req.ID,
		Kind:        kind,
		Name:        req.Name,
		Description: req.Description,
		Rationale:   req.Rationale,
		Frequency:   req.Frequency,
		Freshness:   status,
	}
}

// RankEvidence orders evidence gaps by urgency, most urgent first.
// Ties keep their original order.
func RankEvidence(items []model.GapItem) []model.GapItem {
	ranked := make([]model.GapItem, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Freshness.Rank() > ranked[j].Freshness.Rank()
	})
	return ranked
}
