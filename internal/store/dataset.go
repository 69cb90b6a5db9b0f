package store

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/controlgap/internal/model"
)

// Defaults applied to requirements that leave frequency or threshold unset
const (
	DefaultPolicyFrequency     = "annual"
	DefaultPolicyFreshnessDays = 400
	DefaultProcedureFrequency  = "one-time"
)

// Dataset is the YAML document describing an organization's records.
// Families and Controls are optional; the built-in catalog is used when
// Controls is empty.
type Dataset struct {
	Families     []model.Family           `yaml:"families,omitempty"`
	Controls     []model.Control          `yaml:"controls,omitempty"`
	Requirements []Requirement            `yaml:"requirements"`
	Assessments  []model.AssessmentAnswer `yaml:"assessments"`
	Settings     []Setting                `yaml:"settings"`
	Activities   map[string][]string      `yaml:"activities,omitempty"` // control id -> activities
}

// Requirement is an evidence requirement as written in a dataset file.
// A nil FreshnessDays takes the type default.
type Requirement struct {
	ID            string                   `yaml:"id"`
	ControlID     string                   `yaml:"control_id"`
	Type          model.EvidenceType       `yaml:"type"`
	Name          string                   `yaml:"name"`
	Description   string                   `yaml:"description,omitempty"`
	Rationale     string                   `yaml:"rationale,omitempty"`
	Frequency     string                   `yaml:"frequency,omitempty"`
	FreshnessDays *float64                 `yaml:"freshness_days,omitempty"`
	Instances     []model.EvidenceInstance `yaml:"instances,omitempty"`
}

// Model converts the record, applying type defaults
func (r Requirement) Model() model.EvidenceRequirement {
	req := model.EvidenceRequirement{
		ID:          r.ID,
		ControlID:   r.ControlID,
		Type:        model.EvidenceType(strings.ToLower(string(r.Type))),
		Name:        r.Name,
		Description: r.Description,
		Rationale:   r.Rationale,
		Frequency:   r.Frequency,
		Instances:   r.Instances,
	}
	if r.FreshnessDays != nil {
		req.FreshnessDays = *r.FreshnessDays
	}

	switch req.Type {
	case model.EvidencePolicy:
		if req.Frequency == "" {
			req.Frequency = DefaultPolicyFrequency
		}
		if r.FreshnessDays == nil {
			req.FreshnessDays = DefaultPolicyFreshnessDays
		}
	case model.EvidenceProcedure:
		if req.Frequency == "" {
			req.Frequency = DefaultProcedureFrequency
		}
	}
	return req
}

// Setting is a configuration setting with its result and control mappings
type Setting struct {
	ID        string              `yaml:"id"`
	Name      string              `yaml:"name"`
	Controls  []string            `yaml:"controls"`
	Automated model.SettingStatus `yaml:"automated,omitempty"`
	Manual    *model.ManualReview `yaml:"manual,omitempty"`
}

// Result returns the setting's outcome as seen by a control
func (s Setting) Result() model.SettingResult {
	return model.SettingResult{
		SettingID: s.ID,
		Name:      s.Name,
		Automated: s.Automated,
		Manual:    s.Manual,
	}
}

// LoadDataset reads a dataset from a YAML file
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadDataset(f)
}

// ReadDataset decodes a dataset from YAML
func ReadDataset(r io.Reader) (*Dataset, error) {
	var ds Dataset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		if err == io.EOF {
			return &ds, nil
		}
		return nil, fmt.Errorf("%w: decode dataset: %v", model.ErrInvalidInput, err)
	}
	return &ds, nil
}

// Validate checks the dataset against the set of known control ids. Only
// problems that make the whole dataset unusable are reported here; undated
// evidence and non-finite thresholds fail their own control when it is computed.
func (ds *Dataset) Validate(known func(id string) bool) error {
	seen := make(map[string]bool)
	for _, r := range ds.Requirements {
		req := r.Model()
		if req.ID == "" {
			return model.InvalidInputf("requirement %q has no id", req.Name)
		}
		if seen["req:"+req.ID] {
			return model.InvalidInputf("duplicate requirement %s", req.ID)
		}
		seen["req:"+req.ID] = true
		if !known(req.ControlID) {
			return model.InvalidInputf("requirement %s references unknown control %q", req.ID, req.ControlID)
		}
		if !req.Type.Valid() {
			return model.InvalidInputf("requirement %s has unknown evidence type %q", req.ID, req.Type)
		}
	}

	for _, a := range ds.Assessments {
		if a.ID == "" {
			return model.InvalidInputf("assessment for control %s has no id", a.ControlID)
		}
		if seen["assess:"+a.ID] {
			return model.InvalidInputf("duplicate assessment %s", a.ID)
		}
		seen["assess:"+a.ID] = true
		if !known(a.ControlID) {
			return model.InvalidInputf("assessment %s references unknown control %q", a.ID, a.ControlID)
		}
	}

	for _, s := range ds.Settings {
		if s.ID == "" {
			return model.InvalidInputf("setting %q has no id", s.Name)
		}
		if seen["setting:"+s.ID] {
			return model.InvalidInputf("duplicate setting %s", s.ID)
		}
		seen["setting:"+s.ID] = true
		if err := validStatus(s.Automated); err != nil {
			return fmt.Errorf("setting %s: %w", s.ID, err)
		}
		if s.Manual != nil {
			if err := validStatus(s.Manual.Status); err != nil {
				return fmt.Errorf("setting %s manual review: %w", s.ID, err)
			}
		}
		for _, c := range s.Controls {
			if !known(c) {
				return model.InvalidInputf("setting %s maps to unknown control %q", s.ID, c)
			}
		}
	}

	for c := range ds.Activities {
		if !known(c) {
			return model.InvalidInputf("activities reference unknown control %q", c)
		}
	}
	return nil
}

func validStatus(s model.SettingStatus) error {
	switch s {
	case model.SettingUnknown, model.SettingCompliant, model.SettingNonCompliant:
		return nil
	default:
		return model.InvalidInputf("unknown setting status %q", s)
	}
}
