package store

import (
	"context"
	"sort"

	"github.com/ppiankov/controlgap/internal/catalog"
	"github.com/ppiankov/controlgap/internal/model"
)

// Memory is a read-only in-memory store built from a dataset
type Memory struct {
	catalog *catalog.Catalog
	inputs  map[string]model.ControlInputs
}

// NewMemory validates the dataset and indexes it per control
func NewMemory(ds *Dataset) (*Memory, error) {
	cat, err := CatalogFor(ds)
	if err != nil {
		return nil, err
	}
	if err := ds.Validate(cat.Has); err != nil {
		return nil, err
	}

	inputs := make(map[string]model.ControlInputs, len(cat.Controls))
	for _, r := range ds.Requirements {
		req := r.Model()
		in := inputs[req.ControlID]
		in.Requirements = append(in.Requirements, req)
		inputs[req.ControlID] = in
	}
	for _, a := range ds.Assessments {
		in := inputs[a.ControlID]
		in.Assessments = append(in.Assessments, a)
		inputs[a.ControlID] = in
	}
	for _, s := range ds.Settings {
		for _, c := range s.Controls {
			in := inputs[c]
			in.Settings = append(in.Settings, s.Result())
			inputs[c] = in
		}
	}
	for c, activities := range ds.Activities {
		in := inputs[c]
		in.Activities = append(in.Activities, activities...)
		inputs[c] = in
	}

	for id, in := range inputs {
		sort.SliceStable(in.Requirements, func(i, j int) bool { return in.Requirements[i].ID < in.Requirements[j].ID })
		sort.SliceStable(in.Settings, func(i, j int) bool { return in.Settings[i].SettingID < in.Settings[j].SettingID })
		inputs[id] = in
	}

	return &Memory{catalog: cat, inputs: inputs}, nil
}

// CatalogFor returns the dataset's own catalog, or the built-in one when
// the dataset declares no controls
func CatalogFor(ds *Dataset) (*catalog.Catalog, error) {
	if len(ds.Controls) == 0 {
		return catalog.Default()
	}
	return catalog.New(ds.Families, ds.Controls)
}

// Controls returns every control ordered by id
func (m *Memory) Controls(ctx context.Context) ([]model.Control, error) {
	return append([]model.Control(nil), m.catalog.Controls...), nil
}

// Control returns one control
func (m *Memory) Control(ctx context.Context, id string) (model.Control, error) {
	return m.catalog.Control(id)
}

// Families returns every family ordered by code
func (m *Memory) Families(ctx context.Context) ([]model.Family, error) {
	return append([]model.Family(nil), m.catalog.Families...), nil
}

// Inputs returns a copy of the control's records
func (m *Memory) Inputs(ctx context.Context, controlID string) (model.ControlInputs, error) {
	if !m.catalog.Has(controlID) {
		return model.ControlInputs{}, model.NotFoundf("control %s", controlID)
	}
	in := m.inputs[controlID]
	return model.ControlInputs{
		Requirements: append([]model.EvidenceRequirement(nil), in.Requirements...),
		Assessments:  append([]model.AssessmentAnswer(nil), in.Assessments...),
		Settings:     append([]model.SettingResult(nil), in.Settings...),
		Activities:   append([]string(nil), in.Activities...),
	}, nil
}

// Close is a no-op
func (m *Memory) Close() error {
	return nil
}
