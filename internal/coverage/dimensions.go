package coverage

import (
	"fmt"
	"strings"

	"github.com/ppiankov/controlgap/internal/model"
)

// defaultDimensions maps evidence types to the dimension they count toward.
// Types absent from the table are not counted unless configured.
var defaultDimensions = map[model.EvidenceType]model.Dimension{
	model.EvidencePolicy:    model.DimensionDocumentation,
	model.EvidenceProcedure: model.DimensionDocumentation,
	model.EvidenceExecution: model.DimensionOperational,
	model.EvidencePhysical:  model.DimensionPhysical,
}

// DimensionTable resolves which coverage dimension an evidence type belongs to
type DimensionTable struct {
	byType map[model.EvidenceType]model.Dimension
}

// NewDimensionTable builds the table from defaults plus overrides keyed by
// evidence type name. An override value of "none" removes the type.
func NewDimensionTable(overrides map[string]string) (*DimensionTable, error) {
	byType := make(map[model.EvidenceType]model.Dimension, len(defaultDimensions)+len(overrides))
	for t, d := range defaultDimensions {
		byType[t] = d
	}

	for rawType, rawDim := range overrides {
		t := model.EvidenceType(strings.ToLower(strings.TrimSpace(rawType)))
		if !t.Valid() {
			return nil, model.InvalidInputf("unknown evidence type %q in dimension overrides", rawType)
		}
		d, err := parseDimension(rawDim)
		if err != nil {
			return nil, err
		}
		if d == model.DimensionNone {
			delete(byType, t)
			continue
		}
		byType[t] = d
	}

	return &DimensionTable{byType: byType}, nil
}

// DefaultDimensionTable returns the built-in mapping
func DefaultDimensionTable() *DimensionTable {
	t, _ := NewDimensionTable(nil)
	return t
}

// For returns the dimension for an evidence type, or DimensionNone
func (t *DimensionTable) For(et model.EvidenceType) model.Dimension {
	return t.byType[et]
}

func parseDimension(raw string) (model.Dimension, error) {
	switch d := model.Dimension(strings.ToLower(strings.TrimSpace(raw))); d {
	case model.DimensionTechnical, model.DimensionOperational, model.DimensionDocumentation, model.DimensionPhysical:
		return d, nil
	case "none", "":
		return model.DimensionNone, nil
	default:
		return "", fmt.Errorf("%w: unknown coverage dimension %q", model.ErrInvalidInput, raw)
	}
}
