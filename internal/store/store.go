// Package store provides read access to controls and the evidence,
// assessment and setting records attached to them.
package store

import (
	"context"

	"github.com/ppiankov/controlgap/internal/model"
)

// Store is the engine's read path. Implementations return ErrNotFound for
// unknown control ids.
type Store interface {
	// Controls returns every control ordered by id
	Controls(ctx context.Context) ([]model.Control, error)
	Control(ctx context.Context, id string) (model.Control, error)
	// Families returns every family ordered by code
	Families(ctx context.Context) ([]model.Family, error)
	// Inputs returns the requirements, assessments, mapped settings and
	// activities of one control
	Inputs(ctx context.Context, controlID string) (model.ControlInputs, error)
	Close() error
}
