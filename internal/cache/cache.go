// Package cache memoizes coverage results keyed by a digest of their inputs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/controlgap/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
}

// CoverageKey identifies a coverage computation. Any change to the control's
// inputs or to the evaluation day yields a different key, so an entry can
// never outlive the data it was computed from.
func CoverageKey(controlID string, in model.ControlInputs, evaluated time.Time) (string, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("hash inputs of %s: %w", controlID, err)
	}
	hash := sha256.Sum256(payload)
	return "controlgap:v1:coverage:" + controlID + ":" + evaluated.UTC().Format("2006-01-02") + ":" + hex.EncodeToString(hash[:]), nil
}
