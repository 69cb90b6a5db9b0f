// Package freshness classifies how current a requirement's evidence is
// relative to its declared threshold.
package freshness

import (
	"fmt"
	"math"
	"time"

	"github.com/ppiankov/controlgap/internal/model"
)

// Classifier classifies evidence age against a fixed evaluation time
type Classifier struct {
	now time.Time
}

// NewClassifier creates a classifier evaluating ages as of now
func NewClassifier(now time.Time) *Classifier {
	return &Classifier{now: now}
}

// Classify returns the freshness status of a requirement.
//
// Only the most recent instance (by reference date) is considered. Age is
// counted in whole UTC calendar days, and each tier is inclusive on its upper
// bound: exactly T days old is fresh, exactly 2T is aging, exactly 3T is stale.
func (c *Classifier) Classify(req model.EvidenceRequirement) (model.FreshnessStatus, error) {
	if math.IsNaN(req.FreshnessDays) || math.IsInf(req.FreshnessDays, 0) {
		return "", model.InvalidInputf("requirement %s: freshness threshold is not a finite number", req.ID)
	}

	latest, ok, err := Latest(req.Instances)
	if err != nil {
		return "", model.InvalidInputf("requirement %s: %v", req.ID, err)
	}
	if !ok {
		return model.FreshnessMissing, nil
	}

	threshold := req.FreshnessDays
	if threshold <= 0 {
		return model.FreshnessFresh, nil
	}

	age := float64(AgeDays(latest, c.now))
	switch {
	case age <= threshold:
		return model.FreshnessFresh, nil
	case age <= 2*threshold:
		return model.FreshnessAging, nil
	case age <= 3*threshold:
		return model.FreshnessStale, nil
	default:
		return model.FreshnessCritical, nil
	}
}

// Latest returns the most recent reference date among instances.
// ok is false when there are no instances.
func Latest(instances []model.EvidenceInstance) (latest time.Time, ok bool, err error) {
	for _, inst := range instances {
		ref := inst.ReferenceDate()
		if ref.IsZero() {
			return time.Time{}, false, fmt.Errorf("evidence instance %s has no upload or execution date", inst.ID)
		}
		if !ok || ref.After(latest) {
			latest = ref
			ok = true
		}
	}
	return latest, ok, nil
}

// AgeDays counts whole calendar days (UTC) from ref to now.
// Evidence dated in the future has age zero.
func AgeDays(ref, now time.Time) int {
	r := ref.UTC()
	n := now.UTC()
	refDay := time.Date(r.Year(), r.Month(), r.Day(), 0, 0, 0, 0, time.UTC)
	nowDay := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	days := int(nowDay.Sub(refDay).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
