package cache

import (
	"testing"
	"time"

	"github.com/ppiankov/controlgap/internal/model"
)

var evaluated = time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)

func sampleInputs() model.ControlInputs {
	return model.ControlInputs{
		Requirements: []model.EvidenceRequirement{{ID: "p1", Type: model.EvidencePolicy, Name: "Access Control Policy"}},
		Activities:   []string{"Review accounts"},
	}
}

func TestCoverageKey(t *testing.T) {
	base, err := CoverageKey("03.01.01", sampleInputs(), evaluated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	same, _ := CoverageKey("03.01.01", sampleInputs(), evaluated.Add(5*time.Hour))
	if same != base {
		t.Error("expected the same key within one evaluation day")
	}

	nextDay, _ := CoverageKey("03.01.01", sampleInputs(), evaluated.AddDate(0, 0, 1))
	if nextDay == base {
		t.Error("expected a new key on the next day")
	}

	changed := sampleInputs()
	changed.Activities = append(changed.Activities, "Disable inactive accounts")
	mutated, _ := CoverageKey("03.01.01", changed, evaluated)
	if mutated == base {
		t.Error("expected a new key after inputs change")
	}

	other, _ := CoverageKey("03.01.02", sampleInputs(), evaluated)
	if other == base {
		t.Error("expected keys to differ per control")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := c.Get("k"); !ok || string(v) != "v" {
		t.Errorf("expected v, got %q (found=%v)", v, ok)
	}
	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after delete")
	}

	_ = c.Set("a", []byte("1"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestCoverageCache_RoundTrip(t *testing.T) {
	cc := NewCoverageCache(NewMemoryCache(time.Minute, time.Minute), 0)

	result := model.CoverageResult{
		ControlID:     "03.01.01",
		Family:        "AC",
		Technical:     100.0 / 3,
		Documentation: 50,
		Operational:   100,
		Physical:      100,
		Overall:       73.33333333333333,
		Breakdown: map[model.Dimension]model.DimensionBreakdown{
			model.DimensionTechnical: {Satisfied: 1, Total: 3, Applies: true, Percent: 100.0 / 3},
		},
	}

	if _, ok := cc.Get("k"); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := cc.Put("k", result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := cc.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Technical != result.Technical || got.Overall != result.Overall {
		t.Errorf("expected exact floats to survive, got %v/%v", got.Technical, got.Overall)
	}
	if got.Breakdown[model.DimensionTechnical].Total != 3 {
		t.Errorf("expected breakdown to survive, got %+v", got.Breakdown)
	}
}

func TestCoverageCache_CorruptEntry(t *testing.T) {
	backend := NewMemoryCache(time.Minute, time.Minute)
	_ = backend.Set("k", []byte("{not json"), 0)

	cc := NewCoverageCache(backend, 0)
	if _, ok := cc.Get("k"); ok {
		t.Error("expected corrupt entry to miss")
	}
	if _, ok := backend.Get("k"); ok {
		t.Error("expected corrupt entry to be dropped")
	}
}
