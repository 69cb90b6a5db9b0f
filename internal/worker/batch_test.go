package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/controlgap/internal/model"
)

func fakeCoverage(failing ...string) CoverageFunc {
	fail := make(map[string]bool)
	for _, id := range failing {
		fail[id] = true
	}
	return func(ctx context.Context, id string) (model.CoverageResult, error) {
		time.Sleep(time.Millisecond)
		if fail[id] {
			return model.CoverageResult{}, model.NotFoundf("control %s", id)
		}
		return model.CoverageResult{ControlID: id, Overall: 50}, nil
	}
}

func writeIDs(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "ids")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestBatchCalculator_SortedResults(t *testing.T) {
	calc := NewBatchCalculator(fakeCoverage(), 4)

	ids := make([]string, 0, 50)
	for i := 50; i > 0; i-- {
		ids = append(ids, fmt.Sprintf("03.01.%02d", i))
	}

	results := calc.Calculate(context.Background(), ids)
	if len(results) != 50 {
		t.Fatalf("expected 50 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].ControlID >= results[i].ControlID {
			t.Fatalf("expected results sorted, %s before %s", results[i-1].ControlID, results[i].ControlID)
		}
	}
	if results[0].Coverage.ControlID != "03.01.01" {
		t.Errorf("expected coverage attached to its control, got %s", results[0].Coverage.ControlID)
	}
}

func TestBatchCalculator_Failures(t *testing.T) {
	calc := NewBatchCalculator(fakeCoverage("03.01.02"), 2)

	results := calc.Calculate(context.Background(), []string{"03.01.01", "03.01.02", "03.01.03"})
	ok, failed := Split(results)

	if len(ok) != 2 {
		t.Errorf("expected 2 successes, got %d", len(ok))
	}
	if len(failed) != 1 || failed[0].ControlID != "03.01.02" {
		t.Fatalf("expected 03.01.02 to fail, got %+v", failed)
	}
	if !errors.Is(results[1].Error, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", results[1].Error)
	}
}

func TestBatchCalculator_Empty(t *testing.T) {
	calc := NewBatchCalculator(fakeCoverage(), 2)
	if results := calc.Calculate(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchCalculator_Cancelled(t *testing.T) {
	calc := NewBatchCalculator(fakeCoverage(), 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := calc.Calculate(ctx, []string{"03.01.01", "03.01.02"})
	for _, r := range results {
		if r.Error == nil {
			t.Errorf("expected %s to report cancellation", r.ControlID)
		}
	}
}

func TestBatchCalculator_DuplicateIDsComputedOnce(t *testing.T) {
	var mu sync.Mutex
	calls := make(map[string]int)
	compute := func(ctx context.Context, id string) (model.CoverageResult, error) {
		mu.Lock()
		calls[id]++
		mu.Unlock()
		return model.CoverageResult{ControlID: id}, nil
	}

	results := NewBatchCalculator(compute, 2).Calculate(context.Background(),
		[]string{"03.01.01", "03.01.02", "03.01.01"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if calls["03.01.01"] != 1 {
		t.Errorf("expected 03.01.01 computed once, got %d", calls["03.01.01"])
	}
}

func TestUniqueIDs(t *testing.T) {
	ids := UniqueIDs([]string{"b", "a", "b", "c", "a"})
	expected := []string{"b", "a", "c"}
	if len(ids) != len(expected) {
		t.Fatalf("expected %d ids, got %d", len(expected), len(ids))
	}
	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("expected %s at index %d, got %s", expected[i], i, id)
		}
	}
}

func TestReadControlIDsFromFile(t *testing.T) {
	path := writeIDs(t, "03.01.01\n# comment\n  03.03.01  \n\n03.05.03\n03.01.01\n")

	ids, err := ReadControlIDsFromFile(path)
	if err != nil {
		t.Fatalf("ReadControlIDsFromFile failed: %v", err)
	}

	expected := []string{"03.01.01", "03.03.01", "03.05.03"}
	if len(ids) != len(expected) {
		t.Fatalf("expected %d ids, got %d", len(expected), len(ids))
	}
	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("expected %s at index %d, got %s", expected[i], i, id)
		}
	}
}

func TestCoverageResult_GetError(t *testing.T) {
	expected := errors.New("boom")
	r := &CoverageResult{ControlID: "03.01.01", Error: expected}
	if r.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r.GetError())
	}
}

func TestReadControlIDsFromFile_Missing(t *testing.T) {
	if _, err := ReadControlIDsFromFile("no_such_file.txt"); err == nil {
		t.Error("expected error for non-existent file")
	}
}
