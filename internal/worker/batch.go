package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/controlgap/internal/model"
)

// CoverageFunc computes coverage for one control
type CoverageFunc func(ctx context.Context, controlID string) (model.CoverageResult, error)

// CoverageJob computes one control's coverage
type CoverageJob struct {
	ControlID string
	Compute   CoverageFunc
}

// Execute executes the coverage job
func (j *CoverageJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &CoverageResult{ControlID: j.ControlID, Error: err}
	}
	result, err := j.Compute(ctx, j.ControlID)
	return &CoverageResult{
		ControlID: j.ControlID,
		Coverage:  result,
		Error:     err,
	}
}

// CoverageResult represents the result of a coverage job
type CoverageResult struct {
	ControlID string
	Coverage  model.CoverageResult
	Error     error
}

// GetError returns the error from the coverage result
func (r *CoverageResult) GetError() error {
	return r.Error
}

// BatchCalculator computes coverage for many controls concurrently
type BatchCalculator struct {
	compute     CoverageFunc
	concurrency int
}

// NewBatchCalculator creates a new batch calculator
func NewBatchCalculator(compute CoverageFunc, concurrency int) *BatchCalculator {
	return &BatchCalculator{
		compute:     compute,
		concurrency: concurrency,
	}
}

// Calculate computes every distinct control and returns results sorted by control id.
// Controls not reached before ctx is cancelled are reported with the context error.
func (b *BatchCalculator) Calculate(ctx context.Context, controlIDs []string) []*CoverageResult {
	controlIDs = UniqueIDs(controlIDs)
	if len(controlIDs) == 0 {
		return []*CoverageResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, id := range controlIDs {
		if err := pool.Submit(&CoverageJob{ControlID: id, Compute: b.compute}); err != nil {
			break
		}
	}

	results := pool.Wait()

	out := make([]*CoverageResult, 0, len(controlIDs))
	reported := make(map[string]bool, len(results))
	for _, r := range results {
		cr := r.(*CoverageResult)
		reported[cr.ControlID] = true
		out = append(out, cr)
	}

	// jobs dropped by cancellation still need a result
	for _, id := range controlIDs {
		if reported[id] {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		reported[id] = true
		out = append(out, &CoverageResult{ControlID: id, Error: err})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ControlID < out[j].ControlID
	})
	return out
}

// Split separates successful results from failures, keeping order
func Split(results []*CoverageResult) ([]model.CoverageResult, []model.Failure) {
	ok := make([]model.CoverageResult, 0, len(results))
	var failed []model.Failure
	for _, r := range results {
		if r.Error != nil {
			failed = append(failed, model.Failure{ControlID: r.ControlID, Error: r.Error.Error()})
			continue
		}
		ok = append(ok, r.Coverage)
	}
	return ok, failed
}

// ReadControlIDsFromFile reads control ids from a file (one per line)
func ReadControlIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return UniqueIDs(ids), nil
}

// UniqueIDs drops repeated ids, keeping the first occurrence of each
func UniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
