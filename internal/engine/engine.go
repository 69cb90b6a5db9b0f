// Package engine exposes the coverage, scoring and gap operations over a store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/controlgap/internal/aggregate"
	"github.com/ppiankov/controlgap/internal/cache"
	"github.com/ppiankov/controlgap/internal/coverage"
	"github.com/ppiankov/controlgap/internal/freshness"
	"github.com/ppiankov/controlgap/internal/gap"
	"github.com/ppiankov/controlgap/internal/model"
	"github.com/ppiankov/controlgap/internal/remediation"
	"github.com/ppiankov/controlgap/internal/score"
	"github.com/ppiankov/controlgap/internal/store"
	"github.com/ppiankov/controlgap/internal/worker"
)

// Engine computes reports from the records in a store. It never writes to the store.
type Engine struct {
	store     store.Store
	calc      *coverage.Calculator
	bands     aggregate.Bands
	scorer    *score.Scorer
	extractor *gap.Extractor
	cache     *cache.CoverageCache
	workers   int
	now       func() time.Time
	log       *zap.Logger
}

// Option customizes an Engine
type Option func(*Engine)

// WithClock sets the evaluation clock
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithCache replaces the configured coverage cache; nil disables caching
func WithCache(c *cache.CoverageCache) Option {
	return func(e *Engine) { e.cache = c }
}

// New builds an engine from configuration
func New(st store.Store, cfg *model.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dims, err := coverage.NewDimensionTable(cfg.Coverage.EvidenceDimensions)
	if err != nil {
		return nil, fmt.Errorf("invalid evidence dimensions: %w", err)
	}
	rules, err := score.RulesFromConfig(cfg.Scoring.SpecialRules)
	if err != nil {
		return nil, fmt.Errorf("invalid special rules: %w", err)
	}

	e := &Engine{
		store:     st,
		calc:      coverage.NewCalculator(cfg.Coverage.Weights, dims),
		bands:     aggregate.Bands{CriticalBelow: cfg.Coverage.CriticalBelow, CompliantAt: cfg.Coverage.CompliantAt},
		scorer:    score.NewScorer(cfg.Scoring.MinScore, cfg.Scoring.Bands, rules),
		extractor: gap.NewExtractor(dims),
		workers:   cfg.Concurrency.WorkerCount(),
		now:       time.Now,
		log:       zap.NewNop(),
	}
	if cfg.Cache.Enabled {
		e.cache = cache.NewCoverageCache(cache.NewMemoryCache(cfg.Cache.TTL, 2*cfg.Cache.TTL), 0)
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ComputeCoverage computes one control's coverage
func (e *Engine) ComputeCoverage(ctx context.Context, controlID string) (model.CoverageResult, error) {
	return e.coverageAt(ctx, controlID, e.now())
}

func (e *Engine) coverageAt(ctx context.Context, controlID string, now time.Time) (model.CoverageResult, error) {
	control, in, err := e.load(ctx, controlID)
	if err != nil {
		return model.CoverageResult{}, err
	}

	var key string
	if e.cache != nil {
		// inputs with a NaN or infinite threshold cannot be hashed and are computed uncached
		if key, err = cache.CoverageKey(controlID, in, now); err != nil {
			e.log.Debug("coverage not cacheable", zap.String("control_id", controlID), zap.Error(err))
			key = ""
		} else if result, ok := e.cache.Get(key); ok {
			e.log.Debug("coverage cache hit", zap.String("control_id", controlID))
			return result, nil
		}
	}

	result, err := e.calc.Calculate(control, in, freshness.NewClassifier(now))
	if err != nil {
		return model.CoverageResult{}, &model.ControlError{ControlID: controlID, Err: err}
	}

	if e.cache != nil && key != "" {
		if err := e.cache.Put(key, result); err != nil {
			e.log.Warn("failed to cache coverage", zap.String("control_id", controlID), zap.Error(err))
		}
	}
	return result, nil
}

func (e *Engine) load(ctx context.Context, controlID string) (model.Control, model.ControlInputs, error) {
	control, err := e.store.Control(ctx, controlID)
	if err != nil {
		return model.Control{}, model.ControlInputs{}, &model.ControlError{ControlID: controlID, Err: err}
	}
	in, err := e.store.Inputs(ctx, controlID)
	if err != nil {
		return model.Control{}, model.ControlInputs{}, &model.ControlError{ControlID: controlID, Err: err}
	}
	return control, in, nil
}

// batch computes coverage for controls concurrently at a single evaluation time
func (e *Engine) batch(ctx context.Context, controls []model.Control) ([]model.CoverageResult, []model.Failure) {
	now := e.now()
	ids := make([]string, len(controls))
	for i, c := range controls {
		ids[i] = c.ID
	}

	calc := worker.NewBatchCalculator(func(ctx context.Context, id string) (model.CoverageResult, error) {
		return e.coverageAt(ctx, id, now)
	}, e.workers)

	results, failed := worker.Split(calc.Calculate(ctx, ids))
	if len(failed) > 0 {
		e.log.Warn("coverage failed for some controls",
			zap.Int("failed", len(failed)),
			zap.Int("total", len(ids)))
	}
	return results, failed
}

func (e *Engine) aggregator(ctx context.Context) (*aggregate.Aggregator, error) {
	families, err := e.store.Families(ctx)
	if err != nil {
		return nil, fmt.Errorf("load families: %w", err)
	}
	names := make(map[string]string, len(families))
	for _, f := range families {
		names[f.Code] = f.Name
	}
	return aggregate.NewAggregator(e.bands, names), nil
}

// ComputeFamilyCoverage averages coverage over one family's controls
func (e *Engine) ComputeFamilyCoverage(ctx context.Context, family string) (model.FamilySummary, error) {
	code := model.NormalizeFamily(family)

	agg, err := e.aggregator(ctx)
	if err != nil {
		return model.FamilySummary{}, err
	}
	controls, err := e.store.Controls(ctx)
	if err != nil {
		return model.FamilySummary{}, fmt.Errorf("load controls: %w", err)
	}

	var members []model.Control
	for _, c := range controls {
		if c.Family == code {
			members = append(members, c)
		}
	}
	if len(members) == 0 {
		return model.FamilySummary{}, model.NotFoundf("family %s", family)
	}

	results, failed := e.batch(ctx, members)
	summary := agg.Family(code, results, failed)
	e.log.Info("family coverage computed",
		zap.String("family", code),
		zap.Int("controls", summary.ControlCount),
		zap.Int("failed", len(failed)))
	return summary, nil
}

// ComputeOrganizationSummary summarizes coverage across every control
func (e *Engine) ComputeOrganizationSummary(ctx context.Context) (model.OrganizationSummary, error) {
	agg, err := e.aggregator(ctx)
	if err != nil {
		return model.OrganizationSummary{}, err
	}
	controls, err := e.store.Controls(ctx)
	if err != nil {
		return model.OrganizationSummary{}, fmt.Errorf("load controls: %w", err)
	}

	results, failed := e.batch(ctx, controls)
	summary := agg.Organization(results, failed)
	e.log.Info("organization summary computed",
		zap.Int("controls", summary.TotalControls),
		zap.Int("failed", len(failed)))
	return summary, nil
}

// ComputeComplianceScore scores every control. Controls whose records cannot
// be read are reported in Failed and left out of the score.
func (e *Engine) ComputeComplianceScore(ctx context.Context) (model.ComplianceScoreResult, error) {
	controls, err := e.store.Controls(ctx)
	if err != nil {
		return model.ComplianceScoreResult{}, fmt.Errorf("load controls: %w", err)
	}

	states := make([]score.ControlState, 0, len(controls))
	var failed []model.Failure
	for _, c := range controls {
		if err := ctx.Err(); err != nil {
			return model.ComplianceScoreResult{}, err
		}
		in, err := e.store.Inputs(ctx, c.ID)
		if err != nil {
			failed = append(failed, model.Failure{ControlID: c.ID, Error: err.Error()})
			continue
		}
		states = append(states, score.ControlState{
			Control:  c,
			Latest:   model.LatestAssessment(in.Assessments),
			Settings: in.Settings,
		})
	}

	result := e.scorer.Calculate(states)
	result.Failed = failed
	e.log.Info("compliance score computed",
		zap.Int("current", result.CurrentScore),
		zap.Int("max", result.MaxScore),
		zap.Int("special", len(result.SpecialScoringControls)),
		zap.Int("failed", len(failed)))
	return result, nil
}

// ExtractGaps lists every gap for one control
func (e *Engine) ExtractGaps(ctx context.Context, controlID string) (model.GapSet, error) {
	control, in, err := e.load(ctx, controlID)
	if err != nil {
		return model.GapSet{}, err
	}
	set, err := e.extractor.Extract(control, in, freshness.NewClassifier(e.now()))
	if err != nil {
		return model.GapSet{}, &model.ControlError{ControlID: controlID, Err: err}
	}
	return set, nil
}

// GenerateGapDescription renders the selected gaps of a control. An empty
// title uses the catalog title.
func (e *Engine) GenerateGapDescription(ctx context.Context, controlID, title string, selectedIDs []string) (string, error) {
	control, set, err := e.controlGaps(ctx, controlID)
	if err != nil {
		return "", err
	}
	if title == "" {
		title = control.Title
	}
	return remediation.Describe(control.ID, title, set, selectedIDs), nil
}

// DraftRemediation builds a remediation record seeded from the selected gaps
func (e *Engine) DraftRemediation(ctx context.Context, controlID, title string, selectedIDs []string) (model.RemediationDraft, error) {
	control, set, err := e.controlGaps(ctx, controlID)
	if err != nil {
		return model.RemediationDraft{}, err
	}
	draft := remediation.NewDraft(control, title, set, selectedIDs, e.now())
	e.log.Info("remediation draft created",
		zap.String("control_id", controlID),
		zap.String("draft_id", draft.ID),
		zap.Int("gap_items", len(draft.GapItemIDs)))
	return draft, nil
}

func (e *Engine) controlGaps(ctx context.Context, controlID string) (model.Control, model.GapSet, error) {
	control, in, err := e.load(ctx, controlID)
	if err != nil {
		return model.Control{}, model.GapSet{}, err
	}
	set, err := e.extractor.Extract(control, in, freshness.NewClassifier(e.now()))
	if err != nil {
		return model.Control{}, model.GapSet{}, &model.ControlError{ControlID: controlID, Err: err}
	}
	return control, set, nil
}

// IsNotFound reports whether err means an unknown control or family
func IsNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}

// IsInvalidInput reports whether err means malformed input
func IsInvalidInput(err error) bool {
	return errors.Is(err, model.ErrInvalidInput)
}
