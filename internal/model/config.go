package model

import (
	"fmt"
	"math"
	"runtime"
	"time"
)

// Config is the complete controlgap configuration
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Coverage    CoverageConfig    `yaml:"coverage" mapstructure:"coverage"`
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects where control inputs are read from
type StoreConfig struct {
	Driver     string `yaml:"driver" mapstructure:"driver"`           // yaml or sqlite
	Dataset    string `yaml:"dataset" mapstructure:"dataset"`         // YAML dataset path or http(s) URL (yaml driver)
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"` // Database file (sqlite driver)

	// Remote dataset downloads
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// DimensionWeights blends the four dimensions into the overall percentage
type DimensionWeights struct {
	Technical     float64 `yaml:"technical" mapstructure:"technical"`
	Documentation float64 `yaml:"documentation" mapstructure:"documentation"`
	Operational   float64 `yaml:"operational" mapstructure:"operational"`
	Physical      float64 `yaml:"physical" mapstructure:"physical"`
}

// Sum returns the total of all weights
func (w DimensionWeights) Sum() float64 {
	return w.Technical + w.Documentation + w.Operational + w.Physical
}

// CoverageConfig tunes the coverage calculator and aggregator
type CoverageConfig struct {
	Weights DimensionWeights `yaml:"weights" mapstructure:"weights"`
	// EvidenceDimensions overrides the built-in evidence type to dimension table.
	// Use "none" to exclude a type.
	EvidenceDimensions map[string]string `yaml:"evidence_dimensions" mapstructure:"evidence_dimensions"`
	CriticalBelow      float64           `yaml:"critical_below" mapstructure:"critical_below"`
	CompliantAt        float64           `yaml:"compliant_at" mapstructure:"compliant_at"`
}

// ScoreBand maps a score percentage floor to a label and color
type ScoreBand struct {
	MinPercent float64 `yaml:"min_percent" mapstructure:"min_percent"`
	Label      string  `yaml:"label" mapstructure:"label"`
	Color      string  `yaml:"color" mapstructure:"color"`
}

// SpecialRuleConfig declares a condition a control must meet on top of being implemented
type SpecialRuleConfig struct {
	ControlID string   `yaml:"control_id" mapstructure:"control_id"`
	Name      string   `yaml:"name" mapstructure:"name"`
	Kind      string   `yaml:"kind" mapstructure:"kind"`         // settings
	Settings  []string `yaml:"settings" mapstructure:"settings"` // Setting ids that must all be compliant
	Reason    string   `yaml:"reason" mapstructure:"reason"`
}

// ScoringConfig tunes the weighted compliance scorer
type ScoringConfig struct {
	MinScore     int                 `yaml:"min_score" mapstructure:"min_score"`
	Bands        []ScoreBand         `yaml:"bands" mapstructure:"bands"` // Highest floor first; the last band catches everything below
	SpecialRules []SpecialRuleConfig `yaml:"special_rules" mapstructure:"special_rules"`
}

// CacheConfig controls coverage memoization
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ConcurrencyConfig controls batch coverage workers
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // 0 means one per CPU
}

// WorkerCount resolves the configured worker count on this machine
func (c ConcurrencyConfig) WorkerCount() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr              string  `yaml:"addr" mapstructure:"addr"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// LogConfig controls zap logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:       "yaml",
			Dataset:      "controlgap.yaml",
			SQLitePath:   "controlgap.db",
			FetchTimeout: 30 * time.Second,
		},
		Coverage: CoverageConfig{
			Weights: DimensionWeights{
				Technical:     0.40,
				Documentation: 0.30,
				Operational:   0.20,
				Physical:      0.10,
			},
			EvidenceDimensions: map[string]string{},
			CriticalBelow:      50,
			CompliantAt:        90,
		},
		Scoring: ScoringConfig{
			MinScore: -203,
			Bands: []ScoreBand{
				{MinPercent: 80, Label: "pass", Color: "green"},
				{MinPercent: 0, Label: "warn", Color: "yellow"},
				{MinPercent: -100, Label: "fail", Color: "red"},
			},
			SpecialRules: []SpecialRuleConfig{
				{
					ControlID: "03.05.03",
					Name:      "mfa-enforced",
					Kind:      "settings",
					Settings:  []string{"mfa-required-all-users"},
					Reason:    "multi-factor authentication is not enforced for all users",
				},
				{
					ControlID: "03.13.11",
					Name:      "fips-validated-crypto",
					Kind:      "settings",
					Settings:  []string{"fips-validated-modules"},
					Reason:    "cryptographic modules are not FIPS-validated",
				},
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 0,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for values the engine cannot work with
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "yaml", "sqlite":
	default:
		return InvalidInputf("unknown store driver %q (want yaml or sqlite)", c.Store.Driver)
	}

	w := c.Coverage.Weights
	for name, v := range map[string]float64{
		"technical": w.Technical, "documentation": w.Documentation,
		"operational": w.Operational, "physical": w.Physical,
	} {
		if math.IsNaN(v) || v < 0 {
			return InvalidInputf("coverage weight %s must be a non-negative number", name)
		}
	}
	if math.Abs(w.Sum()-1) > 1e-9 {
		return InvalidInputf("coverage weights must sum to 1, got %.4f", w.Sum())
	}
	if c.Coverage.CriticalBelow > c.Coverage.CompliantAt {
		return InvalidInputf("coverage critical_below (%.0f) exceeds compliant_at (%.0f)",
			c.Coverage.CriticalBelow, c.Coverage.CompliantAt)
	}
	for i := 1; i < len(c.Scoring.Bands); i++ {
		if c.Scoring.Bands[i].MinPercent > c.Scoring.Bands[i-1].MinPercent {
			return InvalidInputf("scoring bands must be ordered by descending min_percent")
		}
	}
	for _, r := range c.Scoring.SpecialRules {
		if r.ControlID == "" {
			return InvalidInputf("special rule %q has no control_id", r.Name)
		}
	}
	if c.Concurrency.Workers < 0 {
		return fmt.Errorf("%w: concurrency workers must not be negative", ErrInvalidInput)
	}
	return nil
}
