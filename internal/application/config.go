package application

import (
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig defines the complete specification for a recommendation
// engine and serves as the primary configuration entry point for it.
// Use EngineConfig to declare which blacklists and scoring units run,
// how they are grouped into stages, and the limits every pass obeys.
type EngineConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning to ensure compatibility across system updates.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata contains descriptive information about the engine
	// including name, tags, and labels for organization and discovery.
	Metadata Metadata `yaml:"metadata" validate:"required"`
	// Limits bounds the size and duration of every recommendation pass.
	Limits LimitsConfig `yaml:"limits"`
	// Precompute configures the precomputed execution mode.
	Precompute PrecomputeConfig `yaml:"precompute"`
	// FailFast aborts a pass on the first blacklist or unit failure
	// instead of isolating the failure and ranking partial results.
	FailFast bool `yaml:"fail_fast"`
	// Blacklists remove candidates from every pass before any stage runs.
	Blacklists []BlacklistConfig `yaml:"blacklists" validate:"dive"`
	// Units defines the scoring units available to stages, each with
	// its own type and parameters.
	Units []UnitConfig `yaml:"units" validate:"required,min=1,dive"`
	// Stages lists unit groups in execution order.
	Stages []StageConfig `yaml:"stages" validate:"required,min=1,dive"`
}

// Metadata provides descriptive information about an engine definition
// to support organization, discovery, and operational management.
type Metadata struct {
	// Name is the human-readable identifier for this engine
	// and must be unique within the deployment scope.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description provides a detailed explanation of the engine's purpose.
	Description string `yaml:"description" validate:"max=1000"`
	// Tags are categorical labels that enable filtering and grouping.
	Tags []string `yaml:"tags" validate:"max=20,dive,min=1,max=50"`
	// Labels are arbitrary key-value pairs for integration with external systems.
	Labels map[string]string `yaml:"labels" validate:"max=50"`
}

// LimitsConfig bounds recommendation passes. Zero values select the
// defaults documented on each field.
type LimitsConfig struct {
	// DefaultLimit is the number of results returned when a caller does
	// not ask for a specific amount. Defaults to 10.
	DefaultLimit int `yaml:"default_limit" validate:"omitempty,min=1,max=10000"`
	// MaxLimit is the largest limit a caller may request. Defaults to 100.
	MaxLimit int `yaml:"max_limit" validate:"omitempty,min=1,max=10000"`
	// PassTimeoutMs is the deadline of a whole pass in milliseconds. When it
	// expires the pass returns the contributions made so far. Zero
	// disables the deadline.
	PassTimeoutMs int `yaml:"pass_timeout_ms" validate:"omitempty,min=1,max=600000"`
	// UnitTimeoutMs bounds a single unit invocation in milliseconds. Zero
	// disables the per-unit deadline.
	UnitTimeoutMs int `yaml:"unit_timeout_ms" validate:"omitempty,min=1,max=600000"`
	// Concurrency caps the number of units of one stage running at once.
	// Zero selects twice the number of CPUs.
	Concurrency int `yaml:"concurrency" validate:"omitempty,min=1,max=1024"`
}

// PrecomputeConfig configures the precomputed execution mode.
type PrecomputeConfig struct {
	// MaxRecommendations is the length of every cached ranking and the
	// largest limit a precomputed read can serve. Defaults to MaxLimit.
	MaxRecommendations int `yaml:"max_recommendations" validate:"omitempty,min=1,max=10000"`
	// PopulateOnMiss stores a full ranking for subjects whose cache
	// entry was missing when a precomputed read fell back to real time.
	PopulateOnMiss bool `yaml:"populate_on_miss"`
}

// BlacklistConfig defines a single blacklist of an engine.
type BlacklistConfig struct {
	// ID is the unique identifier for this blacklist within the engine.
	ID string `yaml:"id" validate:"required,identifier,max=100"`
	// Type selects the registered blacklist implementation.
	Type string `yaml:"type" validate:"required,identifier"`
	// Parameters contains type-specific configuration.
	Parameters yaml.Node `yaml:"parameters,omitempty"`
}

// UnitConfig defines the specification for a single scoring unit of an
// engine.
type UnitConfig struct {
	// ID is the unique identifier for this unit within the engine and is
	// how stages reference it.
	ID string `yaml:"id" validate:"required,identifier,max=100"`
	// Type selects the registered scoring unit implementation, determining
	// the available parameters and scoring behavior.
	Type string `yaml:"type" validate:"required,identifier"`
	// Parameters contains type-specific configuration as flexible YAML
	// that will be validated according to the unit type requirements.
	Parameters yaml.Node `yaml:"parameters,omitempty"`
}

// StageConfig defines a group of units that run concurrently. Stages
// run in the order they are listed.
type StageConfig struct {
	// ID is the unique identifier for this stage within the engine.
	ID string `yaml:"id" validate:"required,identifier,max=100"`
	// Units lists the unit IDs that run in this stage.
	Units []string `yaml:"units" validate:"required,min=1,dive,identifier"`
	// Isolation selects whether units write into the pass aggregator
	// directly ("shared", the default) or into private aggregators
	// merged after they succeed ("isolated").
	Isolation string `yaml:"isolation" validate:"omitempty,oneof=shared isolated"`
	// SkipWhenEnough skips the stage when the pass already holds enough
	// candidates for the requested limit.
	SkipWhenEnough bool `yaml:"skip_when_enough"`
	// StopWhenEnough cancels the remaining units of the stage once the
	// pass holds enough candidates.
	StopWhenEnough bool `yaml:"stop_when_enough"`
}

// Default limits applied by Settings.
const (
	defaultLimit    = 10
	defaultMaxLimit = 100
)

// Settings are the resolved runtime limits of a compiled engine.
type Settings struct {
	DefaultLimit       int
	MaxLimit           int
	MaxRecommendations int
	PassTimeout        time.Duration
	UnitTimeout        time.Duration
	Concurrency        int
	PopulateOnMiss     bool
	FailFast           bool
}

// Settings resolves the configured limits, applying defaults for
// omitted values.
func (c *EngineConfig) Settings() Settings {
	s := Settings{
		DefaultLimit:       c.Limits.DefaultLimit,
		MaxLimit:           c.Limits.MaxLimit,
		MaxRecommendations: c.Precompute.MaxRecommendations,
		PassTimeout:        time.Duration(c.Limits.PassTimeoutMs) * time.Millisecond,
		UnitTimeout:        time.Duration(c.Limits.UnitTimeoutMs) * time.Millisecond,
		Concurrency:        c.Limits.Concurrency,
		PopulateOnMiss:     c.Precompute.PopulateOnMiss,
		FailFast:           c.FailFast,
	}
	if s.MaxLimit == 0 {
		s.MaxLimit = defaultMaxLimit
	}
	if s.DefaultLimit == 0 {
		s.DefaultLimit = min(defaultLimit, s.MaxLimit)
	}
	if s.MaxRecommendations == 0 {
		s.MaxRecommendations = s.MaxLimit
	}
	return s
}
