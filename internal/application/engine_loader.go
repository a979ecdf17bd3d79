package application

import (
	"bytes"
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

// Definition is a compiled engine definition: the validated
// configuration, its resolved settings, and the executable pipeline.
// Definitions returned by EngineLoader are shared and MUST NOT be mutated.
type Definition[S any, T cmp.Ordered] struct {
	// Name is the metadata name of the engine.
	Name string
	// Hash is the SHA256 of the normalized configuration.
	Hash string
	// Config is the parsed configuration.
	Config *EngineConfig
	// Settings are the resolved runtime limits.
	Settings Settings
	// Pipeline runs the blacklists and stages of the engine.
	Pipeline *Pipeline[S, T]
}

// EngineLoader provides YAML configuration parsing, validation, and caching
// for engine definitions, transforming declarative YAML specifications into
// executable pipelines.
// Use EngineLoader to load definitions from files or readers while
// benefiting from SHA256-based caching and comprehensive validation.
type EngineLoader[S any, T cmp.Ordered] struct {
	// validator performs struct field validation and custom validation
	// rules for engine configurations and their nested components.
	validator *validator.Validate
	// registry provides factory methods for creating units and blacklists
	// based on their type and configuration parameters.
	registry ports.UnitRegistry[S, T]
	// cache stores compiled definitions indexed by SHA256 hash of the
	// normalized configuration to avoid recompiling identical definitions.
	cache   map[string]*Definition[S, T]
	cacheMu sync.RWMutex
	// sf prevents duplicate compilation when multiple goroutines
	// request the same definition simultaneously.
	sf singleflight.Group
}

// NewEngineLoader creates a new loader with validation capabilities and
// an empty cache.
// NewEngineLoader returns an error if validator registration fails.
func NewEngineLoader[S any, T cmp.Ordered](registry ports.UnitRegistry[S, T]) (*EngineLoader[S, T], error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: unit registry is required", domain.ErrInvalidConfiguration)
	}

	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	return &EngineLoader[S, T]{
		validator: v,
		registry:  registry,
		cache:     make(map[string]*Definition[S, T]),
	}, nil
}

// load is the common implementation for loading definitions from byte
// data, utilizing singleflight to prevent duplicate compilation and
// SHA256-based caching for efficiency.
func (el *EngineLoader[S, T]) load(ctx context.Context, data []byte) (*Definition[S, T], error) {
	// Parse YAML first to normalize it before hashing.
	config, err := el.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	hash, err := el.calculateConfigHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := el.sf.Do(hash, func() (any, error) {
		// Check cache inside singleflight to handle race between cache check
		// and singleflight group execution.
		if def, ok := el.getCachedDefinition(hash); ok {
			return def, nil
		}

		if err := el.validateConfig(config); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		pipeline, err := el.buildPipeline(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to build pipeline: %w", err)
		}

		def := &Definition[S, T]{
			Name:     config.Metadata.Name,
			Hash:     hash,
			Config:   config,
			Settings: config.Settings(),
			Pipeline: pipeline,
		}
		el.cacheDefinition(hash, def)

		return def, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Definition[S, T]), nil
}

// Load compiles a definition held in memory, such as an embedded file.
func (el *EngineLoader[S, T]) Load(ctx context.Context, data []byte) (*Definition[S, T], error) {
	return el.load(ctx, data)
}

// LoadFromFile loads and compiles an engine definition from a YAML file.
// LoadFromFile returns an error if file reading, parsing, validation,
// or compilation fails.
func (el *EngineLoader[S, T]) LoadFromFile(ctx context.Context, path string) (*Definition[S, T], error) {
	// Clean the path to prevent directory traversal attacks.
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ports.NewConfigError(cleanPath, ports.ErrConfigNotFound)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return el.load(ctx, data)
}

// LoadFromReader loads and compiles an engine definition from an io.Reader.
func (el *EngineLoader[S, T]) LoadFromReader(ctx context.Context, r io.Reader) (*Definition[S, T], error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	return el.load(ctx, data)
}

// parseYAML unmarshals YAML byte data into an EngineConfig.
// parseYAML uses strict decoding to detect unknown fields, preventing
// configuration typos from being silently ignored.
func (el *EngineLoader[S, T]) parseYAML(data []byte) (*EngineConfig, error) {
	var config EngineConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Strict mode - fail on unknown fields.

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

// validateConfig performs struct field validation followed by semantic
// validation of relationships between configuration elements.
func (el *EngineLoader[S, T]) validateConfig(config *EngineConfig) error {
	if err := el.validator.Struct(config); err != nil {
		return fmt.Errorf("%w: struct validation failed: %w", domain.ErrInvalidConfiguration, err)
	}

	if err := el.validateSemantics(config); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}

	return nil
}

// validateSemantics checks the rules that cannot be expressed through
// struct tags: unique ids, stage references, per-type parameters and
// limit consistency. Every violation is collected into one
// domain.ValidationError.
func (el *EngineLoader[S, T]) validateSemantics(config *EngineConfig) error {
	verr := domain.NewValidationError(config.Metadata.Name)
	supported := el.registry.GetSupportedTypes()

	// Track all node IDs globally to ensure uniqueness across categories.
	allIDs := make(map[string]string) // ID -> node kind for better error messages.
	claim := func(id, kind string) {
		if existing, ok := allIDs[id]; ok {
			verr.AddError(fmt.Sprintf("duplicate ID %q: already used by %s", id, existing))
			return
		}
		allIDs[id] = kind
	}

	for _, b := range config.Blacklists {
		claim(b.ID, "blacklist")
		err := ValidateBlacklistParameters(b.Type, b.Parameters)
		if errors.Is(err, errUnknownType) && slices.Contains(supported, b.Type) {
			err = nil
		}
		if err != nil {
			verr.AddError(fmt.Sprintf("blacklist %s parameter validation failed: %v", b.ID, err))
		}
	}

	unitIDs := make(map[string]struct{}, len(config.Units))
	for _, unit := range config.Units {
		claim(unit.ID, "unit")
		unitIDs[unit.ID] = struct{}{}
		err := ValidateUnitParameters(unit.Type, unit.Parameters)
		if errors.Is(err, errUnknownType) && slices.Contains(supported, unit.Type) {
			err = nil
		}
		if err != nil {
			verr.AddError(fmt.Sprintf("unit %s parameter validation failed: %v", unit.ID, err))
		}
	}

	placed := make(map[string]string)
	for _, stage := range config.Stages {
		claim(stage.ID, "stage")
		for _, unitID := range stage.Units {
			if _, ok := unitIDs[unitID]; !ok {
				verr.AddError(fmt.Sprintf("stage %s references non-existent unit: %s", stage.ID, unitID))
				continue
			}
			if other, ok := placed[unitID]; ok {
				verr.AddError(fmt.Sprintf("unit %s is placed in both stage %s and stage %s", unitID, other, stage.ID))
				continue
			}
			placed[unitID] = stage.ID
		}
	}

	settings := config.Settings()
	if settings.DefaultLimit > settings.MaxLimit {
		verr.AddError(fmt.Sprintf("default_limit %d exceeds max_limit %d", settings.DefaultLimit, settings.MaxLimit))
	}
	if settings.MaxRecommendations < settings.MaxLimit {
		verr.AddError(fmt.Sprintf("max_recommendations %d is smaller than max_limit %d", settings.MaxRecommendations, settings.MaxLimit))
	}
	if settings.PassTimeout > 0 && settings.UnitTimeout > settings.PassTimeout {
		verr.AddError(fmt.Sprintf("unit_timeout_ms %d exceeds pass_timeout_ms %d", config.Limits.UnitTimeoutMs, config.Limits.PassTimeoutMs))
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// buildPipeline constructs an executable pipeline from a validated
// configuration, creating blacklists and units through the registry and
// wrapping them in adapters.
func (el *EngineLoader[S, T]) buildPipeline(_ context.Context, config *EngineConfig) (*Pipeline[S, T], error) {
	settings := config.Settings()
	pipeline := NewPipeline[S, T](config.Metadata.Name)
	pipeline.SetFailFast(settings.FailFast)

	for _, bc := range config.Blacklists {
		params, err := decodeParams(bc.Parameters)
		if err != nil {
			return nil, fmt.Errorf("blacklist %s: %w", bc.ID, err)
		}
		blacklist, err := el.registry.CreateBlacklist(bc.Type, bc.ID, params)
		if err != nil {
			return nil, fmt.Errorf("failed to create blacklist %s: %w", bc.ID, err)
		}
		if err := pipeline.AddBlacklist(NewBlacklistAdapter(blacklist, bc.ID)); err != nil {
			return nil, err
		}
	}

	units := make(map[string]*UnitAdapter[S, T], len(config.Units))
	for _, uc := range config.Units {
		params, err := decodeParams(uc.Parameters)
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", uc.ID, err)
		}
		unit, err := el.registry.CreateUnit(uc.Type, uc.ID, params)
		if err != nil {
			return nil, fmt.Errorf("failed to create unit %s: %w", uc.ID, err)
		}
		if err := unit.Validate(); err != nil {
			return nil, fmt.Errorf("unit %s is invalid: %w", uc.ID, err)
		}
		units[uc.ID] = NewUnitAdapter(unit, uc.ID, settings.UnitTimeout)
	}

	for _, sc := range config.Stages {
		adapters := make([]*UnitAdapter[S, T], 0, len(sc.Units))
		for _, id := range sc.Units {
			ua, ok := units[id]
			if !ok {
				return nil, fmt.Errorf("unit %s not found for stage %s", id, sc.ID)
			}
			adapters = append(adapters, ua)
		}

		opts := []StageOption{WithConcurrency(settings.Concurrency)}
		if sc.Isolation != "" {
			opts = append(opts, WithIsolation(Isolation(sc.Isolation)))
		}
		if sc.SkipWhenEnough {
			opts = append(opts, SkipWhenEnough())
		}
		if sc.StopWhenEnough {
			opts = append(opts, StopWhenEnough())
		}
		if err := pipeline.AddStage(NewStage(sc.ID, adapters, opts...)); err != nil {
			return nil, fmt.Errorf("failed to add stage: %w", err)
		}
	}

	return pipeline, nil
}

// calculateConfigHash computes the SHA256 hash of a normalized
// EngineConfig for cache indexing, so semantically identical definitions
// hash the same regardless of whitespace or comments.
func (el *EngineLoader[S, T]) calculateConfigHash(config *EngineConfig) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2) // Use consistent 2-space indentation.

	if err := encoder.Encode(config); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:]), nil
}

// getCachedDefinition is safe for concurrent use.
func (el *EngineLoader[S, T]) getCachedDefinition(hash string) (*Definition[S, T], bool) {
	el.cacheMu.RLock()
	defer el.cacheMu.RUnlock()

	def, ok := el.cache[hash]
	return def, ok
}

func (el *EngineLoader[S, T]) cacheDefinition(hash string, def *Definition[S, T]) {
	el.cacheMu.Lock()
	defer el.cacheMu.Unlock()

	el.cache[hash] = def
}

// ClearCache removes all cached definitions, forcing subsequent loads to
// recompile from source.
func (el *EngineLoader[S, T]) ClearCache() {
	el.cacheMu.Lock()
	defer el.cacheMu.Unlock()

	el.cache = make(map[string]*Definition[S, T])
}

// registerCustomValidators registers domain-specific validation functions
// with the validator instance.
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}

	if err := RegisterEngineValidators(v); err != nil {
		return fmt.Errorf("failed to register engine validators: %w", err)
	}

	return nil
}

// validateSemver validates that a string follows semantic versioning
// format (X.Y.Z where X, Y, Z are non-negative integers).
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	n, err := fmt.Sscanf(value, "%d.%d.%d", &major, &minor, &patch)
	return err == nil && n == 3 && major >= 0 && minor >= 0 && patch >= 0
}
