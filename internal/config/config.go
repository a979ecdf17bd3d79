// Package config loads the process configuration of the reco binaries.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults
//  2. an optional YAML file
//  3. environment variables prefixed with RECO_, where the first
//     underscore after the prefix separates the section from the key
//     (RECO_CACHE_BACKEND -> cache.backend,
//     RECO_STORE_QUERY_TIMEOUT -> store.query_timeout)
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/ahrav/go-reco/internal/ports"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "RECO_"

// Config is the complete process configuration.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Store     StoreConfig     `koanf:"store"`
	Cache     CacheConfig     `koanf:"cache"`
	Engine    EngineConfig    `koanf:"engine"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level"  validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// StoreConfig selects and guards the social graph store.
type StoreConfig struct {
	// Driver is "memory" (loaded from Fixture) or "sqlite" (opened at Path).
	Driver string `koanf:"driver" validate:"oneof=memory sqlite"`
	Path   string `koanf:"path"`
	// Fixture is a YAML graph for the memory driver. Empty loads the
	// bundled sample graph.
	Fixture string `koanf:"fixture"`

	// RateLimit is the sustained number of queries per second; zero
	// disables rate limiting.
	RateLimit       float64       `koanf:"rate_limit"       validate:"gte=0"`
	Burst           int           `koanf:"burst"            validate:"gte=1"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"  validate:"gt=0"`
	QueryTimeout    time.Duration `koanf:"query_timeout"    validate:"gt=0"`
}

// CacheConfig selects the precomputed result cache.
type CacheConfig struct {
	Backend string        `koanf:"backend" validate:"oneof=memory badger"`
	Path    string        `koanf:"path"`
	TTL     time.Duration `koanf:"ttl"     validate:"gte=0"`
}

// EngineConfig locates the engine definition. An empty Definition uses
// the bundled friends engine.
type EngineConfig struct {
	Definition string `koanf:"definition"`
}

// SchedulerConfig paces background precomputation.
type SchedulerConfig struct {
	InitialDelay time.Duration `koanf:"initial_delay" validate:"gte=0"`
	Delay        time.Duration `koanf:"delay"         validate:"gt=0"`
	Concurrency  int           `koanf:"concurrency"   validate:"gte=1"`
}

// TelemetryConfig configures trace export. Tracing is disabled when
// OTLPEndpoint is empty.
type TelemetryConfig struct {
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	ServiceName  string `koanf:"service_name" validate:"required"`
}

// MetricsConfig configures the Prometheus endpoint of the serve command.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Driver:          "memory",
			Path:            "reco.db",
			RateLimit:       0,
			Burst:           50,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
			QueryTimeout:    2 * time.Second,
		},
		Cache: CacheConfig{
			Backend: "memory",
			Path:    "reco-cache",
			TTL:     24 * time.Hour,
		},
		Scheduler: SchedulerConfig{
			InitialDelay: 0,
			Delay:        10 * time.Minute,
			Concurrency:  4,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "reco",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path
// (skipped when path is empty) and the environment, then validates it.
// A path that does not exist fails with ports.ErrConfigNotFound.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, ports.NewConfigError(path, fmt.Errorf("%w: %s", ports.ErrConfigNotFound, path))
			}
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envTransformFunc maps RECO_SECTION_SOME_KEY to section.some_key.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	return section + "." + rest
}

var validate = validator.New()

// Validate checks enumerations, ranges and the fields a selected backend
// requires.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	var errs []error
	if c.Store.Driver == "sqlite" && strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("store.path is required for the sqlite driver"))
	}
	if c.Cache.Backend == "badger" && strings.TrimSpace(c.Cache.Path) == "" {
		errs = append(errs, errors.New("cache.path is required for the badger backend"))
	}
	return errors.Join(errs...)
}
