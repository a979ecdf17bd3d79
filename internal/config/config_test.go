package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-reco/internal/ports"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reco.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: console
store:
  driver: sqlite
  path: /var/lib/reco/graph.db
  rate_limit: 25.5
  query_timeout: 750ms
cache:
  backend: badger
  ttl: 1h
scheduler:
  delay: 5m
  concurrency: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/var/lib/reco/graph.db", cfg.Store.Path)
	assert.InDelta(t, 25.5, cfg.Store.RateLimit, 1e-9)
	assert.Equal(t, 750*time.Millisecond, cfg.Store.QueryTimeout)
	assert.Equal(t, "badger", cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Delay)
	assert.Equal(t, 8, cfg.Scheduler.Concurrency)

	// Keys the file leaves out keep their defaults.
	assert.Equal(t, 50, cfg.Store.Burst)
	assert.Equal(t, "reco-cache", cfg.Cache.Path)
	assert.Equal(t, "reco", cfg.Telemetry.ServiceName)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "cache:\n  backend: badger\n")
	t.Setenv("RECO_CACHE_BACKEND", "memory")
	t.Setenv("RECO_STORE_BREAKER_FAILURES", "9")
	t.Setenv("RECO_SCHEDULER_INITIAL_DELAY", "30s")
	t.Setenv("RECO_TELEMETRY_OTLP_ENDPOINT", "localhost:4318")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, uint32(9), cfg.Store.BreakerFailures)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.InitialDelay)
	assert.Equal(t, "localhost:4318", cfg.Telemetry.OTLPEndpoint)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConfigNotFound)

	var cfgErr *ports.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown log level", yaml: "log:\n  level: loud\n"},
		{name: "unknown store driver", yaml: "store:\n  driver: postgres\n"},
		{name: "unknown cache backend", yaml: "cache:\n  backend: redis\n"},
		{name: "negative rate limit", yaml: "store:\n  rate_limit: -1\n"},
		{name: "zero scheduler delay", yaml: "scheduler:\n  delay: 0s\n"},
		{name: "zero concurrency", yaml: "scheduler:\n  concurrency: 0\n"},
		{name: "sqlite without path", yaml: "store:\n  driver: sqlite\n  path: \"\"\n"},
		{name: "badger without path", yaml: "cache:\n  backend: badger\n  path: \" \"\n"},
		{name: "malformed yaml", yaml: "store: [driver\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"RECO_CACHE_BACKEND":          "cache.backend",
		"RECO_STORE_QUERY_TIMEOUT":    "store.query_timeout",
		"RECO_METRICS_ADDR":           "metrics.addr",
		"RECO_SCHEDULER_DELAY":        "scheduler.delay",
		"RECO_STANDALONE":             "standalone",
		"RECO_TELEMETRY_SERVICE_NAME": "telemetry.service_name",
	}
	for in, want := range tests {
		assert.Equal(t, want, envTransformFunc(in), in)
	}
}
