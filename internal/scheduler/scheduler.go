// Package scheduler runs the long-lived services of the reco server under
// a suture supervisor: background precomputation on a fixed delay and the
// metrics HTTP endpoint. Supervisor events are logged through zerolog.
package scheduler

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

// SupervisorConfig holds the restart policy of the supervisor.
type SupervisorConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is how long to wait once the threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout bounds how long a service may take to stop.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// NewSupervisor creates a supervisor named name whose events are logged
// to logger. Zero fields of cfg take their defaults.
func NewSupervisor(name string, cfg SupervisorConfig, logger zerolog.Logger) *suture.Supervisor {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = 30
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = 15 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	return suture.New(name, suture.Spec{
		EventHook:        EventHook(logger.With().Str("component", "supervisor").Logger()),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})
}

// EventHook logs supervisor events. Panics are logged at error, resumes
// at info and everything else at warn.
func EventHook(logger zerolog.Logger) suture.EventHook {
	return func(ev suture.Event) {
		level := zerolog.WarnLevel
		switch ev.Type() {
		case suture.EventTypeServicePanic:
			level = zerolog.ErrorLevel
		case suture.EventTypeResume:
			level = zerolog.InfoLevel
		}
		logger.WithLevel(level).
			Fields(ev.Map()).
			Msg(ev.String())
	}
}
