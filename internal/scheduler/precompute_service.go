package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ahrav/go-reco/internal/application"
)

// Cycler runs one precompute cycle. *application.Precomputer satisfies it.
type Cycler interface {
	Run(ctx context.Context) (application.CycleReport, error)
}

// PrecomputeConfig paces a PrecomputeService.
type PrecomputeConfig struct {
	// InitialDelay is waited once before the first cycle.
	InitialDelay time.Duration

	// Delay separates the end of one cycle from the start of the next.
	// Default: 10m
	Delay time.Duration
}

// PrecomputeService runs precompute cycles with a fixed delay between
// them. A slow cycle pushes the next one back rather than overlapping it.
// Failed cycles are logged and retried on schedule; the service only
// returns when its context ends.
type PrecomputeService struct {
	cycler Cycler
	config PrecomputeConfig
	logger zerolog.Logger
	name   string

	cycles atomic.Int64
	last   atomic.Pointer[application.CycleReport]
}

// NewPrecomputeService creates the service.
func NewPrecomputeService(cycler Cycler, cfg PrecomputeConfig, logger zerolog.Logger) *PrecomputeService {
	if cfg.Delay <= 0 {
		cfg.Delay = 10 * time.Minute
	}
	return &PrecomputeService{
		cycler: cycler,
		config: cfg,
		logger: logger.With().Str("service", "precompute").Logger(),
		name:   "precompute-service",
	}
}

// Serve implements suture.Service.
func (s *PrecomputeService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("initial_delay", s.config.InitialDelay).
		Dur("delay", s.config.Delay).
		Msg("precompute service starting")

	timer := time.NewTimer(s.config.InitialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("precompute service shutting down")
			return ctx.Err()

		case <-timer.C:
			s.runCycle(ctx)
			timer.Reset(s.config.Delay)
		}
	}
}

func (s *PrecomputeService) runCycle(ctx context.Context) {
	report, err := s.cycler.Run(ctx)
	s.cycles.Add(1)
	s.last.Store(&report)

	if err != nil && ctx.Err() == nil {
		s.logger.Warn().Err(err).Msg("precompute cycle failed")
		return
	}
	s.logger.Debug().Stringer("report", report).Msg("precompute cycle done")
}

// Cycles returns the number of cycles run so far.
func (s *PrecomputeService) Cycles() int64 { return s.cycles.Load() }

// LastReport returns the report of the most recent cycle.
func (s *PrecomputeService) LastReport() (application.CycleReport, bool) {
	r := s.last.Load()
	if r == nil {
		return application.CycleReport{}, false
	}
	return *r, true
}

// String implements fmt.Stringer for supervisor logs.
func (s *PrecomputeService) String() string { return s.name }
