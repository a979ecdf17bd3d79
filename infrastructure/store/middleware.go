package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

// guardFunc runs one graph operation, possibly rejecting or bounding it.
type guardFunc func(ctx context.Context, op string, call func(ctx context.Context) error) error

// guardedGraph applies a guardFunc to every SocialGraph method.
type guardedGraph struct {
	next  ports.SocialGraph
	guard guardFunc
}

func guarded(guard guardFunc) Middleware {
	return func(next ports.SocialGraph) ports.SocialGraph {
		return &guardedGraph{next: next, guard: guard}
	}
}

func (g *guardedGraph) Person(ctx context.Context, id string) (domain.Person, error) {
	var p domain.Person
	err := g.guard(ctx, "Person", func(ctx context.Context) error {
		var err error
		p, err = g.next.Person(ctx, id)
		return err
	})
	return p, err
}

func (g *guardedGraph) Friends(ctx context.Context, id string) ([]string, error) {
	var friends []string
	err := g.guard(ctx, "Friends", func(ctx context.Context) error {
		var err error
		friends, err = g.next.Friends(ctx, id)
		return err
	})
	return friends, err
}

func (g *guardedGraph) People(ctx context.Context) ([]domain.Person, error) {
	var people []domain.Person
	err := g.guard(ctx, "People", func(ctx context.Context) error {
		var err error
		people, err = g.next.People(ctx)
		return err
	})
	return people, err
}

// RateLimit creates middleware that paces graph queries with a token
// bucket. Callers block until a token is available or their context ends.
func RateLimit(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)
	return guarded(func(ctx context.Context, op string, call func(context.Context) error) error {
		if err := limiter.Wait(ctx); err != nil {
			return ports.NewStoreError("rate_limit", op, fmt.Errorf("%w: %w", ports.ErrRateLimited, err))
		}
		return call(ctx)
	})
}

// Timeout creates middleware that bounds every graph query.
func Timeout(timeout time.Duration) Middleware {
	return guarded(func(ctx context.Context, op string, call func(context.Context) error) error {
		tctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := call(tctx)
		if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return ports.NewStoreError("timeout", op, fmt.Errorf("%w after %s: %w", ports.ErrTimeout, timeout, err))
		}
		return err
	})
}

// BreakerConfig configures the CircuitBreaker middleware.
type BreakerConfig struct {
	// Name identifies the breaker in state change callbacks.
	Name string
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold uint32
	// Cooldown is how long the circuit stays open before a probe.
	Cooldown time.Duration
	// OnStateChange is called on every transition. May be nil.
	OnStateChange func(name string, from, to gobreaker.State)
}

// CircuitBreaker creates middleware that stops calling a failing graph.
// Once FailureThreshold consecutive queries fail the circuit opens and
// queries fail fast with ErrStoreUnavailable until Cooldown has passed.
// Unknown people and cancelled callers do not count as failures.
func CircuitBreaker(cfg BreakerConfig) Middleware {
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ports.ErrPersonNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: cfg.OnStateChange,
	})

	return guarded(func(ctx context.Context, op string, call func(context.Context) error) error {
		_, err := cb.Execute(func() (struct{}, error) {
			return struct{}{}, call(ctx)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ports.NewStoreError("circuit_breaker", op, fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, err))
		}
		return err
	})
}

// Metrics creates middleware that records latency and outcome of every
// graph query.
func Metrics(collector ports.MetricsCollector) Middleware {
	return guarded(func(ctx context.Context, op string, call func(context.Context) error) error {
		start := time.Now()
		err := call(ctx)
		if collector == nil {
			return err
		}

		labels := map[string]string{"operation": op, "status": "success"}
		switch {
		case err == nil:
		case errors.Is(err, ports.ErrPersonNotFound):
			labels["status"] = "not_found"
		case errors.Is(err, ports.ErrStoreUnavailable):
			labels["status"] = "circuit_open"
		case errors.Is(err, ports.ErrTimeout):
			labels["status"] = "timeout"
		default:
			labels["status"] = "error"
		}
		collector.RecordLatency("store_query", time.Since(start), labels)
		collector.RecordCounter("store_queries_total", 1, labels)
		return err
	})
}
