// Package report renders completed recommendation passes for humans.
package report

import (
	"cmp"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

// Namer resolves an identifier to a display name. It returns the
// identifier itself when no better name is known.
type Namer func(ctx context.Context, id string) string

// GraphNamer names people by their display name in graph.
func GraphNamer(graph ports.SocialGraph) Namer {
	return func(ctx context.Context, id string) string {
		p, err := graph.Person(ctx, id)
		if err != nil {
			return id
		}
		return p.String()
	}
}

func (n Namer) name(ctx context.Context, id string) string {
	if n == nil {
		return id
	}
	return n(ctx, id)
}

// Format renders a ranking as
//
//	Computed recommendations for <subject>: (<item> {total:..,..}),(...)
//
// itemName maps candidates to display names.
func Format[T cmp.Ordered](subject string, ranked []domain.Ranked[T], itemName func(T) string) string {
	var b strings.Builder
	b.WriteString("Computed recommendations for ")
	b.WriteString(subject)
	b.WriteString(": ")
	for i, r := range ranked {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		b.WriteString(itemName(r.Item))
		b.WriteByte(' ')
		b.WriteString(r.String())
		b.WriteByte(')')
	}
	return b.String()
}

func format[S any, T cmp.Ordered](ctx context.Context, namer Namer, subject S, ranked []domain.Ranked[T]) string {
	return Format(namer.name(ctx, fmt.Sprint(subject)), ranked, func(item T) string {
		return namer.name(ctx, fmt.Sprint(item))
	})
}

// LogReporter writes every ranking to a zerolog logger at info level.
type LogReporter[S any, T cmp.Ordered] struct {
	logger zerolog.Logger
	namer  Namer
}

var _ ports.Reporter[string, string] = (*LogReporter[string, string])(nil)

// NewLogReporter creates a reporter logging through logger. A nil namer
// prints raw identifiers.
func NewLogReporter[S any, T cmp.Ordered](logger zerolog.Logger, namer Namer) *LogReporter[S, T] {
	return &LogReporter[S, T]{
		logger: logger.With().Str("component", "reporter").Logger(),
		namer:  namer,
	}
}

// Report implements ports.Reporter.
func (r *LogReporter[S, T]) Report(ctx context.Context, subject S, ranked []domain.Ranked[T]) {
	r.logger.Info().
		Str("subject", fmt.Sprint(subject)).
		Int("returned", len(ranked)).
		Msg(format(ctx, r.namer, subject, ranked))
}

// RememberingReporter keeps the last rendered ranking per subject so it
// can be inspected later. It is safe for concurrent use.
type RememberingReporter[S any, T cmp.Ordered] struct {
	namer Namer
	mu    sync.RWMutex
	lines map[string]string
}

var _ ports.Reporter[string, string] = (*RememberingReporter[string, string])(nil)

// NewRememberingReporter creates an empty reporter.
func NewRememberingReporter[S any, T cmp.Ordered](namer Namer) *RememberingReporter[S, T] {
	return &RememberingReporter[S, T]{namer: namer, lines: make(map[string]string)}
}

// Report implements ports.Reporter.
func (r *RememberingReporter[S, T]) Report(ctx context.Context, subject S, ranked []domain.Ranked[T]) {
	line := format(ctx, r.namer, subject, ranked)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[fmt.Sprint(subject)] = line
}

// Get returns the last line reported for subject, or "" if none.
func (r *RememberingReporter[S, T]) Get(subject S) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lines[fmt.Sprint(subject)]
}

// Clear forgets every remembered line.
func (r *RememberingReporter[S, T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.lines)
}
