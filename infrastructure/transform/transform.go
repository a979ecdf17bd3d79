// Package transform provides score transformers that map raw signals,
// such as a count of mutual friends, onto bounded integer scores.
package transform

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-reco/internal/ports"
)

var (
	_ ports.ScoreTransformer = Pareto{}
	_ ports.ScoreTransformer = Linear{}
	_ ports.ScoreTransformer = Negated{}
	_ ports.ScoreTransformer = Identity{}
)

// ErrUnknownKind is returned by New for an unregistered transformer kind.
var ErrUnknownKind = errors.New("unknown transformer kind")

// Package-level validator instance for configuration validation.
var validate = validator.New()

// paretoShare is the fraction of Max a Pareto curve reaches at its anchor.
const paretoShare = 0.8

// Pareto is a diminishing-returns curve following the 80/20 principle:
// an input equal to Anchor already yields 80% of Max, and the output
// saturates at Max for inputs much larger than Anchor.
//
//	f(x) = round(Max * (1 - 5^(-x/Anchor)))
//
// Negative inputs yield 0. With Max 100 and Anchor 10 the curve maps
// 1, 2, 3, 5, 10, 20 to 15, 28, 38, 55, 80, 96.
type Pareto struct {
	Max    float64 `yaml:"max" json:"max" validate:"gt=0"`
	Anchor float64 `yaml:"anchor" json:"anchor" validate:"gt=0"`
}

// NewPareto creates a validated Pareto transformer.
func NewPareto(maxScore, anchor float64) (Pareto, error) {
	p := Pareto{Max: maxScore, Anchor: anchor}
	if err := validate.Struct(p); err != nil {
		return Pareto{}, fmt.Errorf("pareto transformer validation failed: %w", err)
	}
	return p, nil
}

// Transform implements ports.ScoreTransformer.
func (p Pareto) Transform(_ context.Context, value float64) int {
	if value <= 0 || math.IsNaN(value) {
		return 0
	}
	alpha := -math.Log(1-paretoShare) / p.Anchor
	v := math.Round(p.Max * -math.Expm1(-alpha*value))
	return int(min(max(v, 0), p.Max))
}

// Linear scales the input and caps it at Max.
type Linear struct {
	Max   float64 `yaml:"max" json:"max" validate:"gt=0"`
	Scale float64 `yaml:"scale" json:"scale" validate:"gt=0"`
}

// NewLinear creates a validated Linear transformer.
func NewLinear(maxScore, scale float64) (Linear, error) {
	l := Linear{Max: maxScore, Scale: scale}
	if err := validate.Struct(l); err != nil {
		return Linear{}, fmt.Errorf("linear transformer validation failed: %w", err)
	}
	return l, nil
}

// Transform implements ports.ScoreTransformer.
func (l Linear) Transform(_ context.Context, value float64) int {
	if value <= 0 || math.IsNaN(value) {
		return 0
	}
	return int(min(math.Round(value*l.Scale), l.Max))
}

// Negated turns another transformer into a penalty.
type Negated struct {
	Inner ports.ScoreTransformer
}

// Transform implements ports.ScoreTransformer.
func (n Negated) Transform(ctx context.Context, value float64) int {
	if n.Inner == nil {
		return 0
	}
	return -n.Inner.Transform(ctx, value)
}

// Identity rounds the raw value to the nearest integer.
type Identity struct{}

// Transform implements ports.ScoreTransformer.
func (Identity) Transform(_ context.Context, value float64) int {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return int(math.Round(value))
}

// Spec describes a transformer in configuration.
type Spec struct {
	// Kind is one of "pareto", "linear" or "identity".
	Kind string `yaml:"kind" json:"kind" validate:"required,oneof=pareto linear identity"`

	// Max is the ceiling of pareto and linear curves.
	Max float64 `yaml:"max" json:"max"`

	// Anchor is the pareto input that yields 80% of Max.
	Anchor float64 `yaml:"anchor" json:"anchor"`

	// Scale is the linear slope.
	Scale float64 `yaml:"scale" json:"scale"`

	// Negate turns the result into a penalty.
	Negate bool `yaml:"negate" json:"negate"`
}

// New builds the transformer described by spec.
func New(spec Spec) (ports.ScoreTransformer, error) {
	if err := validate.Struct(spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, err)
	}

	var (
		t   ports.ScoreTransformer
		err error
	)
	switch spec.Kind {
	case "pareto":
		t, err = NewPareto(spec.Max, spec.Anchor)
	case "linear":
		t, err = NewLinear(spec.Max, spec.Scale)
	case "identity":
		t = Identity{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, spec.Kind)
	}
	if err != nil {
		return nil, err
	}

	if spec.Negate {
		return Negated{Inner: t}, nil
	}
	return t, nil
}

// FromMap builds a transformer from a loosely typed parameter map, as
// found in unit parameters decoded from YAML. Numeric values may be ints
// or floats.
func FromMap(params map[string]any) (ports.ScoreTransformer, error) {
	spec, err := Spec{}.Override(params)
	if err != nil {
		return nil, err
	}
	return New(spec)
}

// Override returns a copy of s with every key present in params applied.
// Absent keys keep their current value.
func (s Spec) Override(params map[string]any) (Spec, error) {
	if raw, ok := params["kind"]; ok {
		kind, ok := raw.(string)
		if !ok {
			return Spec{}, fmt.Errorf("transformer parameter kind must be a string, got %T", raw)
		}
		s.Kind = kind
	}
	for key, dst := range map[string]*float64{"max": &s.Max, "anchor": &s.Anchor, "scale": &s.Scale} {
		if _, ok := params[key]; !ok {
			continue
		}
		v, err := number(params, key)
		if err != nil {
			return Spec{}, err
		}
		*dst = v
	}
	if raw, ok := params["negate"]; ok {
		negate, ok := raw.(bool)
		if !ok {
			return Spec{}, fmt.Errorf("transformer parameter negate must be a bool, got %T", raw)
		}
		s.Negate = negate
	}
	return s, nil
}

func number(params map[string]any, key string) (float64, error) {
	raw, ok := params[key]
	if !ok {
		return 0, nil
	}
	switch v := raw.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("transformer parameter %s must be a number, got %T", key, raw)
	}
}
