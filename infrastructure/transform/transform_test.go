package transform

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParetoReferenceValues(t *testing.T) {
	p, err := NewPareto(100, 10)
	require.NoError(t, err)

	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{1, 15},
		{2, 28},
		{3, 38},
		{5, 55},
		{10, 80},
		{20, 96},
		{50, 100},
		{100, 100},
		{10000, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Transform(context.Background(), tt.in), "f(%v)", tt.in)
	}
}

func TestParetoAgePenaltyCurve(t *testing.T) {
	p, err := NewPareto(10, 20)
	require.NoError(t, err)
	penalty := Negated{Inner: p}

	ctx := context.Background()
	assert.Equal(t, -3, penalty.Transform(ctx, 5))
	assert.Equal(t, -6, penalty.Transform(ctx, 10))
	assert.Equal(t, -7, penalty.Transform(ctx, 15))
	assert.Equal(t, -9, penalty.Transform(ctx, 35))
	assert.Equal(t, 0, penalty.Transform(ctx, 0))
}

func TestParetoShape(t *testing.T) {
	p, err := NewPareto(100, 10)
	require.NoError(t, err)
	ctx := context.Background()

	assert.Zero(t, p.Transform(ctx, -5), "negative inputs yield zero")
	assert.Zero(t, p.Transform(ctx, math.NaN()))
	assert.Equal(t, 100, p.Transform(ctx, math.Inf(1)))

	prev := p.Transform(ctx, 1)
	assert.Equal(t, 15, prev)
	prevGain := prev
	for x := 2; x <= 60; x++ {
		v := p.Transform(ctx, float64(x))
		assert.GreaterOrEqual(t, v, prev, "non-decreasing at %d", x)
		assert.LessOrEqual(t, v, 100, "capped at %d", x)
		// Rounding can make single steps equal, never larger than earlier ones
		// by more than one unit.
		assert.LessOrEqual(t, v-prev, prevGain+1, "concave at %d", x)
		prevGain = v - prev
		prev = v
	}
}

func TestNewParetoValidation(t *testing.T) {
	_, err := NewPareto(0, 10)
	assert.Error(t, err)

	_, err = NewPareto(100, -1)
	assert.Error(t, err)
}

func TestLinear(t *testing.T) {
	l, err := NewLinear(10, 2.5)
	require.NoError(t, err)
	ctx := context.Background()

	assert.Zero(t, l.Transform(ctx, 0))
	assert.Equal(t, 5, l.Transform(ctx, 2))
	assert.Equal(t, 10, l.Transform(ctx, 100))
	assert.Zero(t, l.Transform(ctx, -3))

	_, err = NewLinear(10, 0)
	assert.Error(t, err)
}

func TestIdentity(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, 3, Identity{}.Transform(ctx, 2.6))
	assert.Equal(t, -2, Identity{}.Transform(ctx, -2.4))
	assert.Zero(t, Identity{}.Transform(ctx, math.NaN()))
}

func TestFromMap(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		in      float64
		want    int
		wantErr bool
	}{
		{
			name:   "pareto with ints",
			params: map[string]any{"kind": "pareto", "max": 100, "anchor": 10},
			in:     10,
			want:   80,
		},
		{
			name:   "negated pareto",
			params: map[string]any{"kind": "pareto", "max": 10.0, "anchor": 20, "negate": true},
			in:     10,
			want:   -6,
		},
		{
			name:   "linear",
			params: map[string]any{"kind": "linear", "max": 5, "scale": 1},
			in:     9,
			want:   5,
		},
		{
			name:    "unknown kind",
			params:  map[string]any{"kind": "sigmoid"},
			wantErr: true,
		},
		{
			name:    "bad number",
			params:  map[string]any{"kind": "pareto", "max": "lots", "anchor": 1},
			wantErr: true,
		},
		{
			name:    "invalid pareto",
			params:  map[string]any{"kind": "pareto", "max": 100},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := FromMap(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tr.Transform(context.Background(), tt.in))
		})
	}
}

func TestSpecOverride(t *testing.T) {
	base := Spec{Kind: "pareto", Max: 10, Anchor: 20, Negate: true}

	got, err := base.Override(map[string]any{"anchor": 5})
	require.NoError(t, err)
	assert.Equal(t, Spec{Kind: "pareto", Max: 10, Anchor: 5, Negate: true}, got)
	assert.Equal(t, 20.0, base.Anchor, "receiver is not modified")

	_, err = base.Override(map[string]any{"negate": "yes"})
	assert.Error(t, err)
}
