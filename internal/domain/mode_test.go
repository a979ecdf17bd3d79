package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "real-time", want: RealTime},
		{in: "RealTime", want: RealTime},
		{in: "real_time", want: RealTime},
		{in: " precomputed ", want: Precomputed},
		{in: "cached", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeText(t *testing.T) {
	assert.Equal(t, "real-time", RealTime.String())
	assert.Equal(t, "precomputed", Precomputed.String())
	assert.Equal(t, "Mode(7)", Mode(7).String())

	var m Mode
	require.NoError(t, m.UnmarshalText([]byte("precomputed")))
	assert.Equal(t, Precomputed, m)

	_, err := Mode(7).MarshalText()
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPassExclusions(t *testing.T) {
	p := NewPass[string, string]("vince", RealTime, 2, "req-1")

	assert.True(t, p.Allowed("adam"))
	p.Exclude("vince", "michal")
	p.Exclude("michal")

	assert.False(t, p.Allowed("vince"))
	assert.False(t, p.Allowed("michal"))
	assert.True(t, p.Allowed("adam"))
	assert.Equal(t, 2, p.Excluded())
}

func TestPersonLabel(t *testing.T) {
	p := Person{ID: "p1", Name: "Luanne", Gender: Female, Age: 25, City: "Mumbai"}

	assert.Equal(t, "female", p.Label("gender"))
	assert.Equal(t, "Mumbai", p.Label("City"))
	assert.Empty(t, p.Label("height"))
	assert.True(t, p.HasAge())
	assert.Equal(t, "Luanne", p.String())
	assert.Equal(t, "p2", Person{ID: "p2"}.String())
}
