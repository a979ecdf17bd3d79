package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitError(t *testing.T) {
	tests := []struct {
		name    string
		unit    string
		err     error
		wantMsg string
	}{
		{
			name:    "store failure",
			unit:    "friends_in_common",
			err:     errors.New("store unavailable"),
			wantMsg: "scoring unit friends_in_common failed: store unavailable",
		},
		{
			name:    "frozen aggregator",
			unit:    "age_difference",
			err:     ErrFrozen,
			wantMsg: "scoring unit age_difference failed: recommendations are frozen",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewUnitError(tt.unit, tt.err)

			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, tt.unit, err.Unit)
			assert.ErrorIs(t, err, tt.err, "Should unwrap to underlying error")

			var ue *UnitError
			require.ErrorAs(t, fmt.Errorf("pass: %w", err), &ue)
			assert.Equal(t, tt.unit, ue.Unit)
		})
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("Engine")
		err.AddError("missing units")

		assert.Equal(t, "validation error for Engine: missing units", err.Error())
		assert.True(t, err.HasErrors(), "Should have errors")
		assert.Len(t, err.Errors, 1, "Should have one error")
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("Stage")
		err.AddError("unknown unit reference")
		err.AddError("duplicate id")

		assert.Contains(t, err.Error(), "validation errors for Stage")
		assert.Len(t, err.Errors, 2, "Should have two errors")
	})

	t.Run("no errors", func(t *testing.T) {
		err := NewValidationError("Config")

		assert.False(t, err.HasErrors(), "Should not have errors")
		assert.Empty(t, err.Errors)
	})

	t.Run("matches invalid configuration", func(t *testing.T) {
		err := NewValidationError("Config")
		err.AddError("bad")

		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})
}

func TestCommonDomainErrors(t *testing.T) {
	tests := []struct {
		err     error
		wantMsg string
	}{
		{ErrInvalidArgument, "invalid argument"},
		{ErrNotFound, "not found"},
		{ErrFrozen, "recommendations are frozen"},
		{ErrInvalidConfiguration, "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.wantMsg, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}
