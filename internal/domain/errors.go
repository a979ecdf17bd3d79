package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while aggregating and ranking
// recommendations.
var (
	// ErrInvalidArgument indicates that an aggregator operation received a
	// nil or empty item, a nil score, an empty partial score name, or a
	// negative limit.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates that a requested item was never contributed to
	// the aggregator.
	ErrNotFound = errors.New("not found")

	// ErrFrozen indicates a write to an aggregator that has been made
	// read-only because ranking has begun.
	ErrFrozen = errors.New("recommendations are frozen")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// invalidArgument wraps ErrInvalidArgument with a description of the
// offending argument.
func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// UnitError represents the failure of a single scoring unit or blacklist
// during a recommendation pass. It carries the unit name so the failure
// can be reported without aborting the rest of the pass.
type UnitError struct {
	// Unit is the name of the scoring unit that failed.
	Unit string

	// Err is the underlying error that caused the unit to fail.
	Err error
}

// Error implements the error interface for UnitError.
func (e *UnitError) Error() string {
	return fmt.Sprintf("scoring unit %s failed: %v", e.Unit, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *UnitError) Unwrap() error { return e.Err }

// NewUnitError creates a new UnitError for the named unit.
func NewUnitError(unit string, err error) *UnitError {
	return &UnitError{
		Unit: unit,
		Err:  err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap lets callers match validation failures against ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
