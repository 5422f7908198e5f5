package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrProfileNotFound = fmt.Errorf("%w: profile", ErrNotFound)
	ErrRunNotFound     = fmt.Errorf("%w: run", ErrNotFound)

	// Dataset errors
	ErrDatasetInvalid = errors.New("invalid dataset")
	ErrEmptyDataset   = errors.New("dataset has no rows")

	// Analysis errors
	ErrInsufficientData     = errors.New("insufficient data for analysis")
	ErrUndefinedStatistic   = errors.New("statistic undefined for input")
	ErrInternalConsistency  = errors.New("internal consistency failure")
	ErrSynthesisUnavailable = errors.New("narrative synthesis unavailable")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

func NewConsistencyError(check string, detail string) error {
	return fmt.Errorf("%w: %s: %s", ErrInternalConsistency, check, detail)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConsistencyError(err error) bool {
	return errors.Is(err, ErrInternalConsistency)
}

func IsSynthesisUnavailable(err error) bool {
	return errors.Is(err, ErrSynthesisUnavailable)
}
