package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrTestCaseNotFound = fmt.Errorf("%w: test case", ErrNotFound)
	ErrConfigNotFound   = fmt.Errorf("%w: feedback config", ErrNotFound)

	// Validation errors
	ErrConfigInvalid = errors.New("invalid feedback config")
	ErrSpecInvalid   = errors.New("invalid evaluation spec")

	// Processing outcomes
	ErrDisqualified      = errors.New("disqualified from evaluation")
	ErrExtractionFailure = errors.New("judge input extraction failed")
	ErrJudgmentFailure   = errors.New("judgment failed")

	// Consistency errors
	ErrConsistency = errors.New("consistency violation")
	ErrNoMatches   = fmt.Errorf("%w: no raw inputs match the configured attribute matchers", ErrConsistency)
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewConfigError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrConfigInvalid, field, reason)
}

func NewConsistencyError(reason string) error {
	return fmt.Errorf("%w: %s", ErrConsistency, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigInvalid) || errors.Is(err, ErrSpecInvalid)
}

func IsConsistencyError(err error) bool {
	return errors.Is(err, ErrConsistency)
}
