package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain errors - centralized error definitions
var (
	// Input errors
	ErrInvalidRecord = errors.New("invalid breach record")
	ErrEmptyDataset  = errors.New("empty record set")

	// Estimation errors
	ErrModelFit            = errors.New("model fit failure")
	ErrInsufficientSamples = errors.New("insufficient bootstrap samples")
	ErrInvariantViolation  = errors.New("invariant violation")

	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrReportNotFound = fmt.Errorf("%w: report", ErrNotFound)
)

// ModelFitError carries the quantile level and the reason a design matrix could not be fit
type ModelFitError struct {
	Tau    float64
	Reason string
}

func (e *ModelFitError) Error() string {
	if e.Tau > 0 {
		return fmt.Sprintf("%s at tau=%.3g: %s", ErrModelFit, e.Tau, e.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrModelFit, e.Reason)
}

func (e *ModelFitError) Unwrap() error { return ErrModelFit }

// InsufficientSamplesError reports which (cause, tau) group could not form an interval
type InsufficientSamplesError struct {
	Cause     string
	Tau       float64
	Count     int
	Required  int
	Attempted int
	Succeeded int
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("%s for cause %q at tau=%.3g: %d draws, need %d (iterations attempted=%d succeeded=%d)",
		ErrInsufficientSamples, e.Cause, e.Tau, e.Count, e.Required, e.Attempted, e.Succeeded)
}

func (e *InsufficientSamplesError) Unwrap() error { return ErrInsufficientSamples }

// InvariantError describes a broken programming contract with enough context to debug it
type InvariantError struct {
	Cause     string
	Tau       float64
	Missing   string
	Available []string
}

func (e *InvariantError) Error() string {
	avail := append([]string(nil), e.Available...)
	sort.Strings(avail)
	return fmt.Sprintf("%s: term %q missing for cause %q at tau=%.3g (available: %s)",
		ErrInvariantViolation, e.Missing, e.Cause, e.Tau, strings.Join(avail, ", "))
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

// Error constructors with context
func NewModelFitError(tau float64, format string, args ...interface{}) error {
	return &ModelFitError{Tau: tau, Reason: fmt.Sprintf(format, args...)}
}

func NewInvalidRecordError(index int, id string, reason string) error {
	return fmt.Errorf("%w: row %d (id %q): %s", ErrInvalidRecord, index, id, reason)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers
func IsModelFitError(err error) bool {
	return errors.Is(err, ErrModelFit)
}

func IsInsufficientSamplesError(err error) bool {
	return errors.Is(err, ErrInsufficientSamples)
}

func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidRecord) || errors.Is(err, ErrEmptyDataset)
}
