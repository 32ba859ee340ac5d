package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable marks a classifier that could not be downloaded or decoded.
	ErrModelUnavailable = errors.New("model not loaded")
	// ErrNotFound is returned by versioned stores when the file does not exist yet.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned when a conditional write loses against another writer.
	ErrVersionConflict = errors.New("version conflict")
	// ErrProcessing wraps unexpected failures in the analysis flow.
	ErrProcessing = errors.New("processing failed")
)

// Validation reasons.
const (
	ReasonEmpty    = "empty"
	ReasonTooShort = "too short"
)

// ValidationError rejects user input before any side effect happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AdviceError describes a failed call to the generative text service.
type AdviceError struct {
	Provider string
	Err      error
}

func (e *AdviceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *AdviceError) Unwrap() error {
	return e.Err
}
