package compiler

import (
	"errors"
	"regexp"
	"strings"
)

// StepID uniquely identifies a build step within a recipe.
// It is the lowercase library key used on the command line and in every
// cache path (e.g., "sqlite", "pyqt").
type StepID struct {
	value string
}

// Errors for StepID validation.
var (
	ErrEmptyStepID   = errors.New("step ID cannot be empty")
	ErrInvalidStepID = errors.New("step ID format invalid: must be lowercase alphanumeric with hyphens or underscores")
)

var stepIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// NewStepID creates a new StepID from a string.
func NewStepID(value string) (StepID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return StepID{}, ErrEmptyStepID
	}

	if !stepIDPattern.MatchString(trimmed) {
		return StepID{}, ErrInvalidStepID
	}

	return StepID{value: trimmed}, nil
}

// MustNewStepID creates a new StepID from a string, panicking on error.
// Use this for compile-time known values that should never fail validation.
func MustNewStepID(value string) StepID {
	id, err := NewStepID(value)
	if err != nil {
		panic("invalid step ID: " + value + ": " + err.Error())
	}
	return id
}

// String returns the string representation.
func (id StepID) String() string {
	return id.value
}

// Equals checks equality with another StepID.
func (id StepID) Equals(other StepID) bool {
	return id.value == other.value
}

// IsZero returns true if this is a zero-value StepID.
func (id StepID) IsZero() bool {
	return id.value == ""
}

// StepIDs converts a list of names to StepIDs, stopping at the first invalid one.
func StepIDs(names ...string) ([]StepID, error) {
	ids := make([]StepID, 0, len(names))
	for _, name := range names {
		id, err := NewStepID(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
