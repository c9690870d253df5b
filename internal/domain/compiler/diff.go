package compiler

import (
	"fmt"
	"strings"
)

// DiffType represents the type of change a step will make.
type DiffType string

const (
	// DiffTypeAdd indicates the step will be built from scratch.
	DiffTypeAdd DiffType = "add"
	// DiffTypeRemove indicates the step's outputs will be purged.
	DiffTypeRemove DiffType = "remove"
	// DiffTypeModify indicates stale partial output will be purged and rebuilt.
	DiffTypeModify DiffType = "modify"
	// DiffTypeNone indicates no change is needed.
	DiffTypeNone DiffType = "none"
)

// String returns the string representation of the diff type.
func (d DiffType) String() string {
	return string(d)
}

// Diff represents a planned change from a step.
type Diff struct {
	diffType DiffType
	resource string
	name     string
	oldValue string
	newValue string
	paths    []string
}

// NewDiff creates a new Diff.
func NewDiff(diffType DiffType, resource, name, oldValue, newValue string) Diff {
	return Diff{
		diffType: diffType,
		resource: resource,
		name:     name,
		oldValue: oldValue,
		newValue: newValue,
	}
}

// Type returns the diff type.
func (d Diff) Type() DiffType {
	return d.diffType
}

// Resource returns the resource type (e.g., "library", "toolchain").
func (d Diff) Resource() string {
	return d.resource
}

// Name returns the resource name.
func (d Diff) Name() string {
	return d.name
}

// OldValue returns the previous value (empty for add operations).
func (d Diff) OldValue() string {
	return d.oldValue
}

// NewValue returns the new value (empty for remove operations).
func (d Diff) NewValue() string {
	return d.newValue
}

// Paths returns the cache paths the change touches.
func (d Diff) Paths() []string {
	return cloneStrings(d.paths)
}

// WithPaths returns a new Diff listing the cache paths it touches.
func (d Diff) WithPaths(paths ...string) Diff {
	d.paths = cloneStrings(paths)
	return d
}

// Summary returns a human-readable summary of the diff.
func (d Diff) Summary() string {
	var line string
	switch d.diffType {
	case DiffTypeAdd:
		line = fmt.Sprintf("+ %s %s (%s)", d.resource, d.name, d.newValue)
	case DiffTypeRemove:
		line = fmt.Sprintf("- %s %s (%s)", d.resource, d.name, d.oldValue)
	case DiffTypeModify:
		line = fmt.Sprintf("~ %s %s (%s -> %s)", d.resource, d.name, d.oldValue, d.newValue)
	default:
		line = fmt.Sprintf("  %s %s", d.resource, d.name)
	}
	return strings.TrimSuffix(line, " ()")
}
