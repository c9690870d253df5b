package compiler

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error codes shared by every layer that reports a build failure.
const (
	ErrCodeToolFailed          = "TOOL_FAILED"
	ErrCodeMissingPrerequisite = "MISSING_PREREQUISITE"
	ErrCodeStepNotFound        = "STEP_NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeStepDuplicate       = "STEP_DUPLICATE"
	ErrCodeDependencyMissing   = "DEPENDENCY_MISSING"
	ErrCodeCyclicDependency    = "CYCLIC_DEPENDENCY"
	ErrCodeRecipeInvalid       = "RECIPE_INVALID"
	ErrCodeApplyFailed         = "APPLY_FAILED"
	ErrCodeCheckFailed         = "CHECK_FAILED"
)

// ErrAlreadyExists is wrapped by errors for destinations that must not pre-exist.
var ErrAlreadyExists = errors.New("already exists")

// StepError represents a user-friendly build error with an actionable suggestion.
type StepError struct {
	Code       string // Error code for categorization
	Message    string // User-friendly error message
	Tool       string // External tool that failed, if any
	StepID     string // Step ID if applicable
	Path       string // Filesystem path if applicable
	Suggestion string // Actionable suggestion to fix the error
	Underlying error  // Wrapped error for error chain
}

// Error returns the formatted error message.
func (e *StepError) Error() string {
	var parts []string

	if e.StepID != "" {
		parts = append(parts, fmt.Sprintf("step %q", e.StepID))
	}
	if e.Tool != "" {
		parts = append(parts, fmt.Sprintf("tool %q", e.Tool))
	}

	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("%s: %s", strings.Join(parts, ", "), msg)
	}
	return msg
}

// Unwrap returns the underlying error for error chain support.
func (e *StepError) Unwrap() error {
	return e.Underlying
}

// Format returns a fully formatted error with all details.
func (e *StepError) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)

	if e.StepID != "" {
		fmt.Fprintf(&b, "\n  Step: %s", e.StepID)
	}
	if e.Tool != "" {
		fmt.Fprintf(&b, "\n  Tool: %s", e.Tool)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, "\n  Path: %s", e.Path)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n  Suggestion: %s", e.Suggestion)
	}
	if e.Underlying != nil {
		fmt.Fprintf(&b, "\n  Cause: %s", e.Underlying.Error())
	}

	return b.String()
}

// NewStepError creates a new StepError with the given code and message.
func NewStepError(code, message string) *StepError {
	return &StepError{
		Code:    code,
		Message: message,
	}
}

// WithStepID returns a new StepError with step ID set.
func (e *StepError) WithStepID(stepID string) *StepError {
	c := *e
	c.StepID = stepID
	return &c
}

// WithTool returns a new StepError with the failing tool set.
func (e *StepError) WithTool(tool string) *StepError {
	c := *e
	c.Tool = tool
	return &c
}

// WithSuggestion returns a new StepError with suggestion set.
func (e *StepError) WithSuggestion(suggestion string) *StepError {
	c := *e
	c.Suggestion = suggestion
	return &c
}

// WithUnderlying returns a new StepError wrapping another error.
func (e *StepError) WithUnderlying(err error) *StepError {
	c := *e
	c.Underlying = err
	return &c
}

// CodeOf returns the code of the first StepError in err's chain, or "".
func CodeOf(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Code
	}
	return ""
}

// NewUnknownTargetError creates an error for a target name missing from the recipe.
func NewUnknownTargetError(target string, known []string) *StepError {
	names := append([]string(nil), known...)
	sort.Strings(names)
	return &StepError{
		Code:       ErrCodeStepNotFound,
		Message:    "unknown target",
		StepID:     target,
		Suggestion: fmt.Sprintf("Known targets: %s.", strings.Join(names, ", ")),
		Underlying: ErrUnknownTarget,
	}
}

// NewAlreadyExistsError creates an error for a destination that must not exist yet.
func NewAlreadyExistsError(path string) *StepError {
	return &StepError{
		Code:       ErrCodeAlreadyExists,
		Message:    "destination already exists",
		Path:       path,
		Suggestion: "Choose another path or remove the existing one first.",
		Underlying: ErrAlreadyExists,
	}
}

// NewStepDuplicateError creates an error for a duplicate step ID.
func NewStepDuplicateError(stepID string) *StepError {
	return &StepError{
		Code:       ErrCodeStepDuplicate,
		Message:    "step with this ID already exists in the recipe",
		StepID:     stepID,
		Suggestion: "Each step must have a unique name.",
		Underlying: ErrDuplicateStep,
	}
}

// NewDependencyMissingError creates an error for a missing step dependency.
func NewDependencyMissingError(stepID, dependsOn string) *StepError {
	return &StepError{
		Code:       ErrCodeDependencyMissing,
		Message:    fmt.Sprintf("step depends on '%s' which does not exist", dependsOn),
		StepID:     stepID,
		Suggestion: "Declare the dependency as a step or remove it from depends_on.",
		Underlying: ErrMissingDep,
	}
}

// NewCyclicDependencyError creates an error for cyclic dependencies.
func NewCyclicDependencyError(cycle []string) *StepError {
	return &StepError{
		Code:       ErrCodeCyclicDependency,
		Message:    fmt.Sprintf("cyclic dependency detected among: %s", strings.Join(cycle, ", ")),
		Suggestion: "Review depends_on in the recipe to break the circular chain.",
		Underlying: ErrCyclicDependency,
	}
}

// NewApplyFailedError creates an error for a step that failed to build.
func NewApplyFailedError(stepID string, err error) *StepError {
	return &StepError{
		Code:       ErrCodeApplyFailed,
		Message:    "step failed to build",
		StepID:     stepID,
		Suggestion: "Fix the cause and run the build again; completed steps are not redone.",
		Underlying: err,
	}
}

// NewCheckFailedError creates an error for a step check failure.
func NewCheckFailedError(stepID string, err error) *StepError {
	return &StepError{
		Code:       ErrCodeCheckFailed,
		Message:    "step status check failed",
		StepID:     stepID,
		Suggestion: "The step could not read its completion marker. Check cache permissions.",
		Underlying: err,
	}
}
