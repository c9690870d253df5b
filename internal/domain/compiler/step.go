package compiler

// Step represents an idempotent unit of work in a build recipe.
// Each step can check its current state, plan changes, and apply them.
type Step interface {
	// ID returns the unique identifier for this step.
	ID() StepID

	// DependsOn returns the IDs of steps that must complete before this one.
	DependsOn() []StepID

	// Check determines the current status of this step.
	// Returns StatusSatisfied when the completion marker exists,
	// StatusNeedsApply otherwise.
	Check(ctx RunContext) (StepStatus, error)

	// Plan returns the diff describing what changes this step will make.
	Plan(ctx RunContext) (Diff, error)

	// Apply brings the step to its built state.
	// Running it again once built is a no-op.
	Apply(ctx RunContext) error

	// Explain returns human-readable context for this step.
	Explain(ctx ExplainContext) Explanation
}

// PurgeableStep extends Step with the ability to discard its outputs.
// After Purge, Check reports StatusNeedsApply and the next Apply redoes
// the whole step.
type PurgeableStep interface {
	Step

	// Purge removes the step's on-disk artifacts and completion marker.
	// Purging an absent step is a no-op.
	Purge(ctx RunContext) error
}

// IsPurgeable checks if a step implements the PurgeableStep interface.
func IsPurgeable(step Step) bool {
	_, ok := step.(PurgeableStep)
	return ok
}

// AsPurgeable attempts to cast a step to PurgeableStep.
// Returns nil if the step cannot be purged.
func AsPurgeable(step Step) PurgeableStep {
	if p, ok := step.(PurgeableStep); ok {
		return p
	}
	return nil
}
