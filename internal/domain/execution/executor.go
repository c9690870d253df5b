package execution

import (
	"context"
	"time"

	"github.com/felixgeelhaar/qgsmg/internal/domain/compiler"
)

// Observer is notified as the executor walks a plan.
type Observer interface {
	StepStarted(entry PlanEntry)
	StepFinished(result StepResult)
}

// Executor runs the steps of a Plan in order and stops at the first failure.
type Executor struct {
	dryRun   bool
	runID    string
	observer Observer
}

// NewExecutor creates a new Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// WithDryRun returns an Executor that reports what it would build without building.
func (e *Executor) WithDryRun(dryRun bool) *Executor {
	c := *e
	c.dryRun = dryRun
	return &c
}

// WithRunID returns an Executor that tags every RunContext with id.
func (e *Executor) WithRunID(id string) *Executor {
	c := *e
	c.runID = id
	return &c
}

// WithObserver returns an Executor that reports progress to o.
func (e *Executor) WithObserver(o Observer) *Executor {
	c := *e
	c.observer = o
	return &c
}

// Execute runs all entries in plan order.
// Steps already built are reported satisfied without being applied. The
// first failing step ends the walk: every later entry is reported skipped
// and its procedure never runs. The returned error is the failing step's,
// so callers can surface the tool name.
func (e *Executor) Execute(ctx context.Context, plan *Plan) ([]StepResult, error) {
	results := make([]StepResult, 0, plan.Len())
	runCtx := compiler.NewRunContext(ctx).WithDryRun(e.dryRun).WithRunID(e.runID)

	var firstErr error
	for _, entry := range plan.Entries() {
		if firstErr == nil {
			if err := ctx.Err(); err != nil {
				firstErr = err
			}
		}

		if firstErr != nil {
			result := NewStepResult(entry.Step().ID(), compiler.StatusSkipped, nil)
			results = append(results, result)
			e.finished(result)
			continue
		}

		if e.observer != nil {
			e.observer.StepStarted(entry)
		}

		result := e.executeEntry(entry, runCtx)
		results = append(results, result)
		e.finished(result)

		if result.Status() == compiler.StatusFailed {
			firstErr = result.Error()
		}
	}

	return results, firstErr
}

func (e *Executor) finished(result StepResult) {
	if e.observer != nil {
		e.observer.StepFinished(result)
	}
}

func (e *Executor) executeEntry(entry PlanEntry, ctx compiler.RunContext) StepResult {
	step := entry.Step()
	stepID := step.ID()

	if entry.Status() == compiler.StatusSatisfied {
		return NewStepResult(stepID, compiler.StatusSatisfied, nil)
	}

	if ctx.DryRun() {
		return NewStepResult(stepID, entry.Status(), nil).WithDiff(entry.Diff())
	}

	start := time.Now()
	err := step.Apply(ctx)
	duration := time.Since(start)

	if err != nil {
		return NewStepResult(stepID, compiler.StatusFailed, compiler.NewApplyFailedError(stepID.String(), err)).
			WithDuration(duration)
	}

	return NewStepResult(stepID, compiler.StatusSatisfied, nil).
		WithDuration(duration).
		WithDiff(entry.Diff()).
		WithBuilt(true)
}
