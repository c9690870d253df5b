package execution

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/qgsmg/internal/domain/compiler"
)

// Planner generates a Plan for a resolved chain of steps.
// It checks each step's completion marker and plans the necessary work.
type Planner struct{}

// NewPlanner creates a new Planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan checks every step of a graph, in chain order.
func (p *Planner) Plan(ctx context.Context, graph *compiler.StepGraph) (*Plan, error) {
	steps, err := graph.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("failed to sort steps: %w", err)
	}
	return p.PlanSteps(ctx, steps)
}

// PlanSteps checks the given steps, which must already be in chain order
// (the output of Resolve or Closure).
func (p *Planner) PlanSteps(ctx context.Context, steps []compiler.Step) (*Plan, error) {
	plan := NewExecutionPlan()
	runCtx := compiler.NewRunContext(ctx)

	for _, step := range steps {
		entry, err := p.planStep(step, runCtx)
		if err != nil {
			return nil, compiler.NewCheckFailedError(step.ID().String(), err)
		}
		plan.Add(entry)
	}

	return plan, nil
}

func (p *Planner) planStep(step compiler.Step, ctx compiler.RunContext) (PlanEntry, error) {
	status, err := step.Check(ctx)
	if err != nil {
		return PlanEntry{}, fmt.Errorf("check failed: %w", err)
	}

	diff, err := step.Plan(ctx)
	if err != nil {
		return PlanEntry{}, fmt.Errorf("plan failed: %w", err)
	}

	return NewPlanEntry(step, status, diff), nil
}
