package execution

import (
	"github.com/felixgeelhaar/qgsmg/internal/domain/compiler"
)

// PlanEntry is one step of a resolved chain together with its checked status.
type PlanEntry struct {
	step   compiler.Step
	status compiler.StepStatus
	diff   compiler.Diff
}

// NewPlanEntry creates a new PlanEntry.
func NewPlanEntry(step compiler.Step, status compiler.StepStatus, diff compiler.Diff) PlanEntry {
	return PlanEntry{
		step:   step,
		status: status,
		diff:   diff,
	}
}

// Step returns the step to be executed.
func (e PlanEntry) Step() compiler.Step {
	return e.step
}

// Status returns the current status of the step.
func (e PlanEntry) Status() compiler.StepStatus {
	return e.status
}

// Diff returns the planned changes.
func (e PlanEntry) Diff() compiler.Diff {
	return e.diff
}

// PlanSummary provides aggregate statistics about the execution plan.
type PlanSummary struct {
	Total      int
	NeedsApply int
	Satisfied  int
	Unknown    int
	Failed     int
	Skipped    int
}

// Plan is the checked, ordered chain for one build request.
type Plan struct {
	entries []PlanEntry
}

// NewExecutionPlan creates an empty Plan.
func NewExecutionPlan() *Plan {
	return &Plan{
		entries: make([]PlanEntry, 0),
	}
}

// Add appends a plan entry.
func (p *Plan) Add(entry PlanEntry) {
	p.entries = append(p.entries, entry)
}

// Len returns the number of entries.
func (p *Plan) Len() int {
	return len(p.entries)
}

// Entries returns all plan entries.
func (p *Plan) Entries() []PlanEntry {
	return p.entries
}

// NeedsApply returns entries that require execution.
func (p *Plan) NeedsApply() []PlanEntry {
	result := make([]PlanEntry, 0)
	for _, e := range p.entries {
		if e.status == compiler.StatusNeedsApply {
			result = append(result, e)
		}
	}
	return result
}

// HasChanges returns true if any steps need to be applied.
func (p *Plan) HasChanges() bool {
	return len(p.NeedsApply()) > 0
}

// Target returns the last step of the chain, or nil for an empty plan.
func (p *Plan) Target() compiler.Step {
	if len(p.entries) == 0 {
		return nil
	}
	return p.entries[len(p.entries)-1].step
}

// Lines renders one summary line per entry, in chain order.
func (p *Plan) Lines() []string {
	lines := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		if e.status == compiler.StatusSatisfied {
			lines = append(lines, "  "+e.step.ID().String()+" ("+e.status.Label()+")")
			continue
		}
		lines = append(lines, e.diff.Summary())
	}
	return lines
}

// Summary returns aggregate statistics.
func (p *Plan) Summary() PlanSummary {
	summary := PlanSummary{Total: len(p.entries)}
	for _, e := range p.entries {
		switch e.status {
		case compiler.StatusNeedsApply:
			summary.NeedsApply++
		case compiler.StatusSatisfied:
			summary.Satisfied++
		case compiler.StatusUnknown:
			summary.Unknown++
		case compiler.StatusFailed:
			summary.Failed++
		case compiler.StatusSkipped:
			summary.Skipped++
		}
	}
	return summary
}
