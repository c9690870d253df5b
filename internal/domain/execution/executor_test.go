package execution

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/qgsmg/internal/domain/compiler"
)

func planFor(t *testing.T, steps ...*fakeStep) *Plan {
	t.Helper()
	plan, err := NewPlanner().PlanSteps(context.Background(), chainOf(steps...))
	if err != nil {
		t.Fatalf("PlanSteps() error = %v", err)
	}
	return plan
}

func TestExecutor_EmptyPlan(t *testing.T) {
	results, err := NewExecutor().Execute(context.Background(), NewExecutionPlan())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results len = %d, want 0", len(results))
	}
}

func TestExecutor_BuildsInOrder(t *testing.T) {
	var order []string
	a, b := newFakeStep("bzip2"), newFakeStep("sqlite", "bzip2")
	for _, s := range []*fakeStep{a, b} {
		name := s.id.String()
		s.applyFn = func(compiler.RunContext) error {
			order = append(order, name)
			return nil
		}
	}

	results, err := NewExecutor().Execute(context.Background(), planFor(t, a, b))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(order) != 2 || order[0] != "bzip2" || order[1] != "sqlite" {
		t.Errorf("apply order = %v", order)
	}
	for _, r := range results {
		if !r.Success() || !r.Built() {
			t.Errorf("%s: Success=%v Built=%v", r.StepID(), r.Success(), r.Built())
		}
	}
}

func TestExecutor_SatisfiedStepIsNotApplied(t *testing.T) {
	a := newFakeStep("bzip2")
	a.built = true

	results, err := NewExecutor().Execute(context.Background(), planFor(t, a))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if a.applies != 0 {
		t.Errorf("applies = %d, want 0", a.applies)
	}
	if !results[0].Success() || results[0].Built() {
		t.Errorf("result = %+v", results[0])
	}
}

func TestExecutor_FailFast(t *testing.T) {
	a, b, c := newFakeStep("a"), newFakeStep("b", "a"), newFakeStep("c", "b")
	b.applyFn = func(compiler.RunContext) error { return errors.New("make exited 2") }

	results, err := NewExecutor().Execute(context.Background(), planFor(t, a, b, c))
	if err == nil {
		t.Fatal("Execute() should return the failing step's error")
	}
	if compiler.CodeOf(err) != compiler.ErrCodeApplyFailed {
		t.Errorf("CodeOf() = %q", compiler.CodeOf(err))
	}

	if a.applies != 1 || b.applies != 1 || c.applies != 0 {
		t.Errorf("applies a=%d b=%d c=%d, want 1 1 0", a.applies, b.applies, c.applies)
	}

	want := []compiler.StepStatus{compiler.StatusSatisfied, compiler.StatusFailed, compiler.StatusSkipped}
	for i, r := range results {
		if r.Status() != want[i] {
			t.Errorf("results[%d] = %q, want %q", i, r.Status(), want[i])
		}
	}
	if !results[2].Skipped() {
		t.Error("c should be skipped")
	}
}

func TestExecutor_ResumesAfterFailure(t *testing.T) {
	a, b, c := newFakeStep("a"), newFakeStep("b", "a"), newFakeStep("c", "b")
	fail := true
	b.applyFn = func(compiler.RunContext) error {
		if fail {
			return errors.New("boom")
		}
		return nil
	}

	_, _ = NewExecutor().Execute(context.Background(), planFor(t, a, b, c))
	fail = false
	if _, err := NewExecutor().Execute(context.Background(), planFor(t, a, b, c)); err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}

	if a.applies != 1 {
		t.Errorf("a applied %d times, want 1", a.applies)
	}
	if b.applies != 2 || c.applies != 1 {
		t.Errorf("applies b=%d c=%d, want 2 1", b.applies, c.applies)
	}
}

func TestExecutor_DryRun(t *testing.T) {
	a := newFakeStep("geos")

	results, err := NewExecutor().WithDryRun(true).Execute(context.Background(), planFor(t, a))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if a.applies != 0 {
		t.Error("dry run should not apply")
	}
	if results[0].Status() != compiler.StatusNeedsApply || results[0].Diff().Name() != "geos" {
		t.Errorf("result = %+v", results[0])
	}
}

func TestExecutor_CancelledContextSkipsEverything(t *testing.T) {
	a := newFakeStep("proj4")
	plan := planFor(t, a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := NewExecutor().Execute(ctx, plan)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
	if a.applies != 0 || !results[0].Skipped() {
		t.Errorf("applies = %d, result = %q", a.applies, results[0].Status())
	}
}

func TestExecutor_ObserverAndRunID(t *testing.T) {
	a, b := newFakeStep("a"), newFakeStep("b")
	var seen string
	a.applyFn = func(ctx compiler.RunContext) error {
		seen = ctx.RunID()
		return nil
	}
	b.applyFn = func(compiler.RunContext) error { return errors.New("x") }
	c := newFakeStep("c")

	obs := &recordingObserver{}
	_, _ = NewExecutor().WithRunID("r-1").WithObserver(obs).Execute(context.Background(), planFor(t, a, b, c))

	if seen != "r-1" {
		t.Errorf("RunID() = %q, want r-1", seen)
	}
	if len(obs.started) != 2 {
		t.Errorf("started = %v, want [a b]", obs.started)
	}
	if len(obs.finished) != 3 || obs.finished[2] != compiler.StatusSkipped {
		t.Errorf("finished = %v", obs.finished)
	}
}

func TestStepResult_With(t *testing.T) {
	r := NewStepResult(compiler.MustNewStepID("x"), compiler.StatusSatisfied, nil)
	r2 := r.WithBuilt(true).WithDuration(5)

	if r.Built() || r.Duration() != 0 {
		t.Error("With* should not modify the original")
	}
	if !r2.Built() || r2.Duration() != 5 {
		t.Errorf("r2 = %+v", r2)
	}
	if r2.Error() != nil {
		t.Error("Error() should be nil")
	}
}
