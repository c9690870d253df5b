package execution

import (
	"github.com/felixgeelhaar/qgsmg/internal/domain/compiler"
)

// fakeStep records how often its procedure ran.
type fakeStep struct {
	id      compiler.StepID
	deps    []compiler.StepID
	built   bool
	applies int
	checkFn func() (compiler.StepStatus, error)
	applyFn func(compiler.RunContext) error
}

func newFakeStep(id string, deps ...string) *fakeStep {
	depIDs, _ := compiler.StepIDs(deps...)
	return &fakeStep{id: compiler.MustNewStepID(id), deps: depIDs}
}

func (s *fakeStep) ID() compiler.StepID          { return s.id }
func (s *fakeStep) DependsOn() []compiler.StepID { return s.deps }

func (s *fakeStep) Check(compiler.RunContext) (compiler.StepStatus, error) {
	if s.checkFn != nil {
		return s.checkFn()
	}
	if s.built {
		return compiler.StatusSatisfied, nil
	}
	return compiler.StatusNeedsApply, nil
}

func (s *fakeStep) Plan(compiler.RunContext) (compiler.Diff, error) {
	if s.built {
		return compiler.NewDiff(compiler.DiffTypeNone, "library", s.id.String(), "", ""), nil
	}
	return compiler.NewDiff(compiler.DiffTypeAdd, "library", s.id.String(), "", "1.0"), nil
}

func (s *fakeStep) Apply(ctx compiler.RunContext) error {
	if s.built {
		return nil
	}
	s.applies++
	if s.applyFn != nil {
		if err := s.applyFn(ctx); err != nil {
			return err
		}
	}
	s.built = true
	return nil
}

func (s *fakeStep) Explain(compiler.ExplainContext) compiler.Explanation {
	return compiler.NewExplanation("Build "+s.id.String(), "", nil)
}

func chainOf(steps ...*fakeStep) []compiler.Step {
	out := make([]compiler.Step, len(steps))
	for i, s := range steps {
		out[i] = s
	}
	return out
}

type recordingObserver struct {
	started  []string
	finished []compiler.StepStatus
}

func (o *recordingObserver) StepStarted(entry PlanEntry) {
	o.started = append(o.started, entry.Step().ID().String())
}

func (o *recordingObserver) StepFinished(result StepResult) {
	o.finished = append(o.finished, result.Status())
}
