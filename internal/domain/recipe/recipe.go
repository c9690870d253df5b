// Package recipe turns a manifest into a validated chain of build steps and
// runs build, clean and rebuild over it.
package recipe

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/felixgeelhaar/qgsmg/internal/domain/buildinfo"
	"github.com/felixgeelhaar/qgsmg/internal/domain/buildstep"
	"github.com/felixgeelhaar/qgsmg/internal/domain/compiler"
	"github.com/felixgeelhaar/qgsmg/internal/domain/execution"
	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

// Recipe is a compiled, validated build chain.
type Recipe struct {
	graph  *compiler.StepGraph
	steps  map[string]*buildstep.Step
	chain  []*buildstep.Step
	def    string
	source string
}

// Compile validates m and creates its steps. source is recorded as the
// provenance of every step.
func Compile(m Manifest, source string, deps buildstep.Deps) (*Recipe, error) {
	if len(m.Steps) == 0 {
		return nil, invalid(source, errors.New("recipe declares no steps"))
	}
	libraries := make(map[string]string, len(m.Steps))
	for _, s := range m.Steps {
		lib := s.Library
		if lib == "" {
			lib = s.Name
		}
		libraries[s.Name] = lib
	}

	title := cases.Title(language.English)
	graph := compiler.NewStepGraph()
	steps := make(map[string]*buildstep.Step, len(m.Steps))
	for _, spec := range m.Steps {
		step, err := compileStep(spec, source, libraries, title, deps)
		if err != nil {
			return nil, invalidStep(source, spec.Name, err)
		}
		if err := graph.Add(step); err != nil {
			return nil, invalidStep(source, spec.Name, err)
		}
		steps[spec.Name] = step
	}

	if err := graph.Validate(); err != nil {
		return nil, invalid(source, err)
	}

	// Salt sources must be prerequisites, so they are built by the time
	// their flags are used.
	for _, spec := range m.Steps {
		prereqs := graph.Prerequisites(spec.Name)
		sources := make([]*buildstep.Step, 0, len(spec.SaltFrom))
		for _, name := range spec.SaltFrom {
			src, ok := steps[name]
			if !ok {
				return nil, invalidStep(source, spec.Name, fmt.Errorf("salt source %q is not a step", name))
			}
			if !prereqs[name] {
				return nil, invalidStep(source, spec.Name,
					fmt.Errorf("salt source %q is not a prerequisite; add it to depends_on", name))
			}
			sources = append(sources, src)
		}
		steps[spec.Name].BindSalts(sources)
	}

	sorted, err := graph.TopologicalSort()
	if err != nil {
		return nil, invalid(source, err)
	}
	chain := make([]*buildstep.Step, len(sorted))
	for i, s := range sorted {
		chain[i] = steps[s.ID().String()]
	}

	def := m.Default
	if def == "" {
		def = chain[len(chain)-1].ID().String()
	} else if _, ok := steps[def]; !ok {
		return nil, invalid(source, fmt.Errorf("default target %q is not a step", def))
	}

	return &Recipe{graph: graph, steps: steps, chain: chain, def: def, source: source}, nil
}

func compileStep(spec *StepSpec, source string, libraries map[string]string, title cases.Caser, deps buildstep.Deps) (*buildstep.Step, error) {
	if spec.Version != "" && !buildinfo.ValidVersion(spec.Version) {
		return nil, fmt.Errorf("version %q is not a semantic version", spec.Version)
	}
	kind, err := buildstep.ParseSaltKind(spec.SaltKind)
	if err != nil {
		return nil, err
	}
	proc, err := spec.procedure(libraries)
	if err != nil {
		return nil, err
	}

	human := spec.Human
	if human == "" {
		human = title.String(spec.Name)
	}

	return buildstep.New(buildstep.Definition{
		Name:       spec.Name,
		Library:    libraries[spec.Name],
		HumanName:  human,
		Version:    spec.Version,
		DependsOn:  spec.DependsOn,
		SaltFrom:   spec.SaltFrom,
		SaltKind:   kind,
		ExtraFlags: spec.Flags,
		Procedure:  proc,
		Provenance: source,
	}, deps)
}

func invalidStep(source, name string, err error) error {
	return compiler.NewStepError(compiler.ErrCodeRecipeInvalid,
		fmt.Sprintf("invalid recipe %s: step %s: %v", source, name, err)).
		WithStepID(name).
		WithUnderlying(err)
}

// Source returns where the recipe was loaded from.
func (r *Recipe) Source() string { return r.source }

// Default returns the target built when none is named.
func (r *Recipe) Default() string { return r.def }

// Targets returns every step name in chain order.
func (r *Recipe) Targets() []string {
	names := make([]string, len(r.chain))
	for i, s := range r.chain {
		names[i] = s.ID().String()
	}
	return names
}

// Steps returns the steps in chain order.
func (r *Recipe) Steps() []*buildstep.Step {
	return append([]*buildstep.Step(nil), r.chain...)
}

// Step returns the named step or an unknown-target error.
func (r *Recipe) Step(name string) (*buildstep.Step, error) {
	s, ok := r.steps[name]
	if !ok {
		return nil, compiler.NewUnknownTargetError(name, r.graph.Names())
	}
	return s, nil
}

// Graph returns the underlying step graph.
func (r *Recipe) Graph() *compiler.StepGraph { return r.graph }

// Resolve returns the chain prefix ending at target.
func (r *Recipe) Resolve(target string) ([]*buildstep.Step, error) {
	steps, err := r.graph.Resolve(target)
	if err != nil {
		return nil, err
	}
	return r.concrete(steps), nil
}

// Closure returns target and its transitive prerequisites only.
func (r *Recipe) Closure(target string) ([]*buildstep.Step, error) {
	steps, err := r.graph.Closure(target)
	if err != nil {
		return nil, err
	}
	return r.concrete(steps), nil
}

func (r *Recipe) concrete(steps []compiler.Step) []*buildstep.Step {
	out := make([]*buildstep.Step, len(steps))
	for i, s := range steps {
		out[i] = r.steps[s.ID().String()]
	}
	return out
}

// BuildOptions tune a build.
type BuildOptions struct {
	// Minimal builds only the target's prerequisites instead of the
	// whole chain prefix.
	Minimal  bool
	DryRun   bool
	RunID    string
	Observer execution.Observer
}

func (r *Recipe) selection(target string, minimal bool) ([]*buildstep.Step, error) {
	if minimal {
		return r.Closure(target)
	}
	return r.Resolve(target)
}

// Plan reports what building target would do.
func (r *Recipe) Plan(ctx context.Context, target string, minimal bool) (*execution.Plan, error) {
	steps, err := r.selection(target, minimal)
	if err != nil {
		return nil, err
	}
	return execution.NewPlanner().PlanSteps(ctx, asCompilerSteps(steps))
}

// Build ensures every step up to and including target is built, in chain
// order. The first failure stops the run; steps built before it stay built
// and the steps after it are reported skipped.
func (r *Recipe) Build(ctx context.Context, target string, opts BuildOptions) ([]execution.StepResult, error) {
	plan, err := r.Plan(ctx, target, opts.Minimal)
	if err != nil {
		return nil, err
	}

	exec := execution.NewExecutor().
		WithDryRun(opts.DryRun).
		WithRunID(opts.RunID)
	if opts.Observer != nil {
		exec = exec.WithObserver(opts.Observer)
	}
	return exec.Execute(ctx, plan)
}

// Clean purges target only. Steps that consumed its outputs are not
// invalidated.
func (r *Recipe) Clean(ctx context.Context, target string) error {
	s, err := r.Step(target)
	if err != nil {
		return err
	}
	return s.Purge(compiler.NewRunContext(ctx))
}

// Rebuild cleans target, then builds up to it.
func (r *Recipe) Rebuild(ctx context.Context, target string, opts BuildOptions) ([]execution.StepResult, error) {
	if !opts.DryRun {
		if err := r.Clean(ctx, target); err != nil {
			return nil, err
		}
	}
	return r.Build(ctx, target, opts)
}

func asCompilerSteps(steps []*buildstep.Step) []compiler.Step {
	out := make([]compiler.Step, len(steps))
	for i, s := range steps {
		out[i] = s
	}
	return out
}

// StepStatus is the state of one step as reported by Status.
type StepStatus struct {
	Name    string
	Human   string
	Version string
	Built   bool
	// Record is the step's build record; zero when it has none.
	Record    buildinfo.Record
	HasRecord bool
	Stale     bool
	Reasons   []string
}

// Status reports every step in chain order. Stale steps are only reported;
// nothing is invalidated.
func (r *Recipe) Status(fsys ports.FileSystem) ([]StepStatus, error) {
	records := make(map[string]buildinfo.Record, len(r.chain))
	out := make([]StepStatus, 0, len(r.chain))
	for _, s := range r.chain {
		name := s.ID().String()
		st := StepStatus{
			Name:    name,
			Human:   s.HumanName(),
			Version: s.Version(),
			Built:   s.Built(),
		}
		rec, ok, err := buildinfo.Read(fsys, s.Paths().BuildInfo())
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", name, err)
		}
		if ok {
			st.Record, st.HasRecord = rec, true
			records[name] = rec
		}
		out = append(out, st)
	}

	index := make(map[string]int, len(out))
	for i := range out {
		index[out[i].Name] = i
		if !out[i].Built || !out[i].HasRecord {
			continue
		}
		a := buildinfo.Assess(out[i].Record, out[i].Version, records)
		out[i].Stale, out[i].Reasons = a.Stale, a.Reasons
	}

	// A built step is also stale when anything it depends on was cleaned or
	// rebuilt after it. Salt sources are already covered by Assess.
	for _, prereq := range out {
		dependents, err := r.graph.Dependents(prereq.Name)
		if err != nil {
			return nil, err
		}
		for _, dep := range dependents {
			st := &out[index[dep.ID().String()]]
			if !st.Built || saltsFrom(st.Record, prereq.Name) {
				continue
			}
			switch {
			case !prereq.Built:
				st.Reasons = append(st.Reasons, fmt.Sprintf("prerequisite %s is not built", prereq.Name))
			case prereq.HasRecord && st.HasRecord && prereq.Record.Finished.After(st.Record.Finished):
				st.Reasons = append(st.Reasons, fmt.Sprintf("prerequisite %s was rebuilt after it", prereq.Name))
			default:
				continue
			}
			st.Stale = true
		}
	}
	return out, nil
}

func saltsFrom(rec buildinfo.Record, name string) bool {
	for _, s := range rec.Salts {
		if s == name {
			return true
		}
	}
	return false
}
