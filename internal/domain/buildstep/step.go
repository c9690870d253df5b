// Package buildstep implements the idempotent, resumable build step: a
// library whose build procedure runs at most once per cache root, guarded
// by a completion marker file.
package buildstep

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/qgsmg/internal/domain/buildinfo"
	"github.com/felixgeelhaar/qgsmg/internal/domain/compiler"
	"github.com/felixgeelhaar/qgsmg/internal/domain/toolchain"
	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

// Procedure is the library-specific part of a step: prepare actions and a
// build strategy. It runs with the step's directories freshly created and
// must leave the source stack balanced.
type Procedure interface {
	Run(ctx context.Context, ws *Workspace) error
	// Strategy names the build strategy, e.g. "autotools".
	Strategy() string
	// Actions summarises the prepare actions in order.
	Actions() []string
	// Sources lists the upstream locations the procedure fetches.
	Sources() []string
	// Outputs lists directories outside the step's layout that the
	// procedure installs into. A purge removes them too.
	Outputs(env *toolchain.Environment) []string
}

// Workspace is everything a procedure may touch while it runs.
type Workspace struct {
	Layout  Layout
	Env     *toolchain.Environment
	Flags   toolchain.Flags
	Stack   *SourceStack
	Tools   *Tools
	FS      ports.FileSystem
	Logger  ports.Logger
	Version string
}

// Definition is the declarative description of a step, as read from a recipe.
type Definition struct {
	Name       string
	Library    string
	HumanName  string
	Version    string
	DependsOn  []string
	SaltFrom   []string
	SaltKind   SaltKind
	ExtraFlags toolchain.Flags
	Procedure  Procedure
	Provenance string
}

// Deps are the collaborators a step works through.
type Deps struct {
	Runner ports.CommandRunner
	FS     ports.FileSystem
	Logger ports.Logger
	Env    *toolchain.Environment
	Now    func() time.Time
}

// Step is one buildable library. It holds no durable state of its own:
// whether it is built is decided by its marker file alone.
type Step struct {
	def       Definition
	id        compiler.StepID
	deps      []compiler.StepID
	layout    Layout
	salts     []*Step
	runner    ports.CommandRunner
	fs        ports.FileSystem
	logger    ports.Logger
	env       *toolchain.Environment
	now       func() time.Time
	lifecycle *Lifecycle
}

// New creates a step from its definition.
func New(def Definition, d Deps) (*Step, error) {
	id, err := compiler.NewStepID(def.Name)
	if err != nil {
		return nil, fmt.Errorf("step %q: %w", def.Name, err)
	}
	deps, err := compiler.StepIDs(def.DependsOn...)
	if err != nil {
		return nil, fmt.Errorf("step %q: dependency: %w", def.Name, err)
	}
	if def.Library == "" {
		def.Library = def.Name
	}
	if def.HumanName == "" {
		def.HumanName = def.Name
	}
	if def.SaltKind == "" {
		def.SaltKind = SaltBase
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	lc, err := NewLifecycle(def.Name)
	if err != nil {
		return nil, err
	}

	return &Step{
		def:       def,
		id:        id,
		deps:      deps,
		layout:    NewLayout(d.Env.CacheRoot, d.Env.PatchesDir, def.Library),
		runner:    d.Runner,
		fs:        d.FS,
		logger:    d.Logger.With(ports.F("step", def.Name)),
		env:       d.Env,
		now:       d.Now,
		lifecycle: lc,
	}, nil
}

// BindSalts resolves the step's salt sources. The recipe calls it once all
// steps exist; sources must be given in the order the definition names them.
func (s *Step) BindSalts(sources []*Step) {
	s.salts = append([]*Step(nil), sources...)
}

// ID returns the step ID.
func (s *Step) ID() compiler.StepID { return s.id }

// DependsOn returns the declared prerequisites.
func (s *Step) DependsOn() []compiler.StepID { return s.deps }

// Definition returns the step's definition.
func (s *Step) Definition() Definition { return s.def }

// HumanName returns the display name.
func (s *Step) HumanName() string { return s.def.HumanName }

// Version returns the declared version, possibly empty.
func (s *Step) Version() string { return s.def.Version }

// Paths returns the step's cache layout.
func (s *Step) Paths() Layout { return s.layout }

// Lifecycle returns the in-memory lifecycle machine.
func (s *Step) Lifecycle() *Lifecycle { return s.lifecycle }

// Built reports whether the completion marker exists.
func (s *Step) Built() bool {
	built := s.fs.Exists(s.layout.Marker())
	if built && s.lifecycle.State() == StateUnbuilt {
		s.lifecycle.MarkerFound()
	}
	return built
}

// Check reports satisfied when the marker exists.
func (s *Step) Check(_ compiler.RunContext) (compiler.StepStatus, error) {
	if s.Built() {
		return compiler.StatusSatisfied, nil
	}
	return compiler.StatusNeedsApply, nil
}

// Plan describes what EnsureBuilt would do.
func (s *Step) Plan(_ compiler.RunContext) (compiler.Diff, error) {
	resource := "library"
	if s.def.Procedure != nil && s.def.Procedure.Strategy() == "toolchain" {
		resource = "toolchain"
	}
	if s.Built() {
		return compiler.NewDiff(compiler.DiffTypeNone, resource, s.def.Name, s.def.Version, s.def.Version), nil
	}

	paths := append([]string{s.layout.Marker()}, s.layout.Paths()...)
	for _, p := range s.layout.Paths() {
		if s.fs.Exists(p) {
			return compiler.NewDiff(compiler.DiffTypeModify, resource, s.def.Name, "partial", s.versionLabel()).
				WithPaths(paths...), nil
		}
	}
	return compiler.NewDiff(compiler.DiffTypeAdd, resource, s.def.Name, "", s.def.Version).WithPaths(paths...), nil
}

func (s *Step) versionLabel() string {
	if s.def.Version == "" {
		return "rebuild"
	}
	return s.def.Version
}

// Apply builds the step unless its marker exists.
func (s *Step) Apply(ctx compiler.RunContext) error {
	return s.ensureBuilt(ctx)
}

// EnsureBuilt builds the step unless its marker exists.
func (s *Step) EnsureBuilt(ctx context.Context) error {
	return s.ensureBuilt(compiler.NewRunContext(ctx))
}

func (s *Step) ensureBuilt(rc compiler.RunContext) error {
	ctx := rc.Context()
	log := s.logger
	if rc.RunID() != "" {
		log = log.With(ports.F("run", rc.RunID()))
	}

	if s.Built() {
		log.Info(ctx, "already done", ports.F("name", s.def.HumanName))
		return nil
	}
	if rc.DryRun() {
		log.Info(ctx, "would build", ports.F("name", s.def.HumanName))
		return nil
	}

	s.lifecycle.Start()
	log.Info(ctx, "building", ports.F("name", s.def.HumanName), ports.F("version", s.def.Version))

	flags, err := s.build(ctx, log)
	if err != nil {
		s.lifecycle.Fail()
		log.Error(ctx, "build failed", ports.F("error", err))
		return err
	}

	rec := buildinfo.Record{
		RunID:    rc.RunID(),
		Library:  s.def.Name,
		Version:  s.def.Version,
		Finished: s.now().UTC(),
		Salts:    s.saltNames(),
		Flags:    flags,
	}
	if err := s.fs.MkdirAll(s.layout.BuildDir(), 0o755); err != nil {
		s.lifecycle.Fail()
		return fmt.Errorf("creating %s: %w", s.layout.BuildDir(), err)
	}
	if err := buildinfo.Write(s.fs, s.layout.BuildInfo(), rec); err != nil {
		s.lifecycle.Fail()
		return err
	}
	if err := s.fs.WriteFile(s.layout.Marker(), nil, 0o644); err != nil {
		s.lifecycle.Fail()
		return fmt.Errorf("writing marker %s: %w", s.layout.Marker(), err)
	}

	s.lifecycle.Succeed()
	log.Info(ctx, "built", ports.F("name", s.def.HumanName))
	return nil
}

func (s *Step) build(ctx context.Context, log ports.Logger) (toolchain.Flags, error) {
	if err := s.removeOutputs(); err != nil {
		return nil, err
	}
	for _, dir := range append(s.layout.Roots(), s.layout.Paths()...) {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	flags := s.ComposeFlags()
	if s.def.Procedure == nil {
		return flags, nil
	}

	ws := &Workspace{
		Layout:  s.layout,
		Env:     s.env,
		Flags:   flags,
		Stack:   NewSourceStack(s.layout.SourceDir()),
		Tools:   NewTools(s.runner, s.env.BaseEnv(), log, s.def.Name),
		FS:      s.fs,
		Logger:  log,
		Version: s.def.Version,
	}
	if err := s.def.Procedure.Run(ctx, ws); err != nil {
		return nil, err
	}
	if err := ws.Stack.CheckBalanced(); err != nil {
		return nil, err
	}
	return flags, nil
}

// Purge removes the step's build, source and include dirs, any extra
// procedure outputs, and its marker.
// Purging an absent step is a no-op.
func (s *Step) Purge(rc compiler.RunContext) error {
	if rc.DryRun() {
		return nil
	}
	if err := s.removeOutputs(); err != nil {
		return err
	}
	if err := s.fs.Remove(s.layout.Marker()); err != nil && s.fs.Exists(s.layout.Marker()) {
		return fmt.Errorf("removing marker %s: %w", s.layout.Marker(), err)
	}
	s.lifecycle.Purge()
	s.logger.Debug(rc.Context(), "purged")
	return nil
}

// OutputPaths returns every directory a purge removes, in removal order.
func (s *Step) OutputPaths() []string {
	paths := s.layout.Paths()
	if s.def.Procedure != nil {
		paths = append(paths, s.def.Procedure.Outputs(s.env)...)
	}
	return paths
}

func (s *Step) removeOutputs() error {
	for _, dir := range s.OutputPaths() {
		if err := s.fs.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
	}
	return nil
}

func (s *Step) saltNames() []string {
	names := make([]string, len(s.salts))
	for i, src := range s.salts {
		names[i] = src.def.Name
	}
	return names
}

// Explain describes the step for plan output.
func (s *Step) Explain(ctx compiler.ExplainContext) compiler.Explanation {
	summary := "Build " + s.def.HumanName
	if s.def.Version != "" {
		summary += " " + s.def.Version
	}

	strategy := "none"
	var actions, sources []string
	if s.def.Procedure != nil {
		strategy = s.def.Procedure.Strategy()
		actions = s.def.Procedure.Actions()
		sources = s.def.Procedure.Sources()
	}

	detail := "strategy " + strategy
	if len(s.salts) > 0 {
		detail += ", salted by " + strings.Join(s.saltNames(), ", ")
	}
	if ctx.Verbose() {
		detail += "\n" + s.ComposeFlags().String()
	}

	provenance := s.def.Provenance
	if ctx.Provenance() != "" {
		provenance = ctx.Provenance()
	}

	return compiler.NewExplanation(summary, detail, sources).
		WithActions(actions).
		WithProvenance(provenance)
}

var _ compiler.PurgeableStep = (*Step)(nil)
