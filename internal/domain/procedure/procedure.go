// Package procedure implements build procedures: the prepare actions and
// build strategy that turn a fetched source tree into installed libraries.
// Procedures are composed from data rather than subclassed per library.
package procedure

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/felixgeelhaar/qgsmg/internal/domain/buildstep"
	"github.com/felixgeelhaar/qgsmg/internal/domain/toolchain"
)

// Install copies one build product into place after the build.
type Install struct {
	From string
	To   string
	// Optional skips a missing source instead of failing.
	Optional bool
}

// Procedure is a declarative build procedure. Fetch actions run in the
// step's source dir; Workdir is then entered for the prepare actions, the
// build strategy and the post-build copies.
type Procedure struct {
	Fetch   []Action
	Workdir string
	Prepare []Action
	Build   Build
	// Headers copies build/<lib>/include to include/<lib>.
	Headers  bool
	Installs []Install
	// HostPython gives the procedure the host interpreter locations.
	HostPython bool
	// Libraries maps step names to library dir names for ${build:step}
	// style placeholders.
	Libraries map[string]string
}

// Validate checks the procedure without running anything.
func (p *Procedure) Validate() error {
	if !KnownStrategy(p.Strategy()) {
		return fmt.Errorf("unknown strategy %q (known: %v)", p.Build.Strategy, Strategies())
	}
	for _, a := range append(append([]Action(nil), p.Fetch...), p.Prepare...) {
		if _, err := ParseActionKind(string(a.Kind)); err != nil {
			return err
		}
		if _, err := sedOptions(a.SedMode); err != nil {
			return err
		}
		if (a.Kind == ActionFetch || a.Kind == ActionCheckout) && a.URL == "" {
			return fmt.Errorf("%s action needs a url", a.Kind)
		}
	}
	if p.Strategy() == StrategyQMake && p.Build.Project == "" {
		return fmt.Errorf("qmake strategy needs a project file")
	}
	if p.needsPython() {
		if _, ok := p.Libraries[PythonStep]; !ok {
			return fmt.Errorf("host python needs a %q step", PythonStep)
		}
	}
	return nil
}

func (p *Procedure) needsPython() bool {
	s := p.Strategy()
	return p.HostPython || s == StrategyPyConfigure || s == StrategyPySetup
}

// Outputs returns the shared directories the build strategy installs into.
// The standalone toolchain lives at the cache root, outside the step layout.
func (p *Procedure) Outputs(env *toolchain.Environment) []string {
	if p.Strategy() == StrategyToolchain {
		return []string{env.ToolchainDir}
	}
	return nil
}

// Strategy returns the build strategy name.
func (p *Procedure) Strategy() string {
	if p.Build.Strategy == "" {
		return StrategyNone
	}
	return p.Build.Strategy
}

// Actions summarises the procedure in execution order.
func (p *Procedure) Actions() []string {
	out := make([]string, 0, len(p.Fetch)+len(p.Prepare)+2)
	if p.Strategy() == StrategyCopyTree {
		src := p.Build.Source
		if src == "" {
			src = "${runtime}"
		}
		out = append(out, "copytree "+src)
	}
	for _, a := range p.Fetch {
		out = append(out, a.Describe())
	}
	if p.Workdir != "" {
		out = append(out, "enter "+p.Workdir)
	}
	for _, a := range p.Prepare {
		out = append(out, a.Describe())
	}
	out = append(out, "build "+describeBuild(p.Build))
	if p.Headers {
		out = append(out, "headers")
	}
	for _, in := range p.Installs {
		out = append(out, "install "+in.From+" -> "+in.To)
	}
	return out
}

// Sources lists the upstream locations the procedure downloads.
func (p *Procedure) Sources() []string {
	var out []string
	for _, a := range append(append([]Action(nil), p.Fetch...), p.Prepare...) {
		if a.Kind == ActionFetch || a.Kind == ActionCheckout {
			out = append(out, a.URL)
		}
	}
	return out
}

// runner carries the state of one procedure run.
type runner struct {
	ws       *buildstep.Workspace
	vars     *Vars
	python   *HostPython
	flags    toolchain.Flags
	buildEnv map[string]string
}

// Run executes the procedure inside ws.
func (p *Procedure) Run(ctx context.Context, ws *buildstep.Workspace) error {
	build, ok := strategies[p.Strategy()]
	if !ok {
		return fmt.Errorf("unknown strategy %q", p.Build.Strategy)
	}

	r := &runner{ws: ws}
	if p.needsPython() {
		lib, ok := p.Libraries[PythonStep]
		if !ok {
			return fmt.Errorf("host python needs a %q step", PythonStep)
		}
		hp := NewHostPython(ws.Env.CacheRoot, buildstep.NewLayout(ws.Env.CacheRoot, ws.Env.PatchesDir, lib))
		r.python = &hp
	}
	r.vars = newVars(ws, p.Libraries, r.python)

	flags, err := r.vars.ExpandMap(ws.Flags)
	if err != nil {
		return fmt.Errorf("expanding flags: %w", err)
	}
	r.flags = flags
	if r.buildEnv, err = r.vars.ExpandMap(p.Build.Env); err != nil {
		return fmt.Errorf("expanding build env: %w", err)
	}

	if p.Strategy() == StrategyCopyTree {
		if err := r.copyTree(p.Build.Source); err != nil {
			return err
		}
	}
	for _, a := range p.Fetch {
		if err := r.action(ctx, a); err != nil {
			return err
		}
	}

	workdir, err := r.vars.Expand(p.Workdir)
	if err != nil {
		return err
	}
	if workdir == "" {
		workdir = "."
	}
	return ws.Stack.Within(workdir, func(string) error {
		for _, a := range p.Prepare {
			if err := r.action(ctx, a); err != nil {
				return err
			}
		}
		if err := build(ctx, r, p.Build); err != nil {
			return err
		}
		return r.post(p)
	})
}

func (r *runner) copyTree(source string) error {
	if source == "" {
		source = r.ws.Env.RuntimeDir
	}
	src, err := r.vars.Expand(source)
	if err != nil {
		return err
	}
	if err := r.ws.FS.CopyTree(src, r.ws.Layout.SourceDir()); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return nil
}

func (r *runner) post(p *Procedure) error {
	if p.Headers {
		src := r.ws.Layout.BuildInclude()
		if !r.ws.FS.IsDir(src) {
			return fmt.Errorf("build produced no headers in %s", src)
		}
		if err := r.ws.FS.CopyTree(src, r.ws.Layout.IncludeDir()); err != nil {
			return fmt.Errorf("copying headers: %w", err)
		}
	}
	for _, in := range p.Installs {
		from, err := r.path(in.From)
		if err != nil {
			return err
		}
		to, err := r.path(in.To)
		if err != nil {
			return err
		}
		if !r.ws.FS.Exists(from) {
			if in.Optional {
				continue
			}
			return fmt.Errorf("install: %s does not exist", from)
		}
		if r.ws.FS.IsDir(from) {
			err = r.ws.FS.CopyTree(from, to)
		} else {
			if err = r.ws.FS.MkdirAll(filepath.Dir(to), 0o755); err == nil {
				err = r.ws.FS.CopyFile(from, to)
			}
		}
		if err != nil {
			return fmt.Errorf("install %s: %w", in.From, err)
		}
	}
	return nil
}

// tool runs name in the current directory with the build env and extra
// variables on top of the step environment.
func (r *runner) tool(ctx context.Context, extra map[string]string, name string, args ...string) error {
	env := toolchain.Flags(r.buildEnv).Merge(extra)
	return r.ws.Tools.RunEnv(ctx, r.ws.Stack.Current(), env, name, args...)
}

var _ buildstep.Procedure = (*Procedure)(nil)
