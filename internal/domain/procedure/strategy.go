package procedure

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/qgsmg/internal/domain/toolchain"
	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

// Build strategies.
const (
	StrategyAutotools   = "autotools"
	StrategyCMake       = "cmake"
	StrategyQMake       = "qmake"
	StrategyMake        = "make"
	StrategyPyConfigure = "pyconfigure"
	StrategyPySetup     = "pysetup"
	StrategyToolchain   = "toolchain"
	StrategyCopyTree    = "copytree"
	StrategyNone        = "none"
)

// DefaultHarness is the out-of-tree build directory strategies create below
// the current source directory.
const DefaultHarness = "harness"

// Build configures the build phase of a procedure.
type Build struct {
	Strategy string
	// NoHarness builds in the source directory itself.
	NoHarness bool
	// Where is the directory holding the configure script, if not the
	// current one.
	Where string
	// Args are extra configure, cmake, qmake or configure.py arguments.
	Args []string
	// Defines become cmake -D arguments.
	Defines  map[string]string
	MakeArgs []string
	// Project is the qmake .pro file.
	Project  string
	Makefile string
	// Install runs "make install" after the make strategy.
	Install bool
	// NoInstall skips "make install" for the other strategies.
	NoInstall bool
	// Host configures python bindings for the host interpreter.
	Host bool
	// Source is the local tree the copytree strategy copies.
	Source string
	Env    map[string]string
}

type strategyFunc func(ctx context.Context, r *runner, b Build) error

// strategies is the static strategy registry.
var strategies = map[string]strategyFunc{
	StrategyAutotools:   autotools,
	StrategyCMake:       cmake,
	StrategyQMake:       qmake,
	StrategyMake:        makeOnly,
	StrategyPyConfigure: pyConfigure,
	StrategyPySetup:     pySetup,
	StrategyToolchain:   standaloneToolchain,
	StrategyCopyTree:    autotools,
	StrategyNone:        func(context.Context, *runner, Build) error { return nil },
}

// Strategies returns the known strategy names, sorted.
func Strategies() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KnownStrategy reports whether name is a registered strategy.
func KnownStrategy(name string) bool {
	_, ok := strategies[name]
	return ok
}

// inHarness runs fn in the harness dir unless b.NoHarness.
func (r *runner) inHarness(b Build, fn func() error) error {
	if b.NoHarness {
		return fn()
	}
	return r.ws.Stack.Within(DefaultHarness, func(dir string) error {
		if err := r.ws.FS.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating harness %s: %w", dir, err)
		}
		return fn()
	})
}

// makeAndInstall runs make, then make install unless disabled.
func (r *runner) makeAndInstall(ctx context.Context, b Build, installEnv map[string]string, env map[string]string) error {
	makeArgs, err := r.vars.ExpandAll(b.MakeArgs)
	if err != nil {
		return err
	}
	if err := r.tool(ctx, env, "make", makeArgs...); err != nil {
		return err
	}
	if b.NoInstall {
		return nil
	}
	merged := toolchain.Flags(env).Merge(installEnv)
	return r.tool(ctx, merged, "make", append([]string{"install"}, makeArgs...)...)
}

func autotools(ctx context.Context, r *runner, b Build) error {
	where := r.ws.Stack.Current()
	if b.Where != "" {
		w, err := r.path(b.Where)
		if err != nil {
			return err
		}
		where = w
	}
	extra, err := r.vars.ExpandAll(b.Args)
	if err != nil {
		return err
	}

	return r.inHarness(b, func() error {
		args := r.flags.Assignments()
		args = append(args, r.ws.Env.ConfigureFlags(r.ws.Layout.BuildDir())...)
		args = append(args, extra...)
		if err := r.tool(ctx, nil, filepath.Join(where, "configure"), args...); err != nil {
			return err
		}
		return r.makeAndInstall(ctx, b, nil, nil)
	})
}

func cmake(ctx context.Context, r *runner, b Build) error {
	source := r.ws.Stack.Current()
	defines, err := r.vars.ExpandMap(b.Defines)
	if err != nil {
		return err
	}
	extra, err := r.vars.ExpandAll(b.Args)
	if err != nil {
		return err
	}

	args := make([]string, 0, len(defines)+len(extra)+1)
	for _, k := range toolchain.Flags(defines).Keys() {
		args = append(args, "-D"+k+"="+defines[k])
	}
	args = append(args, extra...)
	args = append(args, source)

	return r.inHarness(b, func() error {
		if err := r.tool(ctx, r.flags, "cmake", args...); err != nil {
			return err
		}
		return r.makeAndInstall(ctx, b, nil, r.flags)
	})
}

func qmake(ctx context.Context, r *runner, b Build) error {
	if b.Project == "" {
		return fmt.Errorf("qmake strategy needs a project file")
	}
	project := filepath.Join(r.ws.Stack.Current(), b.Project)
	extra, err := r.vars.ExpandAll(b.Args)
	if err != nil {
		return err
	}

	return r.inHarness(b, func() error {
		if err := r.tool(ctx, r.flags, r.ws.Env.QMake(), append([]string{project}, extra...)...); err != nil {
			return err
		}
		return r.makeAndInstall(ctx, b, map[string]string{"INSTALL_ROOT": r.ws.Layout.BuildDir()}, r.flags)
	})
}

func makeOnly(ctx context.Context, r *runner, b Build) error {
	args := make([]string, 0)
	if b.Makefile != "" {
		args = append(args, "-f"+b.Makefile)
	}
	args = append(args, r.flags.Assignments()...)
	extra, err := r.vars.ExpandAll(b.MakeArgs)
	if err != nil {
		return err
	}
	args = append(args, extra...)
	if err := r.tool(ctx, nil, "make", args...); err != nil {
		return err
	}
	if !b.Install {
		return nil
	}
	return r.tool(ctx, nil, "make", append([]string{"install"}, extra...)...)
}

// crossPythonEnv is the environment python build scripts cross-compile with.
func (r *runner) crossPythonEnv() map[string]string {
	env := r.ws.Env.ToolMappings().Merge(toolchain.Flags{
		"QMAKESPEC": "android-g++",
		"PATH":      r.ws.Env.QtTools + string(filepath.ListSeparator) + r.ws.Tools.Env()["PATH"],
	})
	return env
}

func pyConfigure(ctx context.Context, r *runner, b Build) error {
	if r.python == nil {
		return fmt.Errorf("pyconfigure strategy needs host_python")
	}
	extra, err := r.vars.ExpandAll(b.Args)
	if err != nil {
		return err
	}

	args := []string{"configure.py"}
	var env map[string]string
	if !b.Host {
		env = r.crossPythonEnv()
		args = append(args,
			"-d"+r.python.SitePackages,
			"-v"+r.python.SipDir,
			"-b"+r.python.Binaries,
		)
	}
	args = append(args, extra...)

	if r.ws.FS.Exists(filepath.Join(r.ws.Stack.Current(), "Makefile")) {
		if err := r.tool(ctx, env, "make", "clean"); err != nil {
			return err
		}
	}
	if err := r.tool(ctx, env, r.python.Interpreter, args...); err != nil {
		return err
	}
	return r.makeAndInstall(ctx, b, nil, env)
}

func pySetup(ctx context.Context, r *runner, b Build) error {
	if r.python == nil {
		return fmt.Errorf("pysetup strategy needs host_python")
	}
	env := map[string]string(r.ws.Env.ToolMappings())
	if !b.Host {
		env = r.crossPythonEnv()
	}
	for _, phase := range []string{"build", "install"} {
		if phase == "install" && b.NoInstall {
			break
		}
		if err := r.tool(ctx, env, r.python.Interpreter, "setup.py", phase); err != nil {
			return err
		}
	}
	return nil
}

func standaloneToolchain(ctx context.Context, r *runner, _ Build) error {
	dir := r.ws.Env.ToolchainDir
	if err := r.ws.FS.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating toolchain dir: %w", err)
	}
	err := r.tool(ctx, nil, "bash",
		r.ws.Env.StandaloneToolchainScript(),
		"--platform=android-"+strconv.Itoa(r.ws.Env.AndroidLevel),
		"--install-dir="+dir,
	)
	if err != nil {
		if rmErr := r.ws.FS.RemoveAll(dir); rmErr != nil {
			r.ws.Logger.Warn(ctx, "could not remove partial toolchain", ports.F("error", rmErr))
		}
		return err
	}
	return nil
}

// describeBuild summarises b for plans.
func describeBuild(b Build) string {
	parts := []string{b.Strategy}
	if b.Project != "" {
		parts = append(parts, b.Project)
	}
	if b.Makefile != "" {
		parts = append(parts, "-f"+b.Makefile)
	}
	if len(b.Args) > 0 {
		parts = append(parts, strings.Join(b.Args, " "))
	}
	return strings.Join(parts, " ")
}
