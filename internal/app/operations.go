package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/qgsmg/internal/adapters/prebuilt"
	"github.com/felixgeelhaar/qgsmg/internal/domain/buildstep"
	"github.com/felixgeelhaar/qgsmg/internal/domain/cache"
	"github.com/felixgeelhaar/qgsmg/internal/domain/compiler"
	"github.com/felixgeelhaar/qgsmg/internal/domain/execution"
	"github.com/felixgeelhaar/qgsmg/internal/domain/project"
	"github.com/felixgeelhaar/qgsmg/internal/domain/recipe"
	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

// BuildOptions control build and rebuild.
type BuildOptions struct {
	Minimal bool
	DryRun  bool
}

// target returns name, or the recipe default when name is empty.
func (a *App) target(r *recipe.Recipe, name string) string {
	if name == "" {
		return r.Default()
	}
	return name
}

// Build brings target and its chain prefix up to date.
func (a *App) Build(ctx context.Context, target string, opts BuildOptions) ([]execution.StepResult, error) {
	return a.run(ctx, target, opts, false)
}

// Rebuild cleans target, then builds it.
func (a *App) Rebuild(ctx context.Context, target string, opts BuildOptions) ([]execution.StepResult, error) {
	return a.run(ctx, target, opts, true)
}

func (a *App) run(ctx context.Context, target string, opts BuildOptions, rebuild bool) ([]execution.StepResult, error) {
	r, err := a.Recipe()
	if err != nil {
		return nil, err
	}
	target = a.target(r, target)
	if _, err := r.Step(target); err != nil {
		return nil, err
	}

	if !opts.DryRun {
		env, err := a.Environment()
		if err != nil {
			return nil, err
		}
		if err := env.Verify(a.exists); err != nil {
			return nil, err
		}
	}

	runID := a.newID()
	reporter := NewReporter(a.out, opts.DryRun)
	bo := recipe.BuildOptions{
		Minimal:  opts.Minimal,
		DryRun:   opts.DryRun,
		RunID:    runID,
		Observer: reporter,
	}
	a.Logger().Debug(ctx, "starting run", ports.F("run", runID), ports.F("target", target))

	var results []execution.StepResult
	exec := func() error {
		var err error
		if rebuild {
			results, err = r.Rebuild(ctx, target, bo)
		} else {
			results, err = r.Build(ctx, target, bo)
		}
		return err
	}
	if opts.DryRun {
		err = exec()
	} else {
		err = a.withLock(ctx, exec)
	}

	reporter.Summary(results)
	return results, err
}

// Clean purges target's outputs and marker. Dependents are left alone.
func (a *App) Clean(ctx context.Context, target string) error {
	r, err := a.Recipe()
	if err != nil {
		return err
	}
	target = a.target(r, target)
	return a.withLock(ctx, func() error {
		if err := r.Clean(ctx, target); err != nil {
			return err
		}
		a.printf("Cleaned %s\n", target)
		return nil
	})
}

// Resolve prints the chain prefix that building target walks.
func (a *App) Resolve(target string, explain bool) ([]string, error) {
	r, err := a.Recipe()
	if err != nil {
		return nil, err
	}
	steps, err := r.Resolve(a.target(r, target))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.ID().String())
		a.printf("%s\n", s.ID())
		if explain {
			a.printExplanation(s.Explain(compiler.NewExplainContext()))
		}
	}
	return names, nil
}

func (a *App) printExplanation(e compiler.Explanation) {
	a.printf("    %s\n", e.Summary())
	for _, line := range strings.Split(e.Detail(), "\n") {
		a.printf("    %s\n", line)
	}
	for _, src := range e.Sources() {
		a.printf("    source: %s\n", src)
	}
	for _, act := range e.Actions() {
		a.printf("    action: %s\n", act)
	}
	if e.Provenance() != "" {
		a.printf("    from: %s\n", e.Provenance())
	}
}

// PrintPlan shows what a build of target would do.
func (a *App) PrintPlan(ctx context.Context, target string, minimal bool) (*execution.Plan, error) {
	r, err := a.Recipe()
	if err != nil {
		return nil, err
	}
	target = a.target(r, target)
	plan, err := r.Plan(ctx, target, minimal)
	if err != nil {
		return nil, err
	}

	summary := plan.Summary()
	a.printf("\nPlan for %s\n", target)
	a.printf("%s\n\n", strings.Repeat("=", len("Plan for ")+len(target)))
	if !plan.HasChanges() {
		a.printf("Nothing to build. %s is up to date.\n", target)
		return plan, nil
	}
	a.printf("Steps: %d total, %d to build, %d already done\n\n",
		summary.Total, summary.NeedsApply, summary.Satisfied)
	for _, line := range plan.Lines() {
		a.printf("%s\n", line)
	}
	return plan, nil
}

// Targets prints every step in chain order with its human name.
func (a *App) Targets() ([]string, error) {
	r, err := a.Recipe()
	if err != nil {
		return nil, err
	}
	for _, s := range r.Steps() {
		marker := " "
		if s.ID().String() == r.Default() {
			marker = "*"
		}
		a.printf("%s %-14s %s\n", marker, s.ID(), s.HumanName())
	}
	return r.Targets(), nil
}

// Status prints the build state of every step.
func (a *App) Status() ([]recipe.StepStatus, error) {
	r, err := a.Recipe()
	if err != nil {
		return nil, err
	}
	statuses, err := r.Status(a.fs)
	if err != nil {
		return nil, err
	}
	a.printf("%s\n", renderStatus(statuses))
	return statuses, nil
}

func (a *App) maintainer() (*cache.Maintainer, error) {
	env, err := a.Environment()
	if err != nil {
		return nil, err
	}
	return cache.NewMaintainer(env.CacheRoot, env.ScriptsDir, a.fs, a.runner, a.Logger()), nil
}

// PurgeCache removes downloaded sources and keeps build outputs.
func (a *App) PurgeCache(ctx context.Context) error {
	m, err := a.maintainer()
	if err != nil {
		return err
	}
	return a.withLock(ctx, func() error { return m.PurgeCache(ctx) })
}

// DistClean wipes the cache.
func (a *App) DistClean(ctx context.Context) error {
	m, err := a.maintainer()
	if err != nil {
		return err
	}
	return a.withLock(ctx, func() error { return m.DistClean(ctx) })
}

// Fetch seeds an empty cache root from a prebuilt tarball. url falls back
// to the configured prebuilt_url.
func (a *App) Fetch(ctx context.Context, url string) error {
	if url == "" {
		url = a.cfg.PrebuiltURL
	}
	if url == "" {
		return fmt.Errorf("no url given and prebuilt_url is not configured")
	}
	env, err := a.Environment()
	if err != nil {
		return err
	}
	f := prebuilt.New(prebuilt.WithRegion(a.cfg.S3Region), prebuilt.WithLogger(a.Logger()))
	if err := f.Fetch(ctx, url, env.CacheRoot); err != nil {
		return err
	}
	a.printf("Cache ready at %s\n", env.CacheRoot)
	return nil
}

// Create scaffolds a new application project.
func (a *App) Create(ctx context.Context, path string) error {
	if err := project.NewCreator(a.fs, a.Logger()).Create(ctx, path); err != nil {
		return err
	}
	a.printf("Created %s\n", path)
	return nil
}

// Pack zips an application project.
func (a *App) Pack(ctx context.Context, path string) (project.PackResult, error) {
	res, err := project.NewCreator(a.fs, a.Logger()).WithClock(a.now).Pack(ctx, path)
	if err != nil {
		return res, err
	}
	a.printf("Packed %d files into %s\n", len(res.Entries), res.Archive)
	return res, nil
}

// Check is one doctor finding.
type Check struct {
	Name string
	Path string
	OK   bool
}

// Doctor reports on configuration and build prerequisites without building.
func (a *App) Doctor() ([]Check, error) {
	env, err := a.Environment()
	if err != nil {
		return nil, err
	}

	var checks []Check
	for _, p := range env.Prerequisites() {
		checks = append(checks, Check{Name: p.Name, Path: p.Path, OK: p.Path != "" && a.exists(p.Path)})
	}
	checks = append(checks,
		Check{Name: "patches", Path: env.PatchesDir, OK: a.fs.IsDir(env.PatchesDir)},
		Check{Name: "distclean script", Path: filepath.Join(env.ScriptsDir, cache.DistCleanScript),
			OK: a.fs.Exists(filepath.Join(env.ScriptsDir, cache.DistCleanScript))},
	)

	source := a.cfg.Provenance()
	if source == "" {
		source = "defaults"
	}
	a.printf("config:  %s\n", source)
	a.printf("cache:   %s\n", env.CacheRoot)
	a.printf("target:  %s (%s)\n", env.Host, env.Platform())
	for _, c := range checks {
		a.printf("%s\n", renderCheck(c))
	}

	if _, err := a.Recipe(); err != nil {
		return checks, err
	}
	return checks, nil
}

// FailedTool names the external tool behind err, if any.
func FailedTool(err error) string {
	tool, _ := buildstep.FailedTool(err)
	return tool
}
