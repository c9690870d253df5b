package buildstep_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/qgsmg/internal/adapters/filesystem"
	"github.com/felixgeelhaar/qgsmg/internal/domain/buildinfo"
	"github.com/felixgeelhaar/qgsmg/internal/domain/buildstep"
	"github.com/felixgeelhaar/qgsmg/internal/domain/compiler"
	"github.com/felixgeelhaar/qgsmg/internal/domain/toolchain"
	"github.com/felixgeelhaar/qgsmg/internal/testutil"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	s := f.step(t, buildstep.Definition{Name: "bzip2"})

	assert.Equal(t, "bzip2", s.ID().String())
	assert.Equal(t, "bzip2", s.HumanName())
	assert.Equal(t, "bzip2", s.Paths().Library())
	assert.Equal(t, buildstep.SaltBase, s.Definition().SaltKind)
	assert.Equal(t, buildstep.StateUnbuilt, s.Lifecycle().State())
}

func TestNew_RejectsBadNames(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := buildstep.New(buildstep.Definition{Name: "Bad Name"}, f.deps)
	assert.Error(t, err)

	_, err = buildstep.New(buildstep.Definition{Name: "ok", DependsOn: []string{""}}, f.deps)
	assert.Error(t, err)
}

func TestEnsureBuilt_IsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	proc := &scriptedProcedure{}
	s := f.step(t, buildstep.Definition{Name: "bzip2", Version: "1.0.6", Procedure: proc})

	require.NoError(t, s.EnsureBuilt(context.Background()))
	require.NoError(t, s.EnsureBuilt(context.Background()))

	assert.Equal(t, 1, proc.runs)
	testutil.AssertBuilt(t, f.cache, "bzip2")
	assert.Equal(t, buildstep.StateBuilt, s.Lifecycle().State())
	assert.Equal(t, 1, s.Lifecycle().Attempts())
}

func TestEnsureBuilt_MarkerFromEarlierRun(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	testutil.WriteTempFile(t, f.cache, ".finisqlite", "")
	proc := &scriptedProcedure{}
	s := f.step(t, buildstep.Definition{Name: "sqlite", Procedure: proc})

	require.NoError(t, s.EnsureBuilt(context.Background()))

	assert.Zero(t, proc.runs)
	assert.Equal(t, buildstep.StateBuilt, s.Lifecycle().State())
	assert.Zero(t, s.Lifecycle().Attempts())
}

func TestEnsureBuilt_CreatesDirectories(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	var seen buildstep.Layout
	proc := &scriptedProcedure{body: func(_ context.Context, ws *buildstep.Workspace) error {
		seen = ws.Layout
		assert.Equal(t, ws.Layout.SourceDir(), ws.Stack.Current())
		for _, dir := range ws.Layout.Paths() {
			testutil.AssertDirExists(t, dir)
		}
		return nil
	}}
	s := f.step(t, buildstep.Definition{Name: "geos", Procedure: proc})

	require.NoError(t, s.EnsureBuilt(context.Background()))

	assert.Equal(t, s.Paths(), seen)
	assert.Equal(t, filepath.Join(f.cache, "build", "geos"), seen.BuildDir())
	assert.Equal(t, filepath.Join(f.cache, "source", "geos"), seen.SourceDir())
	assert.Equal(t, filepath.Join(f.cache, "include", "geos"), seen.IncludeDir())
}

func TestEnsureBuilt_FailureLeavesNoMarker(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.runner.FailTool("make", 2, "error: undefined reference\n")
	proc := &scriptedProcedure{body: func(ctx context.Context, ws *buildstep.Workspace) error {
		if err := ws.FS.WriteFile(filepath.Join(ws.Layout.SourceDir(), "partial.o"), []byte("x"), 0o644); err != nil {
			return err
		}
		return ws.Tools.Run(ctx, ws.Stack.Current(), "make")
	}}
	s := f.step(t, buildstep.Definition{Name: "sqlite", Procedure: proc})

	err := s.EnsureBuilt(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, buildstep.ErrToolFailure))
	tool, ok := buildstep.FailedTool(err)
	assert.True(t, ok)
	assert.Equal(t, "make", tool)
	assert.Contains(t, err.Error(), "make failed while building sqlite with exit status 2: error: undefined reference")
	testutil.AssertNotBuilt(t, f.cache, "sqlite")
	assert.Equal(t, buildstep.StateUnbuilt, s.Lifecycle().State())
	assert.Equal(t, 1, s.Lifecycle().Failures())

	// Resumability: the next attempt starts from clean directories.
	f.runner.ClearFailures()
	proc.body = func(_ context.Context, ws *buildstep.Workspace) error {
		testutil.AssertFileNotExists(t, filepath.Join(ws.Layout.SourceDir(), "partial.o"))
		return nil
	}
	require.NoError(t, s.EnsureBuilt(context.Background()))
	testutil.AssertBuilt(t, f.cache, "sqlite")
	assert.Equal(t, 2, proc.runs)
	assert.Equal(t, 2, s.Lifecycle().Attempts())
}

func TestEnsureBuilt_UnbalancedSourceStack(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	proc := &scriptedProcedure{body: func(_ context.Context, ws *buildstep.Workspace) error {
		ws.Stack.Push("src")
		return nil
	}}
	s := f.step(t, buildstep.Definition{Name: "proj4", Procedure: proc})

	err := s.EnsureBuilt(context.Background())

	assert.ErrorIs(t, err, buildstep.ErrUnbalancedSourceStack)
	testutil.AssertNotBuilt(t, f.cache, "proj4")
}

func TestEnsureBuilt_DryRunDoesNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	proc := &scriptedProcedure{}
	s := f.step(t, buildstep.Definition{Name: "gsl", Procedure: proc})

	rc := compiler.NewRunContext(context.Background()).WithDryRun(true)
	require.NoError(t, s.Apply(rc))

	assert.Zero(t, proc.runs)
	testutil.AssertFileNotExists(t, f.cache)
}

func TestEnsureBuilt_WritesBuildRecord(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sqlite := f.step(t, buildstep.Definition{Name: "sqlite", Version: "3.7.17"})
	spatialite := f.step(t, buildstep.Definition{
		Name:      "spatialite",
		Version:   "4.1.1",
		SaltFrom:  []string{"sqlite"},
		Procedure: &scriptedProcedure{},
	})
	spatialite.BindSalts([]*buildstep.Step{sqlite})

	rc := compiler.NewRunContext(context.Background()).WithRunID("run-1")
	require.NoError(t, spatialite.Apply(rc))

	rec, ok, err := buildinfo.Read(filesystem.NewRealFileSystem(), spatialite.Paths().BuildInfo())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "spatialite", rec.Library)
	assert.Equal(t, "4.1.1", rec.Version)
	assert.Equal(t, []string{"sqlite"}, rec.Salts)
	assert.Contains(t, rec.Flags["LDFLAGS"], "-L"+sqlite.Paths().BuildLib())
	assert.Equal(t, 2026, rec.Finished.Year())
}

func TestPurge_InvalidatesStep(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	proc := &scriptedProcedure{}
	s := f.step(t, buildstep.Definition{Name: "bzip2", Procedure: proc})
	rc := compiler.NewRunContext(context.Background())

	require.NoError(t, s.EnsureBuilt(context.Background()))
	require.NoError(t, s.Purge(rc))

	testutil.AssertNotBuilt(t, f.cache, "bzip2")
	for _, dir := range s.Paths().Paths() {
		testutil.AssertFileNotExists(t, dir)
	}
	assert.Equal(t, buildstep.StateUnbuilt, s.Lifecycle().State())

	require.NoError(t, s.EnsureBuilt(context.Background()))
	assert.Equal(t, 2, proc.runs)
}

func TestPurge_RemovesProcedureOutputs(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	installed := filepath.Join(f.deps.Env.ToolchainDir, "bin", "gcc")
	proc := &scriptedProcedure{outputs: []string{f.deps.Env.ToolchainDir}}
	proc.body = func(context.Context, *buildstep.Workspace) error {
		if _, err := os.Stat(installed); err == nil {
			return errors.New("earlier install still present")
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(installed), 0o755))
		return os.WriteFile(installed, []byte("elf"), 0o755)
	}
	s := f.step(t, buildstep.Definition{Name: "toolchain", Procedure: proc})

	assert.Contains(t, s.OutputPaths(), f.deps.Env.ToolchainDir)
	require.NoError(t, s.EnsureBuilt(context.Background()))
	testutil.AssertFileExists(t, installed)

	require.NoError(t, s.Purge(compiler.NewRunContext(context.Background())))
	testutil.AssertFileNotExists(t, f.deps.Env.ToolchainDir)

	// A half-written install without a marker is cleared before the rebuild.
	testutil.WriteTempFile(t, filepath.Dir(installed), "gcc", "partial")
	require.NoError(t, s.EnsureBuilt(context.Background()))
	assert.Equal(t, 2, proc.runs)
	testutil.AssertFileEquals(t, installed, "elf")
}

func TestPurge_AbsentStepIsNoop(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := f.step(t, buildstep.Definition{Name: "expat"})

	assert.NoError(t, s.Purge(compiler.NewRunContext(context.Background())))
}

func TestPurge_LeavesOtherStepsAlone(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	a := f.step(t, buildstep.Definition{Name: "bzip2"})
	b := f.step(t, buildstep.Definition{Name: "sqlite"})
	require.NoError(t, a.EnsureBuilt(context.Background()))
	require.NoError(t, b.EnsureBuilt(context.Background()))

	require.NoError(t, b.Purge(compiler.NewRunContext(context.Background())))

	testutil.AssertBuilt(t, f.cache, "bzip2")
	testutil.AssertDirExists(t, a.Paths().BuildDir())
	testutil.AssertNotBuilt(t, f.cache, "sqlite")
}

func TestCheckAndPlan(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s := f.step(t, buildstep.Definition{Name: "geos", Version: "3.4.2"})
	rc := compiler.NewRunContext(context.Background())

	status, err := s.Check(rc)
	require.NoError(t, err)
	assert.Equal(t, compiler.StatusNeedsApply, status)
	diff, err := s.Plan(rc)
	require.NoError(t, err)
	assert.Equal(t, compiler.DiffTypeAdd, diff.Type())

	require.NoError(t, os.MkdirAll(s.Paths().SourceDir(), 0o755))
	diff, err = s.Plan(rc)
	require.NoError(t, err)
	assert.Equal(t, compiler.DiffTypeModify, diff.Type())

	require.NoError(t, s.EnsureBuilt(context.Background()))
	status, err = s.Check(rc)
	require.NoError(t, err)
	assert.Equal(t, compiler.StatusSatisfied, status)
	diff, err = s.Plan(rc)
	require.NoError(t, err)
	assert.Equal(t, compiler.DiffTypeNone, diff.Type())
}

func TestExplain(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	sqlite := f.step(t, buildstep.Definition{Name: "sqlite"})
	s := f.step(t, buildstep.Definition{
		Name:       "spatialite",
		HumanName:  "Spatialite",
		Version:    "4.1.1",
		Procedure:  &scriptedProcedure{},
		Provenance: "recipe.yaml",
	})
	s.BindSalts([]*buildstep.Step{sqlite})

	exp := s.Explain(compiler.NewExplainContext().WithVerbose(true))

	assert.Equal(t, "Build Spatialite 4.1.1", exp.Summary())
	assert.Contains(t, exp.Detail(), "strategy autotools, salted by sqlite")
	assert.Contains(t, exp.Detail(), "LDFLAGS=")
	assert.Equal(t, []string{"fetch", "unpack"}, exp.Actions())
	assert.Equal(t, "recipe.yaml", exp.Provenance())
}

func TestToolsRun_PassesEnvironment(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	proc := &scriptedProcedure{body: func(ctx context.Context, ws *buildstep.Workspace) error {
		return ws.Tools.RunEnv(ctx, ws.Stack.Current(), toolchain.Flags{"CC": "gcc"}, "./configure", "--host=x")
	}}
	s := f.step(t, buildstep.Definition{Name: "freexl", Procedure: proc})

	require.NoError(t, s.EnsureBuilt(context.Background()))

	calls := f.runner.CallsTo("configure")
	require.Len(t, calls, 1)
	assert.Equal(t, s.Paths().SourceDir(), calls[0].Dir)
	assert.Equal(t, "gcc", calls[0].Env["CC"])
	assert.Contains(t, calls[0].Env["PATH"], filepath.Join(f.cache, "toolchain", "bin"))
}
