package buildstep_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/qgsmg/internal/adapters/filesystem"
	"github.com/felixgeelhaar/qgsmg/internal/adapters/logging"
	"github.com/felixgeelhaar/qgsmg/internal/domain/buildstep"
	"github.com/felixgeelhaar/qgsmg/internal/domain/toolchain"
	"github.com/felixgeelhaar/qgsmg/internal/testutil"
	"github.com/felixgeelhaar/qgsmg/internal/testutil/mocks"
)

// scriptedProcedure counts invocations and runs an optional body.
type scriptedProcedure struct {
	runs    int
	outputs []string
	body    func(ctx context.Context, ws *buildstep.Workspace) error
}

func (p *scriptedProcedure) Run(ctx context.Context, ws *buildstep.Workspace) error {
	p.runs++
	if p.body != nil {
		return p.body(ctx, ws)
	}
	return nil
}

func (p *scriptedProcedure) Strategy() string  { return "autotools" }
func (p *scriptedProcedure) Actions() []string { return []string{"fetch", "unpack"} }
func (p *scriptedProcedure) Sources() []string { return []string{"http://example.org/src.tar.gz"} }

func (p *scriptedProcedure) Outputs(*toolchain.Environment) []string { return p.outputs }

type fixture struct {
	cache  string
	runner *mocks.CommandRunner
	deps   buildstep.Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	cache := filepath.Join(root, "cache")
	runner := mocks.NewCommandRunner()
	return &fixture{
		cache:  cache,
		runner: runner,
		deps: buildstep.Deps{
			Runner: runner,
			FS:     filesystem.NewRealFileSystem(),
			Logger: logging.NewNopLogger(),
			Env:    testutil.NewEnvironment(cache, filepath.Join(root, "necessitas")),
			Now:    func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		},
	}
}

func (f *fixture) step(t *testing.T, def buildstep.Definition) *buildstep.Step {
	t.Helper()
	s, err := buildstep.New(def, f.deps)
	require.NoError(t, err)
	return s
}
