package buildstep

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceStack_PushPop(t *testing.T) {
	t.Parallel()
	s := NewSourceStack("/cache/source/qgis")

	assert.Equal(t, "/cache/source/qgis", s.Current())
	assert.Equal(t, "/cache/source/qgis/build-android", s.Push("build-android"))
	assert.Equal(t, "/opt/abs", s.Push("/opt/abs"))
	assert.Equal(t, 2, s.Depth())

	require.NoError(t, s.Pop())
	require.NoError(t, s.Pop())
	assert.Equal(t, "/cache/source/qgis", s.Current())
	assert.ErrorIs(t, s.Pop(), ErrSourceStackUnderflow)
	assert.NoError(t, s.CheckBalanced())
}

func TestSourceStack_WithinRestores(t *testing.T) {
	t.Parallel()
	s := NewSourceStack("/src")
	boom := errors.New("boom")

	err := s.Within("geos-3.4.2", func(dir string) error {
		assert.Equal(t, filepath.Join("/src", "geos-3.4.2"), dir)
		s.Push("nested")
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, s.Depth())
	assert.Equal(t, "/src", s.Current())
}

func TestSourceStack_Unbalanced(t *testing.T) {
	t.Parallel()
	s := NewSourceStack("/src")
	s.Push("a")

	err := s.CheckBalanced()

	assert.ErrorIs(t, err, ErrUnbalancedSourceStack)
	assert.Contains(t, err.Error(), "/src/a")
}

func TestLayout_IsDeterministic(t *testing.T) {
	t.Parallel()
	a := NewLayout("/c", "/p", "sqlite")
	b := NewLayout("/c", "/p", "sqlite")

	assert.Equal(t, a, b)
	assert.Equal(t, []string{"/c/build/sqlite", "/c/source/sqlite", "/c/include/sqlite"}, a.Paths())
	assert.Equal(t, "/c/.finisqlite", a.Marker())
	assert.Equal(t, "/c/build/sqlite/lib/pkgconfig", a.PkgConfigDir())
	assert.Equal(t, "/c/build/sqlite/.buildinfo.toml", a.BuildInfo())
	assert.Equal(t, "/p/sqlite", a.PatchDir())
}

func TestLifecycle_Transitions(t *testing.T) {
	t.Parallel()
	lc, err := NewLifecycle("sqlite")
	require.NoError(t, err)

	assert.Equal(t, StateUnbuilt, lc.State())
	lc.Purge()
	assert.Equal(t, StateUnbuilt, lc.State(), "purging an unbuilt step changes nothing")

	lc.Start()
	assert.Equal(t, StateBuilding, lc.State())
	lc.Fail()
	assert.Equal(t, StateUnbuilt, lc.State())

	lc.Start()
	lc.Succeed()
	assert.Equal(t, StateBuilt, lc.State())
	assert.Equal(t, 2, lc.Attempts())
	assert.Equal(t, 1, lc.Failures())

	lc.Purge()
	assert.Equal(t, StateUnbuilt, lc.State())
	lc.MarkerFound()
	assert.Equal(t, StateBuilt, lc.State())
}
