package buildinfo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/qgsmg/internal/adapters/filesystem"
)

func TestWriteRead(t *testing.T) {
	fsys := filesystem.NewRealFileSystem()
	path := filepath.Join(t.TempDir(), ".buildinfo.toml")
	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := Record{
		RunID:    "0b6f4c1e-8d0a-4a39-9d7e-6a3c1f2b5e10",
		Library:  "spatialite",
		Version:  "2.4.0",
		Finished: finished,
		Salts:    []string{"sqlite", "geos"},
		Flags:    map[string]string{"LDFLAGS": "-L/c/build/sqlite/lib -lm"},
	}
	require.NoError(t, Write(fsys, path, rec))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, `library = ['"]spatialite['"]`, string(data))

	got, ok, err := Read(fsys, path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.Library, got.Library)
	assert.Equal(t, rec.Salts, got.Salts)
	assert.Equal(t, rec.Flags, got.Flags)
	assert.True(t, finished.Equal(got.Finished))
}

func TestRead_Missing(t *testing.T) {
	_, ok, err := Read(filesystem.NewRealFileSystem(), filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRead_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("library = ["), 0o644))

	_, _, err := Read(filesystem.NewRealFileSystem(), path)
	assert.Error(t, err)
}

func TestCanonical(t *testing.T) {
	tests := map[string]string{
		"3.7.4":   "v3.7.4",
		"v2.7.2":  "v2.7.2",
		"1.8":     "v1.8.0",
		" 1.0.0 ": "v1.0.0",
		"1.0.0e":  "",
		"":        "",
		"latest":  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Canonical(in), "Canonical(%q)", in)
		assert.Equal(t, want != "", ValidVersion(in), "ValidVersion(%q)", in)
	}
}

func TestAssess(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := Record{Library: "spatialite", Version: "2.4.0", Finished: t0, Salts: []string{"sqlite", "geos"}}

	t.Run("fresh", func(t *testing.T) {
		a := Assess(rec, "v2.4.0", map[string]Record{
			"sqlite": {Finished: t0.Add(-time.Hour)},
			"geos":   {Finished: t0.Add(-time.Minute)},
		})
		assert.False(t, a.Stale)
		assert.Empty(t, a.Reasons)
	})

	t.Run("salt rebuilt later", func(t *testing.T) {
		a := Assess(rec, "2.4.0", map[string]Record{
			"sqlite": {Finished: t0.Add(time.Hour)},
			"geos":   {Finished: t0.Add(-time.Minute)},
		})
		assert.True(t, a.Stale)
		assert.Equal(t, []string{"salt source sqlite was rebuilt after it"}, a.Reasons)
	})

	t.Run("salt missing record", func(t *testing.T) {
		a := Assess(rec, "2.4.0", map[string]Record{"sqlite": {Finished: t0}})
		assert.True(t, a.Stale)
		assert.Contains(t, a.Reasons[0], "geos has no build record")
	})

	t.Run("version changed", func(t *testing.T) {
		a := Assess(rec, "2.4.1", map[string]Record{"sqlite": {Finished: t0}, "geos": {Finished: t0}})
		assert.True(t, a.Stale)
		assert.Equal(t, []string{"built v2.4.0, recipe wants v2.4.1"}, a.Reasons)
	})
}
