package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempCache(t *testing.T) {
	t.Parallel()

	cache := TempCache(t)
	assert.Equal(t, "cache", filepath.Base(cache))
	_, err := os.Stat(cache)
	assert.True(t, os.IsNotExist(err), "cache root is not created")
}

func TestWriteTempFile_CreatesParents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := WriteTempFile(t, dir, "patches/sqlite/android.patch", "diff")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "diff", string(content))
}

func TestWriteTempDir(t *testing.T) {
	t.Parallel()

	path := WriteTempDir(t, t.TempDir(), "subdir")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewEnvironment(t *testing.T) {
	t.Parallel()

	env := NewEnvironment("/work/cache", "/opt/necessitas")
	assert.Equal(t, "/work/cache/toolchain", env.ToolchainDir)
	assert.Equal(t, "/opt/necessitas/android-ndk", env.NDK)
	assert.Equal(t, "android-14", env.Platform())
	assert.Equal(t, "/work/patches", env.PatchesDir)
}

func TestSetEnv(t *testing.T) {
	key := "QGSMG_TEST_SET_ENV"
	_ = os.Unsetenv(key)

	t.Run("set", func(t *testing.T) {
		SetEnv(t, key, "value")
		assert.Equal(t, "value", os.Getenv(key))
	})

	_, ok := os.LookupEnv(key)
	assert.False(t, ok)
}
