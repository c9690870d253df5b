// Package testutil provides test helpers and utilities for qgsmg tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/qgsmg/internal/domain/toolchain"
)

// TempCache creates an empty cache root that is removed with the test.
func TempCache(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "cache")
}

// WriteTempFile writes content to a file in dir, creating parent dirs.
func WriteTempFile(t *testing.T, dir, filename, content string) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err, "failed to write temp file: %s", filename)

	return path
}

// WriteTempDir creates a subdirectory in dir.
func WriteTempDir(t *testing.T, dir, dirname string) string {
	t.Helper()

	path := filepath.Join(dir, dirname)
	err := os.MkdirAll(path, 0o755)
	require.NoError(t, err, "failed to create temp subdirectory: %s", dirname)

	return path
}

// NewEnvironment returns a toolchain environment rooted at cacheRoot with a
// fake SDK layout below sdkRoot. Nothing is created on disk.
func NewEnvironment(cacheRoot, sdkRoot string) *toolchain.Environment {
	ndk := filepath.Join(sdkRoot, "android-ndk")
	qt := filepath.Join(sdkRoot, "Android", "Qt", "482", "armeabi")
	return &toolchain.Environment{
		Home:          filepath.Dir(sdkRoot),
		CacheRoot:     cacheRoot,
		SDKRoot:       sdkRoot,
		NDK:           ndk,
		SDK:           filepath.Join(sdkRoot, "android-sdk"),
		QtPath:        qt,
		QtTools:       filepath.Join(qt, "bin"),
		AndroidLevel:  14,
		NDKPlatform:   filepath.Join(ndk, "platforms", "android-14", "arch-arm"),
		ToolchainDir:  filepath.Join(cacheRoot, "toolchain"),
		Host:          "arm-linux-androideabi",
		Prefix:        "arm-linux-androideabi-",
		PatchesDir:    filepath.Join(filepath.Dir(cacheRoot), "patches"),
		ScriptsDir:    filepath.Join(filepath.Dir(cacheRoot), "script"),
		RuntimeDir:    filepath.Join(filepath.Dir(cacheRoot), "runtime"),
		InheritedPath: "/usr/bin:/bin",
	}
}

// SetEnv sets an environment variable for the duration of the test.
func SetEnv(t *testing.T, key, value string) {
	t.Helper()

	original, had := os.LookupEnv(key)
	err := os.Setenv(key, value)
	require.NoError(t, err)

	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, original)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

// ChangeDir changes to a directory for the duration of the test.
func ChangeDir(t *testing.T, dir string) {
	t.Helper()

	original, err := os.Getwd()
	require.NoError(t, err)

	err = os.Chdir(dir)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = os.Chdir(original)
	})
}
