package testutil

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssertFileExists(t *testing.T) {
	t.Parallel()

	path := WriteTempFile(t, t.TempDir(), "test.txt", "content")

	mockT := &testing.T{}
	AssertFileExists(mockT, path)
	assert.False(t, mockT.Failed())
}

func TestAssertFileContains(t *testing.T) {
	t.Parallel()

	path := WriteTempFile(t, t.TempDir(), "test.txt", "hello world")

	mockT := &testing.T{}
	AssertFileContains(mockT, path, "hello")
	AssertFileEquals(mockT, path, "hello world")
	assert.False(t, mockT.Failed())
}

func TestAssertDirExists(t *testing.T) {
	t.Parallel()

	mockT := &testing.T{}
	AssertDirExists(mockT, t.TempDir())
	assert.False(t, mockT.Failed())
}

func TestAssertYAMLEquals(t *testing.T) {
	t.Parallel()

	mockT := &testing.T{}
	AssertYAMLEquals(mockT, "name: test\nversion: 1", "version: 1\nname: test")
	assert.False(t, mockT.Failed())
}

func TestAssertBuilt(t *testing.T) {
	t.Parallel()

	cache := t.TempDir()
	WriteTempFile(t, cache, ".finisqlite", "")

	mockT := &testing.T{}
	AssertBuilt(mockT, cache, "sqlite")
	AssertNotBuilt(mockT, cache, "bzip2")
	AssertFileNotExists(mockT, filepath.Join(cache, ".finigeos"))
	assert.False(t, mockT.Failed())
}

func TestAssertErrorContains(t *testing.T) {
	t.Parallel()

	mockT := &testing.T{}
	AssertErrorContains(mockT, errors.New("make failed while building sqlite"), "make failed")
	assert.False(t, mockT.Failed())
}
