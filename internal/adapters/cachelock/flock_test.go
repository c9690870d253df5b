//go:build unix

package cachelock_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/qgsmg/internal/adapters/cachelock"
	"github.com/felixgeelhaar/qgsmg/internal/domain/cache"
)

func TestFlock_Exclusive(t *testing.T) {
	root := filepath.Join(t.TempDir(), "cache")

	release, err := cachelock.New().Lock(root)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, cachelock.LockFile))

	_, err = cachelock.New().Lock(root)
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.ErrCacheLocked)

	require.NoError(t, release())

	again, err := cachelock.New().Lock(root)
	require.NoError(t, err)
	assert.NoError(t, again())
}
