//go:build unix

// Package cachelock guards a cache root against concurrent qgsmg processes
// with an advisory flock.
package cachelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/felixgeelhaar/qgsmg/internal/domain/cache"
)

// LockFile is the name of the lock file inside the cache root.
const LockFile = ".lock"

// Flock takes a non-blocking exclusive flock on <root>/.lock.
type Flock struct{}

// New creates a Flock.
func New() *Flock { return &Flock{} }

// Lock creates root if needed and locks it. A second holder fails fast with
// cache.ErrCacheLocked instead of waiting.
func (Flock) Lock(root string) (func() error, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache root: %w", err)
	}
	path := filepath.Join(root, LockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", cache.ErrCacheLocked, path)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	return func() error {
		if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
			_ = f.Close()
			return fmt.Errorf("unlocking %s: %w", path, err)
		}
		return f.Close()
	}, nil
}

var _ cache.Locker = Flock{}
