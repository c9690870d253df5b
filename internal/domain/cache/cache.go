// Package cache maintains the cache root as a whole: dropping sources to
// reclaim space and wiping everything for a fresh start.
package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/felixgeelhaar/qgsmg/internal/domain/buildstep"
	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

// DistCleanScript is the cleanup script looked up in the scripts dir.
const DistCleanScript = "distclean.sh"

// ErrCacheLocked is returned when another invocation holds the cache lock.
var ErrCacheLocked = errors.New("cache is locked by another qgsmg process")

// Locker takes the exclusive cache lock. Release must be called once the
// command finishes.
type Locker interface {
	Lock(root string) (release func() error, err error)
}

// Maintainer runs whole-cache operations.
type Maintainer struct {
	root    string
	scripts string
	fs      ports.FileSystem
	runner  ports.CommandRunner
	logger  ports.Logger
}

// NewMaintainer creates a Maintainer for the cache at root. scripts is the
// directory searched for DistCleanScript.
func NewMaintainer(root, scripts string, fs ports.FileSystem, runner ports.CommandRunner, logger ports.Logger) *Maintainer {
	return &Maintainer{root: root, scripts: scripts, fs: fs, runner: runner, logger: logger}
}

// Root returns the cache root.
func (m *Maintainer) Root() string { return m.root }

// SourceRoot returns the directory PurgeCache removes.
func (m *Maintainer) SourceRoot() string {
	return buildstep.NewLayout(m.root, "", "").SourceRoot()
}

// PurgeCache removes every library's sources and keeps build outputs,
// headers and completion markers. A cache without sources is left alone.
func (m *Maintainer) PurgeCache(ctx context.Context) error {
	src := m.SourceRoot()
	if !m.fs.Exists(src) {
		m.logger.Debug(ctx, "no sources to purge", ports.F("path", src))
		return nil
	}
	if err := m.fs.RemoveAll(src); err != nil {
		return fmt.Errorf("purging %s: %w", src, err)
	}
	m.logger.Info(ctx, "purged sources", ports.F("path", src))
	return nil
}

// DistClean wipes the cache. When the scripts dir holds a distclean script
// it runs as a child process with CACHE_PATH set; otherwise the cache root
// is removed directly.
func (m *Maintainer) DistClean(ctx context.Context) error {
	script := filepath.Join(m.scripts, DistCleanScript)
	if m.scripts != "" && m.fs.Exists(script) {
		tools := buildstep.NewTools(m.runner, map[string]string{"CACHE_PATH": m.root}, m.logger, "distclean")
		if err := tools.Run(ctx, m.scripts, "bash", script); err != nil {
			return err
		}
		m.logger.Info(ctx, "distclean script finished", ports.F("script", script))
		return nil
	}

	if err := m.fs.RemoveAll(m.root); err != nil {
		return fmt.Errorf("removing %s: %w", m.root, err)
	}
	m.logger.Info(ctx, "removed cache", ports.F("path", m.root))
	return nil
}
