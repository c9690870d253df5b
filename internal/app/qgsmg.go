// Package app wires configuration, the toolchain environment and the recipe
// together and runs the qgsmg commands on top of them.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/qgsmg/internal/adapters/cachelock"
	"github.com/felixgeelhaar/qgsmg/internal/adapters/command"
	"github.com/felixgeelhaar/qgsmg/internal/adapters/filesystem"
	"github.com/felixgeelhaar/qgsmg/internal/adapters/logging"
	"github.com/felixgeelhaar/qgsmg/internal/domain/buildstep"
	"github.com/felixgeelhaar/qgsmg/internal/domain/cache"
	"github.com/felixgeelhaar/qgsmg/internal/domain/config"
	"github.com/felixgeelhaar/qgsmg/internal/domain/recipe"
	"github.com/felixgeelhaar/qgsmg/internal/domain/toolchain"
	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

// ErrNotConfigured is returned by commands run before Configure.
var ErrNotConfigured = errors.New("app is not configured")

// App is the main application orchestrator.
type App struct {
	out    io.Writer
	errOut io.Writer

	runner ports.CommandRunner
	fs     ports.FileSystem
	logger ports.Logger
	locker cache.Locker
	getenv func(string) string
	exists func(string) bool
	now    func() time.Time
	newID  func() string

	cfg        config.Config
	configured bool
	env        *toolchain.Environment
	recipe     *recipe.Recipe
}

// New creates an App that prints reports to out and logs and tool output
// to errOut.
func New(out, errOut io.Writer) *App {
	fs := filesystem.NewRealFileSystem()
	return &App{
		out:    out,
		errOut: errOut,
		runner: command.NewRealRunner(command.WithStream(errOut)),
		fs:     fs,
		locker: cachelock.New(),
		getenv: os.Getenv,
		exists: fs.Exists,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// WithRunner sets the command runner.
func (a *App) WithRunner(r ports.CommandRunner) *App {
	a.runner = r
	return a
}

// WithFileSystem sets the file system.
func (a *App) WithFileSystem(fs ports.FileSystem) *App {
	a.fs = fs
	return a
}

// WithLogger sets the logger. Without one Configure builds a console logger
// from the log settings.
func (a *App) WithLogger(l ports.Logger) *App {
	a.logger = l
	return a
}

// WithLocker sets the cache locker.
func (a *App) WithLocker(l cache.Locker) *App {
	a.locker = l
	return a
}

// WithGetenv sets the environment lookup.
func (a *App) WithGetenv(getenv func(string) string) *App {
	a.getenv = getenv
	return a
}

// WithExists sets the path check used for SDK discovery and verification.
func (a *App) WithExists(exists func(string) bool) *App {
	a.exists = exists
	return a
}

// WithClock sets the clock used for build records.
func (a *App) WithClock(now func() time.Time) *App {
	a.now = now
	return a
}

// WithRunIDs sets the run id generator.
func (a *App) WithRunIDs(newID func() string) *App {
	a.newID = newID
	return a
}

// Configure loads configuration. A missing configPath is only an error when
// required is set, i.e. the user named the file explicitly.
func (a *App) Configure(configPath string, required bool, o config.Overrides) error {
	cfg, err := config.NewLoader().Load(configPath, required)
	if err != nil {
		return err
	}
	cfg = cfg.ApplyEnv(a.getenv).ApplyOverrides(o)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if a.logger == nil {
		level, err := ports.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		a.logger = logging.NewConsoleLogger(
			logging.WithOutput(a.errOut),
			logging.WithLevel(level),
			logging.WithJSONFormat(cfg.JSONLog()),
		)
	}

	a.cfg = cfg
	a.configured = true
	a.env = nil
	a.recipe = nil
	return nil
}

// Config returns the resolved configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the configured logger.
func (a *App) Logger() ports.Logger {
	if a.logger == nil {
		return logging.NewNopLogger()
	}
	return a.logger
}

// Environment discovers the toolchain environment once per configuration.
func (a *App) Environment() (*toolchain.Environment, error) {
	if !a.configured {
		return nil, ErrNotConfigured
	}
	if a.env != nil {
		return a.env, nil
	}
	env, err := toolchain.Discover(a.cfg, a.getenv, a.exists)
	if err != nil {
		return nil, err
	}
	a.env = env
	return env, nil
}

// Recipe loads and compiles the configured recipe, or the embedded one.
func (a *App) Recipe() (*recipe.Recipe, error) {
	if a.recipe != nil {
		return a.recipe, nil
	}
	env, err := a.Environment()
	if err != nil {
		return nil, err
	}

	var (
		m      recipe.Manifest
		source = "embedded recipe"
	)
	if a.cfg.Recipe != "" {
		source = a.cfg.Recipe
		m, err = recipe.ParseFile(a.fs, a.cfg.Recipe)
	} else {
		m, err = recipe.DefaultManifest()
	}
	if err != nil {
		return nil, err
	}

	r, err := recipe.Compile(m, source, buildstep.Deps{
		Runner: a.runner,
		FS:     a.fs,
		Logger: a.Logger(),
		Env:    env,
		Now:    a.now,
	})
	if err != nil {
		return nil, err
	}
	a.recipe = r
	return r, nil
}

// withLock holds the cache lock while fn runs.
func (a *App) withLock(ctx context.Context, fn func() error) error {
	env, err := a.Environment()
	if err != nil {
		return err
	}
	release, err := a.locker.Lock(env.CacheRoot)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			a.Logger().Warn(ctx, "releasing cache lock", ports.F("error", err))
		}
	}()
	return fn()
}

func (a *App) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}
