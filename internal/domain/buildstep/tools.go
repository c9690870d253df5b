package buildstep

import (
	"context"
	"path/filepath"

	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

// Tools runs external tools on behalf of one step. Every invocation blocks
// until the tool exits; a non-zero exit becomes a ToolFailureError.
type Tools struct {
	runner ports.CommandRunner
	env    map[string]string
	logger ports.Logger
	step   string
}

// NewTools creates a Tools runner that adds env to every command.
func NewTools(runner ports.CommandRunner, env map[string]string, logger ports.Logger, step string) *Tools {
	return &Tools{runner: runner, env: env, logger: logger, step: step}
}

// Run runs name with args in dir.
func (t *Tools) Run(ctx context.Context, dir, name string, args ...string) error {
	return t.RunEnv(ctx, dir, nil, name, args...)
}

// RunEnv runs name with args in dir, with extra environment variables on top
// of the step environment.
func (t *Tools) RunEnv(ctx context.Context, dir string, extra map[string]string, name string, args ...string) error {
	cmd := ports.NewCommand(name, args...).InDir(dir).WithEnv(t.env).WithEnv(extra)

	t.logger.Debug(ctx, "running tool",
		ports.F("step", t.step),
		ports.F("tool", toolName(name)),
		ports.F("dir", dir),
		ports.F("cmd", cmd.String()),
	)

	result, err := t.runner.Run(ctx, cmd)
	if err != nil {
		return &ToolFailureError{Step: t.step, Tool: toolName(name), Args: args, Dir: dir, ExitCode: -1, Err: err}
	}
	if !result.Success() {
		return &ToolFailureError{
			Step:     t.step,
			Tool:     toolName(name),
			Args:     args,
			Dir:      dir,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}
	return nil
}

// Env returns a copy of the environment every command receives.
func (t *Tools) Env() map[string]string {
	out := make(map[string]string, len(t.env))
	for k, v := range t.env {
		out[k] = v
	}
	return out
}

func toolName(name string) string {
	return filepath.Base(name)
}
