// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
	"strings"
)

// Command describes a single external process invocation.
// Dir is the working directory; Env holds overrides on top of the
// inherited environment (KEY=VALUE form is not required, the map is merged).
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  map[string]string
}

// NewCommand creates a Command for name with args.
func NewCommand(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// InDir returns a copy of the command with the working directory set.
func (c Command) InDir(dir string) Command {
	c.Dir = dir
	return c
}

// WithEnv returns a copy of the command with env merged over any existing overrides.
func (c Command) WithEnv(env map[string]string) Command {
	merged := make(map[string]string, len(c.Env)+len(env))
	for k, v := range c.Env {
		merged[k] = v
	}
	for k, v := range env {
		merged[k] = v
	}
	c.Env = merged
	return c
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// CommandResult represents the result of executing an external command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// CommandCall records a command invocation.
type CommandCall struct {
	Command string
	Args    []string
	Dir     string
	Env     map[string]string
}

// CommandRunner executes external commands. Run blocks until the process
// exits. A non-zero exit is reported through CommandResult, not the error;
// the error is reserved for processes that could not be started or were
// cancelled.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (CommandResult, error)
}
