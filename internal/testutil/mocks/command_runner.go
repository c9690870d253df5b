// Package mocks provides test doubles for testing.
package mocks

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

// Hook runs for every matching invocation before its result is returned.
// It can create files the real tool would have produced. A non-nil error is
// returned from Run as a start failure.
type Hook func(cmd ports.Command) error

// CommandRunner is a thread-safe test double for ports.CommandRunner.
// Commands succeed unless a result, failure or error was registered.
type CommandRunner struct {
	mu       sync.RWMutex
	results  map[string]ports.CommandResult
	errors   map[string]error
	failures map[string]ports.CommandResult
	hooks    []Hook
	calls    []ports.CommandCall
}

// NewCommandRunner creates a new CommandRunner mock.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{
		results:  make(map[string]ports.CommandResult),
		errors:   make(map[string]error),
		failures: make(map[string]ports.CommandResult),
		calls:    make([]ports.CommandCall, 0),
	}
}

// AddResult registers the result of an exact command line.
func (m *CommandRunner) AddResult(command string, args []string, result ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[buildKey(command, args)] = result
}

// AddError registers an exact command line that cannot be started.
func (m *CommandRunner) AddError(command string, args []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[buildKey(command, args)] = err
}

// FailTool makes every invocation of tool exit with exitCode.
// tool is compared against the base name of the command.
func (m *CommandRunner) FailTool(tool string, exitCode int, stderr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[tool] = ports.CommandResult{ExitCode: exitCode, Stderr: stderr}
}

// ClearFailures removes every FailTool registration.
func (m *CommandRunner) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[string]ports.CommandResult)
}

// OnRun registers a hook that sees every invocation.
func (m *CommandRunner) OnRun(h Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, h)
}

// Run records and answers a command.
func (m *CommandRunner) Run(_ context.Context, cmd ports.Command) (ports.CommandResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ports.CommandCall{
		Command: cmd.Name,
		Args:    append([]string(nil), cmd.Args...),
		Dir:     cmd.Dir,
		Env:     cmd.Env,
	})
	hooks := append([]Hook(nil), m.hooks...)
	m.mu.Unlock()

	m.mu.RLock()
	key := buildKey(cmd.Name, cmd.Args)
	startErr, hasErr := m.errors[key]
	failure, hasFailure := m.failures[filepath.Base(cmd.Name)]
	result, hasResult := m.results[key]
	m.mu.RUnlock()

	if hasErr {
		return ports.CommandResult{}, startErr
	}
	if hasFailure {
		return failure, nil
	}

	for _, h := range hooks {
		if err := h(cmd); err != nil {
			return ports.CommandResult{}, err
		}
	}

	if hasResult {
		return result, nil
	}
	return ports.CommandResult{}, nil
}

// Calls returns all recorded command invocations.
func (m *CommandRunner) Calls() []ports.CommandCall {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := make([]ports.CommandCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns the number of recorded invocations.
func (m *CommandRunner) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// CallsTo returns the invocations whose command base name is tool.
func (m *CommandRunner) CallsTo(tool string) []ports.CommandCall {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ports.CommandCall, 0)
	for _, c := range m.calls {
		if filepath.Base(c.Command) == tool {
			out = append(out, c)
		}
	}
	return out
}

// CallsIn returns the invocations whose working directory is under dir.
func (m *CommandRunner) CallsIn(dir string) []ports.CommandCall {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ports.CommandCall, 0)
	prefix := filepath.Clean(dir)
	for _, c := range m.calls {
		d := filepath.Clean(c.Dir)
		if d == prefix || strings.HasPrefix(d, prefix+string(filepath.Separator)) {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears all registered results, errors, failures, hooks and calls.
func (m *CommandRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = make(map[string]ports.CommandResult)
	m.errors = make(map[string]error)
	m.failures = make(map[string]ports.CommandResult)
	m.hooks = nil
	m.calls = make([]ports.CommandCall, 0)
}

// buildKey creates a unique key for a command and its arguments.
func buildKey(command string, args []string) string {
	return command + ":" + strings.Join(args, ":")
}

// Ensure CommandRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*CommandRunner)(nil)
