package mocks

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

func TestCommandRunner_DefaultsToSuccess(t *testing.T) {
	m := NewCommandRunner()

	result, err := m.Run(context.Background(), ports.NewCommand("make", "install").InDir("/src/sqlite"))

	require.NoError(t, err)
	assert.True(t, result.Success())
	require.Len(t, m.Calls(), 1)
	assert.Equal(t, "/src/sqlite", m.Calls()[0].Dir)
	assert.Len(t, m.CallsTo("make"), 1)
	assert.Len(t, m.CallsIn("/src"), 1)
	assert.Empty(t, m.CallsIn("/other"))
}

func TestCommandRunner_RegisteredOutcomes(t *testing.T) {
	m := NewCommandRunner()
	m.AddResult("svn", []string{"info"}, ports.CommandResult{Stdout: "r42"})
	m.AddError("wget", []string{"-P", "/d", "u"}, errors.New("not found"))
	m.FailTool("patch", 1, "hunk failed")

	r, err := m.Run(context.Background(), ports.NewCommand("svn", "info"))
	require.NoError(t, err)
	assert.Equal(t, "r42", r.Stdout)

	_, err = m.Run(context.Background(), ports.NewCommand("wget", "-P", "/d", "u"))
	assert.EqualError(t, err, "not found")

	r, err = m.Run(context.Background(), ports.NewCommand("/usr/bin/patch", "-p1"))
	require.NoError(t, err)
	assert.Equal(t, 1, r.ExitCode)
	assert.Equal(t, "hunk failed", r.Stderr)

	m.ClearFailures()
	r, _ = m.Run(context.Background(), ports.NewCommand("patch"))
	assert.True(t, r.Success())
	assert.Equal(t, 4, m.CallCount())
}

func TestCommandRunner_Hooks(t *testing.T) {
	m := NewCommandRunner()
	var seen []string
	m.OnRun(func(cmd ports.Command) error {
		seen = append(seen, cmd.String())
		if cmd.Name == "bad" {
			return errors.New("exec: not found")
		}
		return nil
	})

	_, err := m.Run(context.Background(), ports.NewCommand("make", "-j1"))
	require.NoError(t, err)
	_, err = m.Run(context.Background(), ports.NewCommand("bad"))
	assert.Error(t, err)
	assert.Equal(t, []string{"make -j1", "bad"}, seen)

	m.Reset()
	assert.Zero(t, m.CallCount())
}

func TestFileSystem_TreeOperations(t *testing.T) {
	m := NewFileSystem()
	m.AddFile("/c/build/sqlite/include/sqlite3.h", "h")
	m.AddDir("/c/build/sqlite/lib")

	assert.True(t, m.IsDir("/c/build/sqlite"))
	assert.True(t, m.Exists("/c/build/sqlite/include/sqlite3.h"))

	names, err := m.ReadDir("/c/build/sqlite")
	require.NoError(t, err)
	assert.Equal(t, []string{"include", "lib"}, names)

	require.NoError(t, m.CopyTree("/c/build/sqlite/include", "/c/include/sqlite"))
	data, err := m.ReadFile("/c/include/sqlite/sqlite3.h")
	require.NoError(t, err)
	assert.Equal(t, "h", string(data))

	require.NoError(t, m.RemoveAll("/c/build/sqlite"))
	assert.False(t, m.Exists("/c/build/sqlite"))
	assert.True(t, m.Exists("/c/include/sqlite/sqlite3.h"))
	require.NoError(t, m.RemoveAll("/c/missing"))
}

func TestFileSystem_Errors(t *testing.T) {
	m := NewFileSystem()

	_, err := m.ReadFile("/none")
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.True(t, errors.Is(m.Remove("/none"), os.ErrNotExist))

	boom := errors.New("disk full")
	m.FailWrite("/c/.finisqlite", boom)
	assert.ErrorIs(t, m.WriteFile("/c/.finisqlite", nil, 0o644), boom)

	assert.False(t, m.Exists("/c/.finisqlite"), "failed writes leave nothing behind")
	_, err = m.GetFileInfo("/c")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
