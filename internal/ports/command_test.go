package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandResult_Success(t *testing.T) {
	assert.True(t, CommandResult{ExitCode: 0}.Success())
	assert.False(t, CommandResult{ExitCode: 2, Stderr: "boom"}.Success())
}

func TestCommand_String(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{name: "no args", cmd: NewCommand("make"), want: "make"},
		{name: "with args", cmd: NewCommand("make", "-f", "Makefile-libbz2_so"), want: "make -f Makefile-libbz2_so"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.String())
		})
	}
}

func TestCommand_WithEnvMerges(t *testing.T) {
	base := NewCommand("configure").WithEnv(map[string]string{"CC": "gcc", "PATH": "/bin"})
	next := base.WithEnv(map[string]string{"CC": "arm-linux-androideabi-gcc"})

	assert.Equal(t, "gcc", base.Env["CC"], "original command must not be mutated")
	assert.Equal(t, "arm-linux-androideabi-gcc", next.Env["CC"])
	assert.Equal(t, "/bin", next.Env["PATH"])
}

func TestCommand_InDir(t *testing.T) {
	cmd := NewCommand("make").InDir("/tmp/harness")
	assert.Equal(t, "/tmp/harness", cmd.Dir)
}
