package toolchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlags_AppendDoesNotMutate(t *testing.T) {
	base := Flags{"LDFLAGS": "-Wl,--fix-cortex-a8"}

	salted := base.Append("LDFLAGS", "-L/c/build/bzip2/lib", " ").Append("CFLAGS", "-I/c/include/bzip2", " ")

	assert.Equal(t, "-Wl,--fix-cortex-a8", base["LDFLAGS"])
	assert.NotContains(t, base, "CFLAGS")
	assert.Equal(t, "-Wl,--fix-cortex-a8 -L/c/build/bzip2/lib", salted["LDFLAGS"])
	assert.Equal(t, "-I/c/include/bzip2", salted["CFLAGS"])
}

func TestFlags_Assignments(t *testing.T) {
	f := Flags{"CC": "gcc", "AR": "ar", "CFLAGS": "-O2 -g"}

	assert.Equal(t, []string{"AR=ar", "CC=gcc", "CFLAGS=-O2 -g"}, f.Assignments())
	assert.Equal(t, "AR=ar CC=gcc CFLAGS=-O2 -g", f.String())
}

func TestFlags_MergeWithOnly(t *testing.T) {
	f := Flags{"CC": "gcc", "LIBS": "-lm"}

	merged := f.Merge(Flags{"LIBS": "-lm -lz"}).With("EXTRA", "1")
	assert.Equal(t, "-lm -lz", merged["LIBS"])
	assert.Equal(t, "-lm", f["LIBS"])
	assert.Equal(t, Flags{"CC": "gcc"}, merged.Only("CC", "MISSING"))
}
