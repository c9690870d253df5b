package buildstep

import (
	"fmt"
	"os"

	"github.com/felixgeelhaar/qgsmg/internal/domain/toolchain"
)

// SaltKind selects which variables a step contributes to its consumers.
type SaltKind string

const (
	// SaltBase adds -L, -I and LD_LIBRARY_PATH entries.
	SaltBase SaltKind = "base"
	// SaltPkgConfig also adds the step's pkgconfig dir to PKG_CONFIG_PATH.
	SaltPkgConfig SaltKind = "pkgconfig"
)

// ParseSaltKind converts a recipe value to a SaltKind; "" means base.
func ParseSaltKind(s string) (SaltKind, error) {
	switch SaltKind(s) {
	case "", SaltBase:
		return SaltBase, nil
	case SaltPkgConfig:
		return SaltPkgConfig, nil
	}
	return "", fmt.Errorf("unknown salt kind %q", s)
}

var pathSep = string(os.PathListSeparator)

// Salt returns a copy of base that lets a consumer compile and link
// against this step's outputs.
func (s *Step) Salt(base toolchain.Flags) toolchain.Flags {
	l := s.layout
	flags := base.
		Append("LDFLAGS", "-L"+l.BuildLib(), " ").
		Append("CFLAGS", "-I"+l.IncludeDir(), " ").
		Append("CXXFLAGS", "-I"+l.IncludeDir(), " ").
		Append("LD_LIBRARY_PATH", l.BuildLib(), pathSep)
	if s.def.SaltKind == SaltPkgConfig {
		flags = flags.Append("PKG_CONFIG_PATH", l.PkgConfigDir(), pathSep)
	}
	return flags
}

// ComposeFlags returns the flags this step builds with: the toolchain
// defaults, salted by every declared salt source in declaration order,
// then the step's own extra flags. Extra flags whose value starts with
// "+" are appended to the salted value instead of replacing it.
func (s *Step) ComposeFlags() toolchain.Flags {
	flags := s.env.DefaultFlags()
	for _, src := range s.salts {
		flags = src.Salt(flags)
	}
	for _, key := range s.def.ExtraFlags.Keys() {
		value := s.def.ExtraFlags[key]
		if len(value) > 0 && value[0] == '+' {
			flags = flags.Append(key, value[1:], " ")
			continue
		}
		flags = flags.With(key, value)
	}
	return flags
}

// SaltSources returns the steps whose flags this step composes.
func (s *Step) SaltSources() []*Step {
	out := make([]*Step, len(s.salts))
	copy(out, s.salts)
	return out
}
