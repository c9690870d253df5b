// Package toolchain describes the cross-compilation environment: where the
// SDK, NDK and Qt live, which compiler prefix to use and which flags every
// step starts from. It is computed once per invocation and passed to every
// step explicitly.
package toolchain

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/qgsmg/internal/domain/config"
)

// ErrMissingPrerequisite is wrapped by MissingPrerequisiteError.
var ErrMissingPrerequisite = errors.New("missing prerequisite")

// MissingPrerequisiteError reports a required path that does not exist.
type MissingPrerequisiteError struct {
	Name string
	Path string
}

func (e *MissingPrerequisiteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("missing prerequisite %s: not configured", e.Name)
	}
	return fmt.Sprintf("missing prerequisite %s: %s does not exist", e.Name, e.Path)
}

// Unwrap lets errors.Is match ErrMissingPrerequisite.
func (e *MissingPrerequisiteError) Unwrap() error {
	return ErrMissingPrerequisite
}

// SDKSearchPaths returns the fallback SDK locations, in search order.
func SDKSearchPaths(home string) []string {
	paths := make([]string, 0, 4)
	if home != "" {
		paths = append(paths,
			filepath.Join(home, "necessitas"),
			filepath.Join(home, "NecessitasQtSDK"),
		)
	}
	return append(paths, "/opt/necessitas", "/opt/NecessitasQtSDK")
}

// Environment is the resolved cross-compilation environment.
type Environment struct {
	Home          string
	CacheRoot     string
	SDKRoot       string
	NDK           string
	SDK           string
	QtPath        string
	QtTools       string
	AndroidLevel  int
	NDKPlatform   string
	ToolchainDir  string
	Host          string
	Prefix        string
	PatchesDir    string
	ScriptsDir    string
	RuntimeDir    string
	InheritedPath string
}

// Discover derives the environment from configuration. When no SDK root is
// configured the fallback locations are searched with exists; an SDK that
// cannot be found is left empty and reported by Verify.
func Discover(cfg config.Config, getenv func(string) string, exists func(string) bool) (*Environment, error) {
	cacheRoot, err := filepath.Abs(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("resolving cache path %q: %w", cfg.CachePath, err)
	}

	sdkRoot := cfg.SDKRoot
	if sdkRoot == "" {
		for _, candidate := range SDKSearchPaths(cfg.Home) {
			if exists(candidate) {
				sdkRoot = candidate
				break
			}
		}
	}

	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		if a, err := filepath.Abs(p); err == nil {
			return a
		}
		return p
	}

	env := &Environment{
		Home:          cfg.Home,
		CacheRoot:     cacheRoot,
		SDKRoot:       sdkRoot,
		AndroidLevel:  cfg.AndroidLevel,
		ToolchainDir:  filepath.Join(cacheRoot, "toolchain"),
		Host:          cfg.Host,
		Prefix:        cfg.ToolchainPrefix,
		PatchesDir:    abs(cfg.PatchesDir),
		ScriptsDir:    abs(cfg.ScriptsDir),
		RuntimeDir:    abs(cfg.RuntimeDir),
		InheritedPath: getenv("PATH"),
	}
	if env.Host == "" {
		env.Host = config.DefaultHost
	}
	if env.Prefix == "" {
		env.Prefix = env.Host + "-"
	}
	if env.AndroidLevel == 0 {
		env.AndroidLevel = config.DefaultAndroidLevel
	}

	if sdkRoot != "" {
		env.NDK = filepath.Join(sdkRoot, "android-ndk")
		env.SDK = filepath.Join(sdkRoot, "android-sdk")
		env.QtPath = filepath.Join(sdkRoot, "Android", "Qt", "482", "armeabi")
		env.QtTools = filepath.Join(env.QtPath, "bin")
		env.NDKPlatform = filepath.Join(env.NDK, "platforms", env.Platform(), "arch-arm")
	}

	return env, nil
}

// Platform returns the NDK platform name, e.g. "android-14".
func (e *Environment) Platform() string {
	return "android-" + strconv.Itoa(e.AndroidLevel)
}

// Prerequisite is one path Verify checks.
type Prerequisite struct {
	Name string
	Path string
}

// Prerequisites lists the paths a build needs, in the order they are checked.
func (e *Environment) Prerequisites() []Prerequisite {
	return []Prerequisite{
		{Name: "home directory", Path: e.Home},
		{Name: "SDK root", Path: e.SDKRoot},
		{Name: "Android NDK", Path: e.NDK},
		{Name: "Android SDK", Path: e.SDK},
		{Name: "Qt tools", Path: e.QtTools},
	}
}

// Verify fails with a MissingPrerequisiteError for the first missing path.
func (e *Environment) Verify(exists func(string) bool) error {
	for _, p := range e.Prerequisites() {
		if p.Path == "" || !exists(p.Path) {
			return &MissingPrerequisiteError{Name: p.Name, Path: p.Path}
		}
	}
	return nil
}

// Tool returns the prefixed name of a cross tool, e.g. "arm-linux-androideabi-gcc".
func (e *Environment) Tool(name string) string {
	return e.Prefix + name
}

// ToolMappings returns the compiler and binutils variables.
func (e *Environment) ToolMappings() Flags {
	return Flags{
		"CC":     e.Tool("gcc"),
		"CXX":    e.Tool("g++"),
		"LD":     e.Tool("ld"),
		"AR":     e.Tool("ar"),
		"RANLIB": e.Tool("ranlib"),
		"AS":     e.Tool("as"),
	}
}

// Default target flags.
const (
	DefaultCFlags  = "-DANDROID=ON -Wno-psabi -O2 -mthumb"
	DefaultLDFlags = "-Wl,--fix-cortex-a8"
)

// DefaultFlags returns the flags every step starts from before salting.
func (e *Environment) DefaultFlags() Flags {
	return e.ToolMappings().Merge(Flags{
		"CFLAGS":   DefaultCFlags,
		"CXXFLAGS": DefaultCFlags + " --std=gnu++0x",
		"LDFLAGS":  DefaultLDFlags,
	})
}

// ConfigureFlags returns the autotools cross-compilation arguments.
func (e *Environment) ConfigureFlags(prefix string) []string {
	return []string{"--host=" + e.Host, "--prefix=" + prefix}
}

// SearchPath returns PATH with the toolchain and SDK tool dirs in front of base.
func (e *Environment) SearchPath(base string) string {
	dirs := []string{filepath.Join(e.ToolchainDir, "bin")}
	if e.SDK != "" {
		dirs = append(dirs, filepath.Join(e.SDK, "tools"), filepath.Join(e.SDK, "platform-tools"))
	}
	if base != "" {
		dirs = append(dirs, base)
	}
	return strings.Join(dirs, string(os.PathListSeparator))
}

// BaseEnv returns the environment overrides every external tool runs with.
func (e *Environment) BaseEnv() map[string]string {
	env := map[string]string{
		"PATH": e.SearchPath(e.InheritedPath),
	}
	if e.NDK != "" {
		env["ANDROID_NDK_ROOT"] = e.NDK
	}
	if e.SDK != "" {
		env["ANDROID_SDK_ROOT"] = e.SDK
	}
	return env
}

// QMake returns the path of the Qt qmake binary.
func (e *Environment) QMake() string {
	return filepath.Join(e.QtTools, "qmake")
}

// StandaloneToolchainScript returns the NDK script that installs the toolchain.
func (e *Environment) StandaloneToolchainScript() string {
	return filepath.Join(e.NDK, "build", "tools", "make-standalone-toolchain.sh")
}
