package procedure

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"

	"github.com/felixgeelhaar/qgsmg/internal/domain/buildstep"
)

// placeholder matches ${name} and ${name:arg}. Upper-case names such as
// ${CMAKE_PREFIX} are left alone so build files can keep their own syntax.
var placeholder = regexp.MustCompile(`\$\{([a-z_]+)(?::([^}]+))?\}`)

// Vars expands recipe placeholders against one running step.
type Vars struct {
	ws        *buildstep.Workspace
	libraries map[string]string
	python    *HostPython
}

func newVars(ws *buildstep.Workspace, libraries map[string]string, python *HostPython) *Vars {
	return &Vars{ws: ws, libraries: libraries, python: python}
}

// Expand replaces every placeholder in s. An unknown placeholder is an error.
func (v *Vars) Expand(s string) (string, error) {
	var firstErr error
	out := placeholder.ReplaceAllStringFunc(s, func(m string) string {
		sub := placeholder.FindStringSubmatch(m)
		val, err := v.lookup(sub[1], sub[2])
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return m
		}
		return val
	})
	return out, firstErr
}

// ExpandAll expands every element of ss.
func (v *Vars) ExpandAll(ss []string) ([]string, error) {
	out := make([]string, len(ss))
	for i, s := range ss {
		e, err := v.Expand(s)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// ExpandMap expands every value of m.
func (v *Vars) ExpandMap(m map[string]string) (map[string]string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		e, err := v.Expand(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = e
	}
	return out, nil
}

func (v *Vars) lookup(name, arg string) (string, error) {
	if arg != "" {
		return v.lookupArg(name, arg)
	}

	l := v.ws.Layout
	env := v.ws.Env
	switch name {
	case "cache":
		return env.CacheRoot, nil
	case "cwd":
		return v.ws.Stack.Current(), nil
	case "source":
		return l.SourceDir(), nil
	case "build":
		return l.BuildDir(), nil
	case "include":
		return l.IncludeDir(), nil
	case "lib":
		return l.BuildLib(), nil
	case "bin":
		return l.BuildBin(), nil
	case "patches":
		return l.PatchDir(), nil
	case "patches_root":
		return l.PatchesRoot(), nil
	case "library":
		return l.Library(), nil
	case "version":
		return v.ws.Version, nil
	case "toolchain":
		return env.ToolchainDir, nil
	case "sysroot":
		return filepath.Join(env.ToolchainDir, "sysroot"), nil
	case "ndk":
		return env.NDK, nil
	case "sdk":
		return env.SDK, nil
	case "sdk_root":
		return env.SDKRoot, nil
	case "qt":
		return env.QtPath, nil
	case "qt_tools":
		return env.QtTools, nil
	case "qmake":
		return env.QMake(), nil
	case "ndk_platform":
		return env.NDKPlatform, nil
	case "android_level":
		return strconv.Itoa(env.AndroidLevel), nil
	case "host":
		return env.Host, nil
	case "tool_prefix":
		return env.Prefix, nil
	case "runtime":
		return env.RuntimeDir, nil
	case "cpus":
		return strconv.Itoa(runtime.NumCPU()), nil
	case "hostpython", "hostpython_prefix", "hostpython_bin", "site_packages", "sip_dir", "python_bin":
		return v.pythonVar(name)
	}
	return "", fmt.Errorf("unknown placeholder ${%s}", name)
}

func (v *Vars) lookupArg(name, arg string) (string, error) {
	switch name {
	case "flag":
		return v.ws.Flags[arg], nil
	case "tool":
		return v.ws.Env.Tool(arg), nil
	case "env":
		return v.ws.Tools.Env()[arg], nil
	}

	lib, ok := v.libraries[arg]
	if !ok {
		return "", fmt.Errorf("placeholder ${%s:%s}: unknown step %q", name, arg, arg)
	}
	other := buildstep.NewLayout(v.ws.Env.CacheRoot, v.ws.Env.PatchesDir, lib)
	switch name {
	case "build":
		return other.BuildDir(), nil
	case "include":
		return other.IncludeDir(), nil
	case "lib":
		return other.BuildLib(), nil
	case "bin":
		return other.BuildBin(), nil
	case "source":
		return other.SourceDir(), nil
	case "patches":
		return other.PatchDir(), nil
	}
	return "", fmt.Errorf("unknown placeholder ${%s:%s}", name, arg)
}

func (v *Vars) pythonVar(name string) (string, error) {
	if v.python == nil {
		return "", fmt.Errorf("placeholder ${%s} needs host_python", name)
	}
	switch name {
	case "hostpython":
		return v.python.Interpreter, nil
	case "hostpython_prefix":
		return v.python.Prefix, nil
	case "hostpython_bin":
		return v.python.Bin, nil
	case "site_packages":
		return v.python.SitePackages, nil
	case "sip_dir":
		return v.python.SipDir, nil
	default:
		return v.python.Binaries, nil
	}
}
