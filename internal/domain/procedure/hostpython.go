package procedure

import (
	"path/filepath"

	"github.com/felixgeelhaar/qgsmg/internal/domain/buildstep"
)

// PythonStep is the name of the step that provides the host interpreter.
const PythonStep = "python"

// HostPython locates the host interpreter and the python step's target
// install dirs. Steps that declare host_python build against these instead
// of inheriting the python step's layout; their own dirs and marker stay
// their own.
type HostPython struct {
	// Prefix is where the host interpreter is installed.
	Prefix      string
	Interpreter string
	Bin         string
	// Pgen is the parser generator built with the host interpreter.
	Pgen string
	// SitePackages, SipDir and Binaries are below the target python build.
	SitePackages string
	SipDir       string
	Binaries     string
	Library      string
}

// NewHostPython derives the host python locations from the cache root and
// the python step's layout.
func NewHostPython(cacheRoot string, python buildstep.Layout) HostPython {
	prefix := filepath.Join(cacheRoot, "hostpython")
	return HostPython{
		Prefix:       prefix,
		Interpreter:  filepath.Join(prefix, "bin", "python"),
		Bin:          filepath.Join(prefix, "bin"),
		Pgen:         filepath.Join(python.SourceDir(), "host", "Parser", "pgen"),
		SitePackages: filepath.Join(python.BuildLib(), "python2.7", "site-packages"),
		SipDir:       filepath.Join(python.BuildDir(), "share", "sip"),
		Binaries:     python.BuildBin(),
		Library:      python.BuildLib(),
	}
}
