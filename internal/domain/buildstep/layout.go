package buildstep

import "path/filepath"

// MarkerPrefix starts the name of every completion marker in the cache root.
const MarkerPrefix = ".fini"

// BuildInfoFile is the build record written inside a step's build dir.
const BuildInfoFile = ".buildinfo.toml"

// Layout derives every cache path of one library. All methods are pure
// functions of the cache root and the library name, so two Layouts built
// from the same inputs always agree.
type Layout struct {
	root    string
	patches string
	library string
}

// NewLayout creates the layout of library under cacheRoot.
// patchesRoot holds one patch directory per library.
func NewLayout(cacheRoot, patchesRoot, library string) Layout {
	return Layout{
		root:    filepath.Clean(cacheRoot),
		patches: patchesRoot,
		library: library,
	}
}

// Library returns the library key.
func (l Layout) Library() string { return l.library }

// Root returns the cache root.
func (l Layout) Root() string { return l.root }

// SourceRoot returns the directory holding every library's sources.
func (l Layout) SourceRoot() string { return filepath.Join(l.root, "source") }

// BuildRoot returns the directory holding every library's build outputs.
func (l Layout) BuildRoot() string { return filepath.Join(l.root, "build") }

// IncludeRoot returns the directory holding every library's public headers.
func (l Layout) IncludeRoot() string { return filepath.Join(l.root, "include") }

// SourceDir returns source/<lib>.
func (l Layout) SourceDir() string { return filepath.Join(l.SourceRoot(), l.library) }

// BuildDir returns build/<lib>, the install prefix of the library.
func (l Layout) BuildDir() string { return filepath.Join(l.BuildRoot(), l.library) }

// BuildInclude returns build/<lib>/include.
func (l Layout) BuildInclude() string { return filepath.Join(l.BuildDir(), "include") }

// BuildLib returns build/<lib>/lib.
func (l Layout) BuildLib() string { return filepath.Join(l.BuildDir(), "lib") }

// BuildBin returns build/<lib>/bin.
func (l Layout) BuildBin() string { return filepath.Join(l.BuildDir(), "bin") }

// PkgConfigDir returns build/<lib>/lib/pkgconfig.
func (l Layout) PkgConfigDir() string { return filepath.Join(l.BuildLib(), "pkgconfig") }

// IncludeDir returns include/<lib>.
func (l Layout) IncludeDir() string { return filepath.Join(l.IncludeRoot(), l.library) }

// Marker returns the completion marker path, .fini<lib>.
func (l Layout) Marker() string { return filepath.Join(l.root, MarkerPrefix+l.library) }

// BuildInfo returns the build record path.
func (l Layout) BuildInfo() string { return filepath.Join(l.BuildDir(), BuildInfoFile) }

// PatchDir returns <patches>/<lib>.
func (l Layout) PatchDir() string { return filepath.Join(l.patches, l.library) }

// PatchesRoot returns the directory holding every library's patches.
func (l Layout) PatchesRoot() string { return l.patches }

// Paths returns the per-library directories a purge removes.
func (l Layout) Paths() []string {
	return []string{l.BuildDir(), l.SourceDir(), l.IncludeDir()}
}

// Roots returns the shared directories every build needs.
func (l Layout) Roots() []string {
	return []string{l.root, l.BuildRoot(), l.SourceRoot(), l.IncludeRoot()}
}
