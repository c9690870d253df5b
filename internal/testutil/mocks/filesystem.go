package mocks

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

// FileSystem is a thread-safe in-memory test double for ports.FileSystem.
// Paths are cleaned before use; parent directories are implied by files.
type FileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
	fails map[string]error
}

// NewFileSystem creates a new FileSystem mock.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
		fails: make(map[string]error),
	}
}

// AddFile adds a file with string content.
func (m *FileSystem) AddFile(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = []byte(content)
}

// AddDir adds an empty directory.
func (m *FileSystem) AddDir(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[filepath.Clean(path)] = true
}

// FailWrite makes WriteFile and MkdirAll on path return err.
func (m *FileSystem) FailWrite(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fails[filepath.Clean(path)] = err
}

// ReadFile reads a file from the mock filesystem.
func (m *FileSystem) ReadFile(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), content...), nil
}

// WriteFile writes a file to the mock filesystem.
func (m *FileSystem) WriteFile(path string, data []byte, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err := m.fails[path]; err != nil {
		return err
	}
	m.files[path] = append([]byte(nil), data...)
	return nil
}

// Exists checks if a path exists as a file or directory, explicit or implied.
func (m *FileSystem) Exists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path = filepath.Clean(path)
	if _, ok := m.files[path]; ok {
		return true
	}
	return m.isDirLocked(path)
}

// IsDir checks if a path is a directory.
func (m *FileSystem) IsDir(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isDirLocked(filepath.Clean(path))
}

func (m *FileSystem) isDirLocked(path string) bool {
	if m.dirs[path] {
		return true
	}
	prefix := path + string(filepath.Separator)
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	for p := range m.dirs {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Remove removes a single file or empty directory.
func (m *FileSystem) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if _, ok := m.files[path]; ok {
		delete(m.files, path)
		return nil
	}
	if m.dirs[path] {
		delete(m.dirs, path)
		return nil
	}
	return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
}

// RemoveAll removes path and everything below it. Missing paths are fine.
func (m *FileSystem) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	prefix := path + string(filepath.Separator)
	for p := range m.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(m.files, p)
		}
	}
	for p := range m.dirs {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(m.dirs, p)
		}
	}
	return nil
}

// MkdirAll creates a directory in the mock filesystem.
func (m *FileSystem) MkdirAll(path string, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err := m.fails[path]; err != nil {
		return err
	}
	m.dirs[path] = true
	return nil
}

// Rename renames a file in the mock filesystem.
func (m *FileSystem) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	oldPath, newPath = filepath.Clean(oldPath), filepath.Clean(newPath)
	if content, ok := m.files[oldPath]; ok {
		m.files[newPath] = content
		delete(m.files, oldPath)
		return nil
	}
	return fmt.Errorf("file not found: %s", oldPath)
}

// CopyFile copies a file in the mock filesystem.
func (m *FileSystem) CopyFile(src, dest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[filepath.Clean(src)]
	if !ok {
		return fmt.Errorf("file not found: %s", src)
	}
	m.files[filepath.Clean(dest)] = append([]byte(nil), content...)
	return nil
}

// CopyTree copies every file below src to the same relative path below dest.
func (m *FileSystem) CopyTree(src, dest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, dest = filepath.Clean(src), filepath.Clean(dest)
	if !m.isDirLocked(src) {
		return fmt.Errorf("not a directory: %s", src)
	}
	prefix := src + string(filepath.Separator)
	for p, content := range m.files {
		if strings.HasPrefix(p, prefix) {
			m.files[filepath.Join(dest, strings.TrimPrefix(p, prefix))] = append([]byte(nil), content...)
		}
	}
	for p := range m.dirs {
		if strings.HasPrefix(p, prefix) {
			m.dirs[filepath.Join(dest, strings.TrimPrefix(p, prefix))] = true
		}
	}
	m.dirs[dest] = true
	return nil
}

// ReadDir returns the sorted names of the direct children of path.
func (m *FileSystem) ReadDir(path string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path = filepath.Clean(path)
	if !m.isDirLocked(path) {
		return nil, &fs.PathError{Op: "readdir", Path: path, Err: fs.ErrNotExist}
	}
	prefix := path + string(filepath.Separator)
	seen := map[string]bool{}
	collect := func(p string) {
		if strings.HasPrefix(p, prefix) {
			seen[strings.SplitN(strings.TrimPrefix(p, prefix), string(filepath.Separator), 2)[0]] = true
		}
	}
	for p := range m.files {
		collect(p)
	}
	for p := range m.dirs {
		collect(p)
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// GetFileInfo returns metadata about a path in the mock filesystem.
func (m *FileSystem) GetFileInfo(path string) (ports.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path = filepath.Clean(path)

	if content, ok := m.files[path]; ok {
		return ports.FileInfo{Size: int64(len(content)), Mode: 0o644, ModTime: time.Now()}, nil
	}
	if m.isDirLocked(path) {
		return ports.FileInfo{Mode: 0o755 | os.ModeDir, ModTime: time.Now(), IsDir: true}, nil
	}
	return ports.FileInfo{}, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
}

// Files returns the sorted paths of every file.
func (m *FileSystem) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Reset clears all files and directories.
func (m *FileSystem) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = make(map[string][]byte)
	m.dirs = make(map[string]bool)
	m.fails = make(map[string]error)
}

// Ensure FileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*FileSystem)(nil)
