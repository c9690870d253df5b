// Package project scaffolds application projects that run on top of the
// built runtime and packs them for deployment.
package project

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/felixgeelhaar/qgsmg/internal/domain/compiler"
	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

const (
	// OutDir holds pack output, relative to the project root.
	OutDir = ".out"
	// ArchiveName is the application archive inside OutDir.
	ArchiveName = "application.zip"
	// TimestampEntry is the archive entry recording when it was packed.
	TimestampEntry = "timestamp"
)

var skipPatterns = []string{"*.apk", "*~", "*.pyc", "*.pyo"}

const mainTemplate = `# Entry point of the application.


def main():
    pass


if __name__ == "__main__":
    main()
`

// Creator scaffolds and packs projects.
type Creator struct {
	fs     ports.FileSystem
	logger ports.Logger
	now    func() time.Time
}

// NewCreator creates a Creator.
func NewCreator(fs ports.FileSystem, logger ports.Logger) *Creator {
	return &Creator{fs: fs, logger: logger, now: time.Now}
}

// WithClock replaces the clock used for the archive timestamp.
func (c *Creator) WithClock(now func() time.Time) *Creator {
	c.now = now
	return c
}

// Create lays out a new project at root. root must not exist.
//
//	config/host/app.ini   host side settings read by Pack
//	config/target/        settings shipped to the device
//	app/main.py           application entry point
func (c *Creator) Create(ctx context.Context, root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if c.fs.Exists(root) {
		return compiler.NewAlreadyExistsError(root)
	}

	for _, dir := range []string{
		filepath.Join(root, "config", "host"),
		filepath.Join(root, "config", "target"),
		filepath.Join(root, "app"),
	} {
		c.logger.Info(ctx, "creating directory", ports.F("path", dir))
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	hostConfig, err := DefaultHostConfig(filepath.Base(root)).encode()
	if err != nil {
		return fmt.Errorf("encoding host config: %w", err)
	}

	files := []struct {
		path string
		data []byte
	}{
		{filepath.Join(root, HostConfigFile), hostConfig},
		{filepath.Join(root, "config", "target", "app.ini"), nil},
		{filepath.Join(root, "app", "main.py"), []byte(mainTemplate)},
	}
	for _, f := range files {
		c.logger.Info(ctx, "creating file", ports.F("path", f.path))
		if err := c.fs.WriteFile(f.path, f.data, 0o644); err != nil {
			return fmt.Errorf("creating %s: %w", f.path, err)
		}
	}
	return nil
}

// PackResult describes a written archive.
type PackResult struct {
	Archive string
	Entries []string
	Config  HostConfig
}

// Pack zips the project at root into .out/application.zip, replacing any
// earlier archive. Dot directories, the host config, editor backups,
// compiled python files and APKs are left out.
func (c *Creator) Pack(ctx context.Context, root string) (PackResult, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return PackResult{}, err
	}
	hc, err := LoadHostConfig(c.fs, root)
	if err != nil {
		return PackResult{}, err
	}

	outDir := filepath.Join(root, OutDir)
	if err := c.fs.MkdirAll(outDir, 0o755); err != nil {
		return PackResult{}, fmt.Errorf("creating %s: %w", outDir, err)
	}
	archive := filepath.Join(outDir, ArchiveName)
	if c.fs.Exists(archive) {
		if err := c.fs.Remove(archive); err != nil {
			return PackResult{}, fmt.Errorf("removing old archive: %w", err)
		}
	}

	files, err := gather(root, hc.Exclude)
	if err != nil {
		return PackResult{}, err
	}

	out, err := os.Create(archive)
	if err != nil {
		return PackResult{}, fmt.Errorf("creating %s: %w", archive, err)
	}
	defer func() { _ = out.Close() }()

	zw := zip.NewWriter(out)
	for _, name := range files {
		c.logger.Debug(ctx, "storing", ports.F("file", name), ports.F("archive", archive))
		if err := addFile(zw, root, name); err != nil {
			return PackResult{}, err
		}
	}

	w, err := zw.Create(TimestampEntry)
	if err != nil {
		return PackResult{}, err
	}
	ts := strconv.FormatFloat(float64(c.now().UnixNano())/float64(time.Second), 'f', 6, 64)
	if _, err := io.WriteString(w, ts); err != nil {
		return PackResult{}, err
	}

	if err := zw.Close(); err != nil {
		return PackResult{}, fmt.Errorf("finishing %s: %w", archive, err)
	}
	if err := out.Close(); err != nil {
		return PackResult{}, fmt.Errorf("closing %s: %w", archive, err)
	}

	c.logger.Info(ctx, "packed application", ports.F("archive", archive), ports.F("files", len(files)))
	return PackResult{Archive: archive, Entries: files, Config: hc}, nil
}

// gather returns the slash separated paths, relative to root, of every
// file that belongs in the archive.
func gather(root string, exclude []string) ([]string, error) {
	hostDir := path.Join("config", "host")
	var files []string

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || rel == hostDir {
				return filepath.SkipDir
			}
			return nil
		}
		if skipped(d.Name(), skipPatterns) || skipped(rel, exclude) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

func skipped(name string, patterns []string) bool {
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

func addFile(zw *zip.Writer, root, name string) error {
	src := filepath.Join(root, filepath.FromSlash(name))
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	return nil
}
