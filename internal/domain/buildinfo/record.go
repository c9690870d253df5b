// Package buildinfo reads and writes the record each step leaves in its
// build directory and reports steps whose inputs changed since they were
// built.
package buildinfo

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/semver"

	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

// Record describes one successful build of a library.
type Record struct {
	RunID    string            `toml:"run_id"`
	Library  string            `toml:"library"`
	Version  string            `toml:"version,omitempty"`
	Finished time.Time         `toml:"finished"`
	Salts    []string          `toml:"salts,omitempty"`
	Flags    map[string]string `toml:"flags,omitempty"`
}

// Encode renders r as TOML.
func Encode(r Record) ([]byte, error) {
	return toml.Marshal(r)
}

// Decode parses a TOML record.
func Decode(data []byte) (Record, error) {
	var r Record
	if err := toml.Unmarshal(data, &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Write stores r at path.
func Write(fsys ports.FileSystem, path string, r Record) error {
	data, err := Encode(r)
	if err != nil {
		return fmt.Errorf("encoding build record for %s: %w", r.Library, err)
	}
	return fsys.WriteFile(path, data, 0o644)
}

// Read loads the record at path. A missing record is not an error:
// steps built before records existed, or purged steps, simply have none.
func Read(fsys ports.FileSystem, path string) (Record, bool, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	r, err := Decode(data)
	if err != nil {
		return Record{}, false, fmt.Errorf("parsing %s: %w", path, err)
	}
	return r, true, nil
}

// Canonical returns v as a canonical semantic version with a leading "v",
// or "" when v is not one. The leading "v" is optional in recipes.
func Canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}

// ValidVersion reports whether v is a semantic version, leading "v" optional.
func ValidVersion(v string) bool {
	return Canonical(v) != ""
}
