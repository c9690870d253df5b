package project

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

// HostConfigFile is the host-side application config, relative to the
// project root.
var HostConfigFile = filepath.Join("config", "host", "app.ini")

// DefaultVersion is used when the host config carries no version.
const DefaultVersion = "1.0"

// ErrNoHostConfig is returned when a project has no host config.
var ErrNoHostConfig = errors.New("host configuration is not available")

// HostConfig describes the application to the packer.
type HostConfig struct {
	// PackageName is a Java style package name such as org.example.app.
	PackageName string
	Name        string
	Version     string
	// Exclude holds extra glob patterns, matched against slash separated
	// paths relative to the project root, that are left out of the archive.
	Exclude []string
}

// DefaultHostConfig returns the config written by Create for a project
// directory named base.
func DefaultHostConfig(base string) HostConfig {
	name := strings.ToLower(strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, base))
	if name == "" {
		name = "app"
	}
	return HostConfig{
		PackageName: "org.qgis.mobility." + name,
		Name:        base,
		Version:     DefaultVersion,
	}
}

// LoadHostConfig reads the host config of the project at root.
func LoadHostConfig(fs ports.FileSystem, root string) (HostConfig, error) {
	path := filepath.Join(root, HostConfigFile)
	if !fs.Exists(path) {
		return HostConfig{}, fmt.Errorf("%w: %s", ErrNoHostConfig, path)
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		return HostConfig{}, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg, err := ini.Load(data)
	if err != nil {
		return HostConfig{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	app := cfg.Section("app")
	hc := HostConfig{
		PackageName: app.Key("package_name").String(),
		Name:        app.Key("name").String(),
		Version:     app.Key("version").MustString(DefaultVersion),
		Exclude:     patterns(cfg.Section("pack").Key("exclude").String()),
	}
	if hc.PackageName == "" || hc.Name == "" {
		return HostConfig{}, fmt.Errorf("%s: [app] needs package_name and name", path)
	}
	return hc, nil
}

func patterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (hc HostConfig) encode() ([]byte, error) {
	cfg := ini.Empty()
	app, err := cfg.NewSection("app")
	if err != nil {
		return nil, err
	}
	for _, kv := range [][2]string{
		{"package_name", hc.PackageName},
		{"name", hc.Name},
		{"version", hc.Version},
	} {
		if _, err := app.NewKey(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}

	pack, err := cfg.NewSection("pack")
	if err != nil {
		return nil, err
	}
	if _, err := pack.NewKey("exclude", strings.Join(hc.Exclude, ",")); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
