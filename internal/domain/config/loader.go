package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration from the filesystem.
type Loader struct {
	readFile func(string) ([]byte, error)
}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{readFile: os.ReadFile}
}

// Load reads path on top of Default().
// When required is false a missing file yields the defaults.
func (l *Loader) Load(path string, required bool) (Config, error) {
	cfg := Default()

	data, err := l.readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if required {
				return cfg, NewConfigNotFoundError(path)
			}
			return cfg, nil
		}
		return cfg, err
	}

	cfg, err = Parse(data)
	if err != nil {
		return cfg, NewYAMLParseError(path, err)
	}
	cfg.provenance = path
	return cfg, nil
}

// Parse decodes YAML on top of Default(). Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	var raw Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return cfg, err
	}

	return merge(cfg, raw), nil
}

func merge(base, over Config) Config {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&base.CachePath, over.CachePath)
	set(&base.SDKRoot, over.SDKRoot)
	set(&base.Host, over.Host)
	set(&base.ToolchainPrefix, over.ToolchainPrefix)
	set(&base.Recipe, over.Recipe)
	set(&base.PatchesDir, over.PatchesDir)
	set(&base.ScriptsDir, over.ScriptsDir)
	set(&base.RuntimeDir, over.RuntimeDir)
	set(&base.PrebuiltURL, over.PrebuiltURL)
	set(&base.S3Region, over.S3Region)
	set(&base.Log.Level, over.Log.Level)
	set(&base.Log.Format, over.Log.Format)
	if over.AndroidLevel != 0 {
		base.AndroidLevel = over.AndroidLevel
	}
	return base
}
