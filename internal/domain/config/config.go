// Package config holds the settings every qgsmg command starts from.
// Values come from defaults, an optional qgsmg.yaml, the environment and
// command-line flags, in increasing order of precedence.
package config

import (
	"strings"

	"github.com/felixgeelhaar/qgsmg/internal/ports"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvCachePath  = "CACHE_PATH"
	EnvNecessitas = "NECESSITAS"
	EnvHome       = "HOME"
)

// Default values.
const (
	DefaultAndroidLevel    = 14
	DefaultHost            = "arm-linux-androideabi"
	DefaultToolchainPrefix = DefaultHost + "-"
	DefaultFileName        = "qgsmg.yaml"
)

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Config is the resolved configuration for one invocation.
type Config struct {
	Home            string    `yaml:"-"`
	CachePath       string    `yaml:"cache_path,omitempty"`
	SDKRoot         string    `yaml:"sdk_root,omitempty"`
	AndroidLevel    int       `yaml:"android_level,omitempty"`
	Host            string    `yaml:"host,omitempty"`
	ToolchainPrefix string    `yaml:"toolchain_prefix,omitempty"`
	Recipe          string    `yaml:"recipe,omitempty"`
	PatchesDir      string    `yaml:"patches_dir,omitempty"`
	ScriptsDir      string    `yaml:"scripts_dir,omitempty"`
	RuntimeDir      string    `yaml:"runtime_dir,omitempty"`
	PrebuiltURL     string    `yaml:"prebuilt_url,omitempty"`
	S3Region        string    `yaml:"s3_region,omitempty"`
	Log             LogConfig `yaml:"log,omitempty"`

	provenance string
}

// Default returns the configuration used when nothing else is set.
// Relative directories are resolved against the working directory.
func Default() Config {
	return Config{
		CachePath:       "cache",
		AndroidLevel:    DefaultAndroidLevel,
		Host:            DefaultHost,
		ToolchainPrefix: DefaultToolchainPrefix,
		PatchesDir:      "patches",
		ScriptsDir:      "script",
		RuntimeDir:      "runtime",
		Log:             LogConfig{Level: "info", Format: "text"},
	}
}

// Provenance returns the file the configuration was read from, if any.
func (c Config) Provenance() string {
	return c.provenance
}

// ApplyEnv overrides file values with CACHE_PATH, NECESSITAS and HOME.
func (c Config) ApplyEnv(getenv func(string) string) Config {
	if v := strings.TrimSpace(getenv(EnvCachePath)); v != "" {
		c.CachePath = v
	}
	if v := strings.TrimSpace(getenv(EnvNecessitas)); v != "" {
		c.SDKRoot = v
	}
	if v := strings.TrimSpace(getenv(EnvHome)); v != "" {
		c.Home = v
	}
	return c
}

// Overrides carries command-line flag values. Empty fields leave the
// configuration untouched.
type Overrides struct {
	CachePath string
	Recipe    string
	Verbose   bool
	JSONLog   bool
}

// ApplyOverrides returns c with flag values applied on top.
func (c Config) ApplyOverrides(o Overrides) Config {
	if o.CachePath != "" {
		c.CachePath = o.CachePath
	}
	if o.Recipe != "" {
		c.Recipe = o.Recipe
	}
	if o.Verbose {
		c.Log.Level = "debug"
	}
	if o.JSONLog {
		c.Log.Format = "json"
	}
	return c
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	if strings.TrimSpace(c.CachePath) == "" {
		return NewValidationError("cache_path", "must not be empty")
	}
	if c.AndroidLevel <= 0 {
		return NewValidationError("android_level", "must be a positive API level")
	}
	if _, err := ports.ParseLevel(c.Log.Level); err != nil {
		return NewValidationError("log.level", err.Error())
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return NewValidationError("log.format", "must be text or json")
	}
	return nil
}

// JSONLog reports whether logs should be JSON encoded.
func (c Config) JSONLog() bool {
	return c.Log.Format == "json"
}
