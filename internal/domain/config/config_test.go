package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/qgsmg/internal/domain/config"
)

func TestLoader_Load_MissingOptionalFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.NewLoader().Load(filepath.Join(t.TempDir(), "qgsmg.yaml"), false)

	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Empty(t, cfg.Provenance())
}

func TestLoader_Load_MissingRequiredFile(t *testing.T) {
	t.Parallel()

	_, err := config.NewLoader().Load("/nonexistent/qgsmg.yaml", true)

	require.Error(t, err)
	assert.True(t, errors.Is(err, &config.UserError{Code: config.ErrCodeConfigNotFound}))
}

func TestLoader_Load_ReadsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "qgsmg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache_path: /var/cache/qgsmg
sdk_root: /opt/necessitas
android_level: 9
log:
  level: debug
`), 0o644))

	cfg, err := config.NewLoader().Load(path, true)

	require.NoError(t, err)
	assert.Equal(t, "/var/cache/qgsmg", cfg.CachePath)
	assert.Equal(t, "/opt/necessitas", cfg.SDKRoot)
	assert.Equal(t, 9, cfg.AndroidLevel)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset keys keep defaults")
	assert.Equal(t, config.DefaultToolchainPrefix, cfg.ToolchainPrefix)
	assert.Equal(t, path, cfg.Provenance())
}

func TestLoader_Load_InvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "qgsmg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache_paht: /x\n"), 0o644))

	_, err := config.NewLoader().Load(path, true)

	var userErr *config.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, config.ErrCodeConfigParse, userErr.Code)
	assert.Contains(t, userErr.Format(), "Location: "+path)
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestConfig_Precedence(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		config.EnvCachePath:  "/env/cache",
		config.EnvNecessitas: "/env/sdk",
		config.EnvHome:       "/home/dev",
	}
	cfg, err := config.Parse([]byte("cache_path: /file/cache\nsdk_root: /file/sdk\n"))
	require.NoError(t, err)

	cfg = cfg.ApplyEnv(func(k string) string { return env[k] })
	assert.Equal(t, "/env/cache", cfg.CachePath)
	assert.Equal(t, "/env/sdk", cfg.SDKRoot)
	assert.Equal(t, "/home/dev", cfg.Home)

	cfg = cfg.ApplyOverrides(config.Overrides{CachePath: "/flag/cache", Verbose: true, JSONLog: true})
	assert.Equal(t, "/flag/cache", cfg.CachePath)
	assert.Equal(t, "/env/sdk", cfg.SDKRoot)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.JSONLog())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{"valid", func(*config.Config) {}, ""},
		{"empty cache", func(c *config.Config) { c.CachePath = " " }, "cache_path"},
		{"bad level", func(c *config.Config) { c.AndroidLevel = 0 }, "android_level"},
		{"bad log level", func(c *config.Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var userErr *config.UserError
			require.ErrorAs(t, err, &userErr)
			assert.Equal(t, tt.field, userErr.Context)
		})
	}
}
