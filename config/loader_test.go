package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 5*time.Minute, cfg.Engine.RunTimeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "canvasflow.db", cfg.Database.Path)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_port: 9000
  rate_limit_rps: 50
engine:
  step_delay: 250ms
redis:
  enabled: false
log:
  level: debug
`), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, 50, cfg.Server.RateLimitRPS)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.StepDelay)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "canvasflow.db", cfg.Database.Path)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/does/not/exist.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CANVASFLOW_SERVER_HTTP_PORT", "7070")
	t.Setenv("CANVASFLOW_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("CANVASFLOW_ENGINE_STEP_DELAY", "1s")
	t.Setenv("CANVASFLOW_LOG_OUTPUT_PATHS", "stdout, /var/log/canvasflow.log")
	t.Setenv("CANVASFLOW_DATABASE_ENABLED", "false")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.HTTPPort)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, time.Second, cfg.Engine.StepDelay)
	assert.Equal(t, []string{"stdout", "/var/log/canvasflow.log"}, cfg.Log.OutputPaths)
	assert.False(t, cfg.Database.Enabled)
}

func TestEnvOverridesBeatYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 9000\n"), 0o644))

	t.Setenv("CANVASFLOW_SERVER_HTTP_PORT", "9100")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.HTTPPort)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"bad port":            func(c *Config) { c.Server.HTTPPort = 0 },
		"negative step delay": func(c *Config) { c.Engine.StepDelay = -time.Second },
		"db without path":     func(c *Config) { c.Database.Path = "" },
		"auth without secret": func(c *Config) { c.Auth.Enabled = true },
		"bad log level":       func(c *Config) { c.Log.Level = "verbose" },
		"bad log format":      func(c *Config) { c.Log.Format = "xml" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoaderCustomValidator(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			if c.Auth.TokenTTL > time.Hour {
				return assert.AnError
			}
			return nil
		}).
		Load()
	require.Error(t, err)
}
