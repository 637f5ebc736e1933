package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	interval, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, interval)
	assert.Equal(t, "utf-8", cfg.Fetch.Encoding)
	assert.Equal(t, 22, cfg.Remote.Port)

	cfg.Remote.Host = "logs.example.com"
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Fetch, cfg.Fetch)
}

func TestLoad_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[remote]
host = "10.64.33.95"
user = "eservice"
insecure_ignore_host_key = true

[fetch]
poll_interval = "500ms"
encoding = "big5"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "10.64.33.95", cfg.Remote.Host)
	assert.Equal(t, "eservice", cfg.Remote.User)
	assert.True(t, cfg.Remote.InsecureIgnoreHostKey)
	assert.Equal(t, 22, cfg.Remote.Port, "unset keys keep defaults")
	assert.Equal(t, "big5", cfg.Fetch.Encoding)

	interval, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, interval)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
remote:
  local: true
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Remote.Local)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[remote\nhost="), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fetch.PollInterval = "soon"
	cfg.Fetch.Encoding = "klingon"
	cfg.Remote.Port = 70000

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote.host")
	assert.Contains(t, err.Error(), "fetch.poll_interval")
	assert.Contains(t, err.Error(), "fetch.encoding")
	assert.Contains(t, err.Error(), "remote.port")
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.toml", "config.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rtail", name)

			cfg := DefaultConfig()
			cfg.Remote.Host = "logs.example.com"
			cfg.Fetch.PollInterval = "3s"
			require.NoError(t, Save(cfg, path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestGetConfigPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/rtail/config.toml", GetConfigPath())
}
