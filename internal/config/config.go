package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/TimelordUK/rtail/internal/remote"
)

// Config holds all application configuration
type Config struct {
	Remote RemoteConfig `toml:"remote" yaml:"remote"`
	Fetch  FetchConfig  `toml:"fetch" yaml:"fetch"`
	Log    LogConfig    `toml:"log" yaml:"log"`
}

// RemoteConfig describes the host files are read from
type RemoteConfig struct {
	Host                  string `toml:"host" yaml:"host"`
	Port                  int    `toml:"port" yaml:"port"`
	User                  string `toml:"user" yaml:"user"`
	Password              string `toml:"password,omitempty" yaml:"password,omitempty"`
	IdentityFile          string `toml:"identity_file" yaml:"identity_file"`
	KnownHosts            string `toml:"known_hosts" yaml:"known_hosts"`
	InsecureIgnoreHostKey bool   `toml:"insecure_ignore_host_key" yaml:"insecure_ignore_host_key"`
	ConnectTimeout        string `toml:"connect_timeout" yaml:"connect_timeout"`
	// Local runs commands on this machine instead of over SSH
	Local bool   `toml:"local" yaml:"local"`
	Shell string `toml:"shell" yaml:"shell"`
}

// FetchConfig tunes how lines are fetched
type FetchConfig struct {
	PollInterval  string `toml:"poll_interval" yaml:"poll_interval"`
	Encoding      string `toml:"encoding" yaml:"encoding"`
	ExportTimeout string `toml:"export_timeout" yaml:"export_timeout"`
}

// LogConfig holds logging options
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	File  string `toml:"file" yaml:"file"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	knownHosts := ""
	if home != "" {
		knownHosts = filepath.Join(home, ".ssh", "known_hosts")
	}

	return &Config{
		Remote: RemoteConfig{
			Port:           22,
			User:           os.Getenv("USER"),
			KnownHosts:     knownHosts,
			ConnectTimeout: "15s",
			Shell:          "sh",
		},
		Fetch: FetchConfig{
			PollInterval:  "2s",
			Encoding:      remote.DefaultEncoding,
			ExportTimeout: "1m",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// PollInterval parses the fetch poll interval
func (c *Config) PollInterval() (time.Duration, error) {
	return parseDuration("fetch.poll_interval", c.Fetch.PollInterval)
}

// ExportTimeout parses the export timeout
func (c *Config) ExportTimeout() (time.Duration, error) {
	return parseDuration("fetch.export_timeout", c.Fetch.ExportTimeout)
}

// ConnectTimeout parses the SSH connect timeout
func (c *Config) ConnectTimeout() (time.Duration, error) {
	return parseDuration("remote.connect_timeout", c.Remote.ConnectTimeout)
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", field, value)
	}
	return d, nil
}

// Validate checks the config is usable
func (c *Config) Validate() error {
	var errs []error

	if !c.Remote.Local && c.Remote.Host == "" {
		errs = append(errs, errors.New("remote.host is required unless remote.local is set"))
	}
	if c.Remote.Port < 0 || c.Remote.Port > 65535 {
		errs = append(errs, fmt.Errorf("remote.port: out of range: %d", c.Remote.Port))
	}
	if _, err := c.PollInterval(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ExportTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ConnectTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := remote.NewDecoder(c.Fetch.Encoding); err != nil {
		errs = append(errs, fmt.Errorf("fetch.encoding: %w", err))
	}

	return errors.Join(errs...)
}

// Load loads config from path, falling back to defaults when the file does
// not exist. An empty path means the default location.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = getConfigPath()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save saves config to path, or the default location when path is empty
func Save(cfg *Config, path string) error {
	if path == "" {
		path = getConfigPath()
	}
	if path == "" {
		return nil
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = toml.Marshal(cfg)
	}
	if err != nil {
		return err
	}

	// May hold a password
	return os.WriteFile(path, data, 0o600)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// getConfigPath returns the config file path
func getConfigPath() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rtail", "config.toml")
	}

	// Fall back to ~/.config
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", "rtail", "config.toml")
}

// GetConfigPath exports the config path for user reference
func GetConfigPath() string {
	return getConfigPath()
}
