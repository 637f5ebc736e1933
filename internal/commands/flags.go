package commands

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/TimelordUK/rtail/internal/config"
	"github.com/TimelordUK/rtail/pkg/logutils"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string

	// Connection overrides; zero values leave the config alone
	Host         string
	Port         int
	User         string
	Identity     string
	Local        bool
	Encoding     string
	PollInterval string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Logger is built in the Before hook
	Logger zerolog.Logger
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return config.GetConfigPath()
}

// Overlay copies the flags that were given onto cfg.
func (f *Flags) Overlay(cfg *config.Config) {
	if f.Host != "" {
		cfg.Remote.Host = f.Host
	}
	if f.Port != 0 {
		cfg.Remote.Port = f.Port
	}
	if f.User != "" {
		cfg.Remote.User = f.User
	}
	if f.Identity != "" {
		cfg.Remote.IdentityFile = f.Identity
	}
	if f.Local {
		cfg.Remote.Local = true
	}
	if f.Encoding != "" {
		cfg.Fetch.Encoding = f.Encoding
	}
	if f.PollInterval != "" {
		cfg.Fetch.PollInterval = f.PollInterval
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
}

// Setup loads the config, applies the flag overrides, validates the result
// and builds the logger. The returned func closes the log file.
func (f *Flags) Setup() (func(), error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	f.Overlay(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, closer, err := logutils.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	f.Config = cfg
	f.Logger = logger
	return closer, nil
}
