package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Global settings
	Format  string `mapstructure:"format"`
	Quiet   bool   `mapstructure:"quiet"`
	Verbose bool   `mapstructure:"verbose"`

	Server      ServerConfig      `mapstructure:"server"`
	Environment EnvironmentConfig `mapstructure:"environment"`
	Debug       DebugConfig       `mapstructure:"debug"`
	Heartbeat   HeartbeatConfig   `mapstructure:"heartbeat"`
	Workspace   WorkspaceConfig   `mapstructure:"workspace"`
}

// ServerConfig controls how the analysis server process is launched.
type ServerConfig struct {
	// Extra arguments appended after the protocol arguments
	Command       []string      `mapstructure:"command"`
	SettleTimeout time.Duration `mapstructure:"settle_timeout"`
}

// EnvironmentConfig controls runtime discovery and the version gate.
type EnvironmentConfig struct {
	Override       string   `mapstructure:"override"`
	MinimumVersion string   `mapstructure:"minimum_version"`
	Candidates     []string `mapstructure:"candidates"`
	WatchPath      string   `mapstructure:"watch_path"`
}

// DebugConfig controls the optional debug channel.
type DebugConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

// HeartbeatConfig controls the liveness watchdog.
type HeartbeatConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// WorkspaceConfig controls the first-document start trigger.
type WorkspaceConfig struct {
	Root          string   `mapstructure:"root"`
	DocumentGlobs []string `mapstructure:"document_globs"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format:  "ndjson",
		Quiet:   false,
		Verbose: false,
		Server: ServerConfig{
			SettleTimeout: 10 * time.Second,
		},
		Environment: EnvironmentConfig{
			MinimumVersion: "3.7.9",
			Candidates:     []string{"python3", "python"},
		},
		Debug: DebugConfig{
			SettleDelay: 2 * time.Second,
		},
		Heartbeat: HeartbeatConfig{
			Interval: 30 * time.Second,
		},
		Workspace: WorkspaceConfig{
			Root:          ".",
			DocumentGlobs: []string{"*.codex", "*.ipynb"},
		},
	}
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetConfigName("ansup")
	v.SetConfigType("yaml")

	// Config paths in order of precedence, lowest first
	v.AddConfigPath("/etc/ansup/")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "ansup"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".ansup")
	}
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("ANSUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.BindEnv("format", "ANSUP_FORMAT")
	v.BindEnv("quiet", "ANSUP_QUIET")
	v.BindEnv("verbose", "ANSUP_VERBOSE")
	v.BindEnv("environment.override", "ANSUP_ENVIRONMENT_OVERRIDE")
	v.BindEnv("environment.minimum_version", "ANSUP_MINIMUM_VERSION")

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	cfg := Default()
	v.SetDefault("format", cfg.Format)
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("server.settle_timeout", cfg.Server.SettleTimeout)
	v.SetDefault("environment.minimum_version", cfg.Environment.MinimumVersion)
	v.SetDefault("environment.candidates", cfg.Environment.Candidates)
	v.SetDefault("debug.settle_delay", cfg.Debug.SettleDelay)
	v.SetDefault("heartbeat.interval", cfg.Heartbeat.Interval)
	v.SetDefault("workspace.root", cfg.Workspace.Root)
	v.SetDefault("workspace.document_globs", cfg.Workspace.DocumentGlobs)
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	cfg, _, err := loadViper()
	return cfg, err
}

func loadViper() (*Config, *viper.Viper, error) {
	v := newViper()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, err
		}
		// Config file not found; use defaults
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, err
	}

	return cfg, v, nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
