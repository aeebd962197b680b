package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/ib-77/shardwire/pkg/shard/core"
)

// Config represents the complete runtime configuration
type Config struct {
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Registry  RegistryConfig  `mapstructure:"registry"`
}

// BridgeConfig controls the blocking bridge worker lines
type BridgeConfig struct {
	// Workers is the number of goroutines running blocking closures (default: 4)
	Workers int `mapstructure:"workers"`
	// QueueSize bounds the number of closures waiting for a worker (default: 64)
	QueueSize int `mapstructure:"queue_size"`
	// DiscardDetached releases the results of detached closures as soon as
	// they arrive (default: true)
	DiscardDetached bool `mapstructure:"discard_detached"`
}

// SchedulerConfig controls mesh pacing
type SchedulerConfig struct {
	// TickIntervalMs is the pause between scheduling passes when no wire
	// woke the mesh earlier (default: 1)
	TickIntervalMs int `mapstructure:"tick_interval_ms"`
}

// LoggingConfig controls debug logging
type LoggingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is where shards.log is written; empty means stderr
	Dir string `mapstructure:"dir"`
}

// RegistryConfig controls unit registration
type RegistryConfig struct {
	// VersionToken is mixed into every unit hash (default: "0x20200101")
	VersionToken string `mapstructure:"version_token"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Workers:         4,
			QueueSize:       64,
			DiscardDetached: true,
		},
		Scheduler: SchedulerConfig{
			TickIntervalMs: 1,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		Registry: RegistryConfig{
			VersionToken: "0x20200101",
		},
	}
}

// TickInterval returns the scheduler pacing as a duration
func (c *SchedulerConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// Context returns ctx carrying the bridge and scheduler options, in the form
// read by the bridge and mesh constructors.
func (c *Config) Context(ctx context.Context) context.Context {
	ctx = core.WithWorkerOptions(ctx, c.Bridge.Workers, c.Bridge.QueueSize)
	ctx = core.WithDetachOptions(ctx, c.Bridge.DiscardDetached)
	return core.WithSchedulerOptions(ctx, c.Scheduler.TickInterval())
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Bridge defaults
	viper.SetDefault("bridge.workers", defaults.Bridge.Workers)
	viper.SetDefault("bridge.queue_size", defaults.Bridge.QueueSize)
	viper.SetDefault("bridge.discard_detached", defaults.Bridge.DiscardDetached)

	// Scheduler defaults
	viper.SetDefault("scheduler.tick_interval_ms", defaults.Scheduler.TickIntervalMs)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	// Registry defaults
	viper.SetDefault("registry.version_token", defaults.Registry.VersionToken)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Watch calls fn with the reloaded configuration every time the config file
// changes. Invalid edits are reported to onError and otherwise ignored.
func Watch(fn func(*Config), onError func(error)) {
	viper.OnConfigChange(func(fsnotify.Event) {
		cfg, err := Load()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		fn(cfg)
	})
	viper.WatchConfig()
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "shards")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shards"
	}
	return filepath.Join(home, ".config", "shards")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
