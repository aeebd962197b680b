package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/shardwire/pkg/shard/core"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, 4, cfg.Bridge.Workers)
	assert.Equal(t, 64, cfg.Bridge.QueueSize)
	assert.True(t, cfg.Bridge.DiscardDetached)
	assert.Equal(t, time.Millisecond, cfg.Scheduler.TickInterval())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "0x20200101", cfg.Registry.VersionToken)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bridge:\n  workers: 2\nlogging:\n  level: debug\n"), 0644))

	SetDefaults()
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Bridge.Workers)
	assert.Equal(t, 64, cfg.Bridge.QueueSize, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_ReportsAllValidationErrors(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	SetDefaults()
	viper.Set("bridge.workers", 0)
	viper.Set("scheduler.tick_interval_ms", -5)
	viper.Set("logging.level", "chatty")

	_, err := Load()
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 3)
	assert.Equal(t, "bridge.workers", verrs[0].Field)
	assert.Equal(t, "scheduler.tick_interval_ms", verrs[1].Field)
	assert.Equal(t, "logging.level", verrs[2].Field)
	assert.Contains(t, err.Error(), "3 validation errors")

	assert.Equal(t, Default(), Get(), "Get falls back to defaults")
}

func TestConfig_Context(t *testing.T) {
	cfg := Default()
	cfg.Bridge.Workers = 3
	cfg.Bridge.DiscardDetached = false
	cfg.Scheduler.TickIntervalMs = 7

	ctx := cfg.Context(context.Background())
	assert.Equal(t, 3, core.GetWorkerMaxCount(ctx, 1))
	assert.Equal(t, 64, core.GetWorkerQueueSize(ctx, 1))
	assert.False(t, core.IsDiscardOnDetachEnabled(ctx, true))
	assert.Equal(t, 7*time.Millisecond, core.GetTickInterval(ctx, time.Second))
}

func TestConfigDir(t *testing.T) {
	t.Run("uses XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		assert.Equal(t, filepath.Join("/tmp/xdg", "shards"), ConfigDir())
		assert.Equal(t, filepath.Join("/tmp/xdg", "shards", "config.yaml"), ConfigFile())
	})

	t.Run("falls back to home", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, err := os.UserHomeDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "shards"), ConfigDir())
	})
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644))
	SetDefaults()
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	levels := make(chan string, 4)
	Watch(func(cfg *Config) { levels <- cfg.Logging.Level }, nil)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0644))
	select {
	case level := <-levels:
		assert.Equal(t, "warn", level)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}
