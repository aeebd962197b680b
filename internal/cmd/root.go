package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ib-77/shardwire/internal/config"
	"github.com/ib-77/shardwire/internal/logging"
	"github.com/ib-77/shardwire/pkg/shard/unit"
	"github.com/ib-77/shardwire/pkg/shards"
)

var rootCmd = &cobra.Command{
	Use:   "shards",
	Short: "Inspect and run shard units",
	Long: `shards lists the built-in processing units, describes their parameters
and runs a small demonstration mesh on the cooperative scheduler.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/shards/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: "+strings.Join(config.ValidLogLevels(), ", "))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SHARDS")
	// e.g., SHARDS_BRIDGE_WORKERS for bridge.workers
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger opens the log file when a directory is configured and logs to
// stderr otherwise.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	if cfg.Logging.Dir != "" {
		return logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	}
	return logging.NewWriterLogger(os.Stderr, cfg.Logging.Level), nil
}

func newRegistry(cfg *config.Config) (*unit.Registry, error) {
	reg := unit.NewRegistry(cfg.Registry.VersionToken)
	if err := shards.RegisterAll(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
