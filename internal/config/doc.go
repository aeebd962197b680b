// Package config loads the runtime configuration through viper.
//
// Defaults are registered with SetDefaults, overridden by the config file
// (ConfigFile, YAML) and by SHARDS_* environment variables, then decoded and
// validated by Load. Watch hot-reloads the file; the host applies the new log
// level to the running logger.
//
//	bridge:
//	  workers: 4
//	  queue_size: 64
//	  discard_detached: true
//	scheduler:
//	  tick_interval_ms: 1
//	logging:
//	  enabled: true
//	  level: info
//	registry:
//	  version_token: "0x20200101"
package config
