// Package config loads runtime configuration for the sitemapkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML (.yaml/.yml) file selected via flags: -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-d string   path of the SQLite database holding the store
//	-i int      online status check interval (seconds)
//	-p string   URL probed to decide whether the client is online
//	-u string   websocket URL of the caching agent's update channel ("" disables it)
//	-q int      storage quota in bytes (0 = unlimited)
//	-o string   directory exports and backups are written to
//	-l string   log level: debug, info, warn or error
//
// # JSON schema
//
// Intervals use timex.Duration, so they may be strings like "3s" or integer
// nanoseconds. Absent or empty fields keep their earlier value:
//
//	{
//	  "db_path": "sitemapkeeper.db",
//	  "online_check_interval": "3s",
//	  "probe_url": "http://127.0.0.1:8088/",
//	  "agent_channel_url": "ws://127.0.0.1:8088/__agent/channel",
//	  "quota_bytes": 5242880,
//	  "export_dir": "exports",
//	  "log_level": "info",
//	  "app_version": "v1.0.0"
//	}
//
// The assembled Config is validated before it is returned.
package config
