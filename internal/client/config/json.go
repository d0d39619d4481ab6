package config

import (
	"github.com/dmitrijs2005/sitemapkeeper/internal/flagx"
	"github.com/dmitrijs2005/sitemapkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for config file unmarshalling.
type JsonConfig struct {
	DBPath              string         `json:"db_path" yaml:"db_path"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	ProbeURL            string         `json:"probe_url" yaml:"probe_url"`
	AgentChannelURL     string         `json:"agent_channel_url" yaml:"agent_channel_url"`
	QuotaBytes          *int64         `json:"quota_bytes" yaml:"quota_bytes"`
	ExportDir           string         `json:"export_dir" yaml:"export_dir"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`
	AppVersion          string         `json:"app_version" yaml:"app_version"`
}

// parseJson overlays cfg with the JSON or YAML file named by -c/-config in
// args. Without such a flag it does nothing.
func parseJson(cfg *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	var jc JsonConfig
	if err := flagx.DecodeConfigFile(path, &jc); err != nil {
		return err
	}

	setString(&cfg.DBPath, jc.DBPath)
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	setString(&cfg.ProbeURL, jc.ProbeURL)
	setString(&cfg.AgentChannelURL, jc.AgentChannelURL)
	if jc.QuotaBytes != nil {
		cfg.QuotaBytes = *jc.QuotaBytes
	}
	setString(&cfg.ExportDir, jc.ExportDir)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.AppVersion, jc.AppVersion)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
