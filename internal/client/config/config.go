package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds runtime settings for the sitemapkeeper CLI.
type Config struct {
	DBPath              string        `validate:"required"`
	OnlineCheckInterval time.Duration `validate:"gt=0"`
	ProbeURL            string        `validate:"required,url"`
	AgentChannelURL     string        `validate:"omitempty,url"`
	QuotaBytes          int64         `validate:"gte=0"`
	ExportDir           string        `validate:"required"`
	LogLevel            string        `validate:"oneof=debug info warn error"`
	AppVersion          string        `validate:"required"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DBPath = "sitemapkeeper.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.ProbeURL = "http://127.0.0.1:8088/"
	c.AgentChannelURL = ""
	c.QuotaBytes = 5 << 20
	c.ExportDir = "exports"
	c.LogLevel = "info"
	c.AppVersion = "v1.0.0"
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoadConfig constructs a Config from args (usually os.Args[1:]): defaults,
// then JSON (if -c/-config is given), then flags. Later sources take
// precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
