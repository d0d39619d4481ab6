package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/sitemapkeeper/internal/flagx"
)

var knownFlags = []string{"-d", "-i", "-p", "-u", "-q", "-o", "-l"}

// parseFlags populates Config fields from command-line flags. Arguments
// other than the known flags are filtered out with flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("sitemapkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "path of the SQLite database")
	interval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.ProbeURL, "p", cfg.ProbeURL, "URL probed for connectivity")
	fs.StringVar(&cfg.AgentChannelURL, "u", cfg.AgentChannelURL, "update channel websocket URL")
	fs.Int64Var(&cfg.QuotaBytes, "q", cfg.QuotaBytes, "storage quota in bytes")
	fs.StringVar(&cfg.ExportDir, "o", cfg.ExportDir, "export directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// only an explicit -i overrides, so sub-second JSON intervals survive
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.OnlineCheckInterval = time.Duration(*interval) * time.Second
		}
	})
	return nil
}
