// Package config loads runtime configuration for the caching agent.
//
// Precedence is the same as the CLI's: built-in defaults, then the JSON or
// YAML file named by -c/-config, then flags (-a listen address, -r origin, -d database,
// -v version, -l log level). The shell manifest, scope, root document,
// fetch timeout and install retry interval are file-only:
//
//	{
//	  "listen_addr": "127.0.0.1:8088",
//	  "origin": "https://akshat-881236.github.io",
//	  "scope": "/SitemapGeneratorXml/",
//	  "db_path": "agent-cache.db",
//	  "version": "v1.0.0",
//	  "manifest": ["./", "/SitemapGeneratorXml/index.htm"],
//	  "root_document": "/SitemapGeneratorXml/index.htm",
//	  "fetch_timeout": "15s",
//	  "install_retry": "30s",
//	  "log_level": "info"
//	}
package config

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/dmitrijs2005/sitemapkeeper/internal/flagx"
	"github.com/dmitrijs2005/sitemapkeeper/internal/timex"
	"github.com/go-playground/validator/v10"
)

// DefaultManifest is the application shell cached at install time.
var DefaultManifest = []string{
	"./",
	"/SitemapGeneratorXml/index.htm",
	"/SitemapGeneratorXml/index.css",
	"/SitemapGeneratorXml/index.js",
	"/SitemapGeneratorXml/manifest.json",
	"/SitemapGeneratorXml/seo.js",
	"/SitemapGeneratorXml/pwa.js",
	"/SitemapGeneratorXml/README.md",
	"/SitemapGeneratorXml/LICENSE",
	"/SitemapGeneratorXml/AccountSetUp.htm",
	"/SitemapGeneratorXml/Assets/icon-192.png",
	"/SitemapGeneratorXml/Assets/icon-72.png",
	"/SitemapGeneratorXml/Assets/icon-96.png",
	"/SitemapGeneratorXml/Assets/icon-128.png",
	"/SitemapGeneratorXml/Assets/icon-144.png",
	"/SitemapGeneratorXml/Assets/icon-256.png",
	"/SitemapGeneratorXml/Assets/icon-384.png",
	"/SitemapGeneratorXml/Assets/icon-512.png",
	"https://cdn.jsdelivr.net/npm/bootstrap-icons/font/bootstrap-icons.css",
	"https://cdn.jsdelivr.net/npm/jszip@3.10.1/dist/jszip.min.js",
	"https://cdn.jsdelivr.net/npm/jspdf@2.5.1/dist/jspdf.umd.min.js",
}

// Config holds runtime settings for the agent.
type Config struct {
	ListenAddr   string        `validate:"required,hostname_port"`
	Origin       string        `validate:"required,url"`
	Scope        string        `validate:"required"`
	DBPath       string        `validate:"required"`
	Version      string        `validate:"required"`
	Manifest     []string      `validate:"required,min=1,dive,required"`
	RootDocument string        `validate:"required"`
	FetchTimeout time.Duration `validate:"gt=0"`
	InstallRetry time.Duration `validate:"gt=0"`
	LogLevel     string        `validate:"oneof=debug info warn error"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ListenAddr = "127.0.0.1:8088"
	c.Origin = "https://akshat-881236.github.io"
	c.Scope = "/SitemapGeneratorXml/"
	c.DBPath = "agent-cache.db"
	c.Version = "v1.0.0"
	c.Manifest = append([]string(nil), DefaultManifest...)
	c.RootDocument = "/SitemapGeneratorXml/index.htm"
	c.FetchTimeout = 15 * time.Second
	c.InstallRetry = 30 * time.Second
	c.LogLevel = "info"
}

// OriginURL parses Origin.
func (c *Config) OriginURL() (*url.URL, error) {
	return url.Parse(c.Origin)
}

// ScopeURL is Scope resolved against Origin.
func (c *Config) ScopeURL() (*url.URL, error) {
	origin, err := c.OriginURL()
	if err != nil {
		return nil, err
	}
	return origin.Parse(c.Scope)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig builds a Config from args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// JsonConfig is a DTO used exclusively for config file unmarshalling.
type JsonConfig struct {
	ListenAddr   string         `json:"listen_addr" yaml:"listen_addr"`
	Origin       string         `json:"origin" yaml:"origin"`
	Scope        string         `json:"scope" yaml:"scope"`
	DBPath       string         `json:"db_path" yaml:"db_path"`
	Version      string         `json:"version" yaml:"version"`
	Manifest     []string       `json:"manifest" yaml:"manifest"`
	RootDocument string         `json:"root_document" yaml:"root_document"`
	FetchTimeout timex.Duration `json:"fetch_timeout" yaml:"fetch_timeout"`
	InstallRetry timex.Duration `json:"install_retry" yaml:"install_retry"`
	LogLevel     string         `json:"log_level" yaml:"log_level"`
}

func parseJson(cfg *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}
	var jc JsonConfig
	if err := flagx.DecodeConfigFile(path, &jc); err != nil {
		return err
	}

	for dst, v := range map[*string]string{
		&cfg.ListenAddr:   jc.ListenAddr,
		&cfg.Origin:       jc.Origin,
		&cfg.Scope:        jc.Scope,
		&cfg.DBPath:       jc.DBPath,
		&cfg.Version:      jc.Version,
		&cfg.RootDocument: jc.RootDocument,
		&cfg.LogLevel:     jc.LogLevel,
	} {
		if v != "" {
			*dst = v
		}
	}
	if jc.Manifest != nil {
		cfg.Manifest = jc.Manifest
	}
	if jc.FetchTimeout.Duration > 0 {
		cfg.FetchTimeout = jc.FetchTimeout.Duration
	}
	if jc.InstallRetry.Duration > 0 {
		cfg.InstallRetry = jc.InstallRetry.Duration
	}
	return nil
}

func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ListenAddr, "a", cfg.ListenAddr, "listen address")
	fs.StringVar(&cfg.Origin, "r", cfg.Origin, "origin the agent serves")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "path of the cache database")
	fs.StringVar(&cfg.Version, "v", cfg.Version, "agent version tag")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, []string{"-a", "-r", "-d", "-v", "-l"})); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
