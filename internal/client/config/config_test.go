package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()
	assert.Equal(t, "sitemapkeeper.db", c.DBPath)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, "http://127.0.0.1:8088/", c.ProbeURL)
	assert.Equal(t, int64(5<<20), c.QuotaBytes)
	assert.Equal(t, "v1.0.0", c.AppVersion)
	require.NoError(t, c.Validate())
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected func(c *Config)
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{"-d", "x.db", "-i", "10", "-p", "http://h/", "-u", "ws://h/c", "-q", "100", "-o", "out", "-l", "debug"},
			expected: func(c *Config) {
				c.DBPath, c.OnlineCheckInterval, c.ProbeURL, c.AgentChannelURL = "x.db", 10*time.Second, "http://h/", "ws://h/c"
				c.QuotaBytes, c.ExportDir, c.LogLevel = 100, "out", "debug"
			},
		},
		{
			name:     "unknown flags are ignored",
			args:     []string{"-z", "1", "-d", "y.db"},
			expected: func(c *Config) { c.DBPath = "y.db" },
		},
		{
			name:    "bad interval",
			args:    []string{"-i", "abc"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			want := defaults()
			tt.expected(want)
			assert.Empty(t, cmp.Diff(want, cfg))
		})
	}
}

func TestParseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"db_path":               "json.db",
		"online_check_interval": "1500ms",
		"quota_bytes":           0,
		"log_level":             "warn",
	})

	t.Run("overlays present fields", func(t *testing.T) {
		cfg := defaults()
		require.NoError(t, parseJson(cfg, []string{"-config", path}))
		assert.Equal(t, "json.db", cfg.DBPath)
		assert.Equal(t, 1500*time.Millisecond, cfg.OnlineCheckInterval)
		assert.Equal(t, int64(0), cfg.QuotaBytes)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, "exports", cfg.ExportDir, "absent fields keep defaults")
	})

	t.Run("no flag, no changes", func(t *testing.T) {
		cfg := defaults()
		require.NoError(t, parseJson(cfg, nil))
		assert.Empty(t, cmp.Diff(defaults(), cfg))
	})

	t.Run("invalid JSON", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ nope`), 0o600))
		require.Error(t, parseJson(defaults(), []string{"-c", bad}))
	})

	t.Run("missing file", func(t *testing.T) {
		require.Error(t, parseJson(defaults(), []string{"-c", filepath.Join(t.TempDir(), "none.json")}))
	})
}

func TestParseJson_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"db_path: yaml.db\n"+
			"online_check_interval: 2s\n"+
			"agent_channel_url: ws://127.0.0.1:8088/__agent/channel\n"+
			"quota_bytes: 1024\n"), 0o600))

	cfg := defaults()
	require.NoError(t, parseJson(cfg, []string{"-c", path}))
	assert.Equal(t, "yaml.db", cfg.DBPath)
	assert.Equal(t, 2*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, "ws://127.0.0.1:8088/__agent/channel", cfg.AgentChannelURL)
	assert.Equal(t, int64(1024), cfg.QuotaBytes)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeTempJSON(t, map[string]any{"db_path": "json.db", "export_dir": "json-out"})

	cfg, err := LoadConfig([]string{"-c", path, "-d", "flag.db"})
	require.NoError(t, err)
	assert.Equal(t, "flag.db", cfg.DBPath, "flags beat JSON")
	assert.Equal(t, "json-out", cfg.ExportDir, "JSON beats defaults")
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig([]string{"-l", "loud"})
	require.Error(t, err)

	_, err = LoadConfig([]string{"-i", "0"})
	require.Error(t, err)
}
