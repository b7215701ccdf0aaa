package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 3, cfg.Browser.PoolSize)
	require.True(t, cfg.Browser.Headless)
	require.Equal(t, 30*time.Second, cfg.Browser.PageLoadTimeout())
	require.Equal(t, 25*time.Second, cfg.Browser.ContentTimeout())
	require.Equal(t, "memory", cfg.Cache.Provider)
	require.Equal(t, 24*time.Hour, cfg.Cache.TTL())
	require.Equal(t, 1000, cfg.Cache.MaxEntries)
	require.Equal(t, "noop", cfg.Receipts.Provider)
	require.Equal(t, "noop", cfg.Publisher.Provider)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	payload := []byte(`
server:
  port: 9090
browser:
  pool_size: 5
  headless: false
cache:
  provider: redis
  redis_addr: localhost:6379
  ttl_hours: 1
`)
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 5, cfg.Browser.PoolSize)
	require.False(t, cfg.Browser.Headless)
	require.Equal(t, "redis", cfg.Cache.Provider)
	require.Equal(t, time.Hour, cfg.Cache.TTL())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NFCE_BROWSER_POOL_SIZE", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Browser.PoolSize)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero pool", func(c *Config) { c.Browser.PoolSize = 0 }},
		{"auth without key", func(c *Config) { c.Auth.Enabled = true; c.Auth.APIKey = "" }},
		{"unknown cache provider", func(c *Config) { c.Cache.Provider = "memcached" }},
		{"redis without addr", func(c *Config) { c.Cache.Provider = "redis"; c.Cache.RedisAddr = "" }},
		{"postgres without dsn", func(c *Config) { c.Receipts.Provider = "postgres"; c.Receipts.DSN = "" }},
		{"gcs without bucket", func(c *Config) { c.Snapshots.Provider = "gcs"; c.Snapshots.GCSBucket = "" }},
		{"pubsub without topic", func(c *Config) { c.Publisher.Provider = "pubsub"; c.Publisher.ProjectID = "p" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func valid() Config {
	return Config{
		Server:  ServerConfig{Port: 8080, RequestTimeoutSec: 90, ShutdownTimeoutSec: 10},
		Browser: BrowserConfig{PoolSize: 3, PageLoadTimeoutMs: 30000, ContentTimeoutMs: 25000},
		Cache:   CacheConfig{Provider: "memory", TTLHours: 24, MaxEntries: 1000},
		Receipts: ReceiptsConfig{
			Provider: "noop",
		},
		Snapshots: SnapshotsConfig{Provider: "noop"},
		Publisher: PublisherConfig{Provider: "noop"},
	}
}
