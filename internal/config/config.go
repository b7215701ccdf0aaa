// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Receipts  ReceiptsConfig  `mapstructure:"receipts"`
	Snapshots SnapshotsConfig `mapstructure:"snapshots"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port               int `mapstructure:"port"`
	RequestTimeoutSec  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSec int `mapstructure:"shutdown_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// BrowserConfig governs the headless session pool and page timing.
type BrowserConfig struct {
	PoolSize          int    `mapstructure:"pool_size"`
	Headless          bool   `mapstructure:"headless"`
	UserAgent         string `mapstructure:"user_agent"`
	AcquireTimeoutMs  int    `mapstructure:"acquire_timeout_ms"`
	PageLoadTimeoutMs int    `mapstructure:"page_load_timeout_ms"`
	ContentTimeoutMs  int    `mapstructure:"content_timeout_ms"`
}

// CacheConfig selects and sizes the result cache.
type CacheConfig struct {
	Provider   string `mapstructure:"provider"`
	TTLHours   int    `mapstructure:"ttl_hours"`
	MaxEntries int    `mapstructure:"max_entries"`
	RedisAddr  string `mapstructure:"redis_addr"`
	RedisDB    int    `mapstructure:"redis_db"`
	RedisKey   string `mapstructure:"redis_key_prefix"`
}

// ReceiptsConfig selects the receipt archive backend.
type ReceiptsConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
}

// SnapshotsConfig selects where failure-diagnostic page bodies go.
type SnapshotsConfig struct {
	Provider  string `mapstructure:"provider"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PublisherConfig holds metadata for downstream receipt publication.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NFCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 90)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("browser.pool_size", 3)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("browser.acquire_timeout_ms", 30000)
	v.SetDefault("browser.page_load_timeout_ms", 30000)
	v.SetDefault("browser.content_timeout_ms", 25000)
	v.SetDefault("cache.provider", "memory")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.redis_key_prefix", "nfce")
	v.SetDefault("receipts.provider", "noop")
	v.SetDefault("receipts.table", "receipts")
	v.SetDefault("snapshots.provider", "noop")
	v.SetDefault("snapshots.prefix", "snapshots")
	v.SetDefault("publisher.provider", "noop")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Browser.PoolSize <= 0 {
		return fmt.Errorf("browser.pool_size must be > 0")
	}
	if c.Browser.PageLoadTimeoutMs <= 0 || c.Browser.ContentTimeoutMs <= 0 {
		return fmt.Errorf("browser timeouts must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Cache.Provider {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr must be set when cache.provider is redis")
		}
	default:
		return fmt.Errorf("cache.provider must be memory or redis, got %q", c.Cache.Provider)
	}
	if c.Cache.TTLHours <= 0 || c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.ttl_hours and cache.max_entries must be > 0")
	}
	switch c.Receipts.Provider {
	case "noop", "memory":
	case "postgres":
		if c.Receipts.DSN == "" {
			return fmt.Errorf("receipts.dsn must be set when receipts.provider is postgres")
		}
	default:
		return fmt.Errorf("receipts.provider must be noop, memory, or postgres, got %q", c.Receipts.Provider)
	}
	switch c.Snapshots.Provider {
	case "noop":
	case "local":
		if c.Snapshots.Dir == "" {
			return fmt.Errorf("snapshots.dir must be set when snapshots.provider is local")
		}
	case "gcs":
		if c.Snapshots.GCSBucket == "" {
			return fmt.Errorf("snapshots.gcs_bucket must be set when snapshots.provider is gcs")
		}
	default:
		return fmt.Errorf("snapshots.provider must be noop, local, or gcs, got %q", c.Snapshots.Provider)
	}
	switch c.Publisher.Provider {
	case "noop", "memory":
	case "pubsub":
		if c.Publisher.ProjectID == "" || c.Publisher.TopicName == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic_name must be set when publisher.provider is pubsub")
		}
	default:
		return fmt.Errorf("publisher.provider must be noop, memory, or pubsub, got %q", c.Publisher.Provider)
	}
	return nil
}

// AcquireTimeout is how long a request waits for an idle browser session.
func (c BrowserConfig) AcquireTimeout() time.Duration {
	return time.Duration(c.AcquireTimeoutMs) * time.Millisecond
}

// PageLoadTimeout bounds navigation commit.
func (c BrowserConfig) PageLoadTimeout() time.Duration {
	return time.Duration(c.PageLoadTimeoutMs) * time.Millisecond
}

// ContentTimeout bounds the wait for the receipt content to attach.
func (c BrowserConfig) ContentTimeout() time.Duration {
	return time.Duration(c.ContentTimeoutMs) * time.Millisecond
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// RequestTimeout bounds each inbound HTTP request.
func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// ShutdownTimeout bounds graceful server shutdown.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}
