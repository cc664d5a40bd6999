// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Source    SourceConfig    `mapstructure:"source"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	DB        DBConfig        `mapstructure:"db"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// SourceConfig identifies the external celebrity database.
type SourceConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Domain      string `mapstructure:"domain"`
	UserAgent   string `mapstructure:"user_agent"`
	LicenseNote string `mapstructure:"license_note"`
}

// RateLimitConfig sets the per-tier minimum request spacing.
type RateLimitConfig struct {
	StaticIntervalSeconds  int `mapstructure:"static_interval_seconds"`
	BrowserIntervalSeconds int `mapstructure:"browser_interval_seconds"`
}

// HTTPConfig configures the static tier's HTTP behavior.
type HTTPConfig struct {
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
	RespectRobots  bool `mapstructure:"respect_robots"`
}

// BrowserConfig configures the browser fallback tier.
type BrowserConfig struct {
	Enabled            bool `mapstructure:"enabled"`
	NavTimeoutSeconds  int  `mapstructure:"nav_timeout_seconds"`
	SettleDelaySeconds int  `mapstructure:"settle_delay_seconds"`
	ShowBrowser        bool `mapstructure:"show_browser"`
}

// DBConfig controls access to the provenance store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ArchiveConfig selects the raw-page archive backend.
type ArchiveConfig struct {
	// Backend is "", "local", "memory" or "gcs". Empty disables archiving.
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PubSubConfig holds metadata for run-summary notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// PipelineConfig bounds run-level behavior.
type PipelineConfig struct {
	MaxListingPages int `mapstructure:"max_listing_pages"`
}

// ServerConfig controls the HTTP surface of the serve command.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
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
	v.SetDefault("source.base_url", "https://sociotype.xyz/e")
	v.SetDefault("source.domain", "sociotype.xyz")
	v.SetDefault("source.user_agent",
		"Mozilla/5.0 (compatible; SocionicsResearch/0.1; +https://github.com/jmbvcxd/socionics-harvester)")
	v.SetDefault("source.license_note", "Public database - educational use")
	v.SetDefault("ratelimit.static_interval_seconds", 1)
	v.SetDefault("ratelimit.browser_interval_seconds", 2)
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.respect_robots", true)
	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.nav_timeout_seconds", 30)
	v.SetDefault("browser.settle_delay_seconds", 2)
	v.SetDefault("browser.show_browser", false)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("pipeline.max_listing_pages", 25)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if c.Source.Domain == "" {
		return fmt.Errorf("source.domain is required")
	}
	if c.RateLimit.StaticIntervalSeconds < 0 || c.RateLimit.BrowserIntervalSeconds < 0 {
		return fmt.Errorf("ratelimit intervals must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Browser.Enabled && c.Browser.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0 when the browser tier is enabled")
	}
	switch c.Archive.Backend {
	case "", "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir is required for the local backend")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown archive.backend %q", c.Archive.Backend)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// Timeout returns the static tier's request timeout.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NavTimeout returns the browser navigation timeout.
func (c BrowserConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSeconds) * time.Second
}

// SettleDelay returns the post-navigation settle delay.
func (c BrowserConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelaySeconds) * time.Second
}

// StaticInterval returns the static tier's minimum request spacing.
func (c Config) StaticInterval() time.Duration {
	return time.Duration(c.RateLimit.StaticIntervalSeconds) * time.Second
}

// BrowserInterval returns the browser tier's minimum request spacing.
func (c Config) BrowserInterval() time.Duration {
	return time.Duration(c.RateLimit.BrowserIntervalSeconds) * time.Second
}
