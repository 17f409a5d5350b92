package model

import (
	"fmt"
	"time"
)

// Config holds the complete evidenceview configuration
type Config struct {
	Source       SourceConfig       `yaml:"source" mapstructure:"source"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	View         ViewConfig         `yaml:"view" mapstructure:"view"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	LinkCheck    LinkCheckConfig    `yaml:"link_check" mapstructure:"link_check"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// SourceConfig configures where evidence lists are fetched from
type SourceConfig struct {
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`   // Evidence API root; empty when using a fixture file
	File         string        `yaml:"file" mapstructure:"file"`           // JSON or YAML fixture keyed by match id
	Token        string        `yaml:"-" mapstructure:"token"`             // Bearer token, env only
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the fetched-evidence cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory, layered, redis
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	RedisAddr string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
}

// ViewConfig holds the static per-instance presenter inputs
type ViewConfig struct {
	ListTitle        string `yaml:"list_title" mapstructure:"list_title"`
	RecordsToDisplay int    `yaml:"records_to_display" mapstructure:"records_to_display"`
	LinesToClamp     int    `yaml:"lines_to_clamp" mapstructure:"lines_to_clamp"` // Text truncation only, never affects data
	NotifyOnRefresh  bool   `yaml:"notify_on_refresh" mapstructure:"notify_on_refresh"`
}

// RateLimitingConfig limits requests per evidence host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig sizes the worker pools
type ConcurrencyConfig struct {
	Workers           int `yaml:"workers" mapstructure:"workers"`
	ValidationWorkers int `yaml:"validation_workers" mapstructure:"validation_workers"`
}

// LinkCheckConfig configures source link probing
type LinkCheckConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Format  string `yaml:"format" mapstructure:"format"` // text, json, markdown
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "evidenceview/0.1 (+https://github.com/ppiankov/evidenceview)",
			MaxBodyBytes: 5_000_000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Backend:   "layered",
			Dir:       ".evidenceview-cache",
			MemoryTTL: 5 * time.Minute,
			DiskTTL:   time.Hour,
		},
		View: ViewConfig{
			ListTitle:        "Evidences",
			RecordsToDisplay: 3,
			LinesToClamp:     3,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers:           4,
			ValidationWorkers: 10,
		},
		LinkCheck: LinkCheckConfig{
			Timeout:       10 * time.Second,
			RespectRobots: true,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Validate checks the configuration for values the presenter cannot accept
func (c *Config) Validate() error {
	if c.View.RecordsToDisplay <= 0 {
		return fmt.Errorf("view.records_to_display must be > 0, got %d", c.View.RecordsToDisplay)
	}
	if c.View.LinesToClamp < 0 {
		return fmt.Errorf("view.lines_to_clamp must be >= 0, got %d", c.View.LinesToClamp)
	}
	switch c.Cache.Backend {
	case "memory", "layered", "redis":
	default:
		return fmt.Errorf("unknown cache backend: %s (supported: memory, layered, redis)", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required for the redis backend")
	}
	switch c.Output.Format {
	case "text", "json", "markdown":
	default:
		return fmt.Errorf("unknown output format: %s (supported: text, json, markdown)", c.Output.Format)
	}
	if c.Source.BaseURL == "" && c.Source.File == "" {
		return fmt.Errorf("no evidence source configured: set source.base_url or source.file")
	}
	return nil
}
