// Package config handles configuration loading for filingwatch.
// It supports YAML config files, an optional .env file, and environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "FILINGWATCH"

// Config represents the complete application configuration.
type Config struct {
	Edgar   EdgarConfig   `mapstructure:"edgar"   yaml:"edgar"   json:"edgar"`
	Cache   CacheConfig   `mapstructure:"cache"   yaml:"cache"   json:"cache"`
	Stream  StreamConfig  `mapstructure:"stream"  yaml:"stream"  json:"stream"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"     json:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
}

// EdgarConfig holds upstream access settings.
type EdgarConfig struct {
	UserAgent      string `mapstructure:"user_agent"       yaml:"user_agent"       json:"user_agent"` // "Company Name admin@example.com"
	TickersURL     string `mapstructure:"tickers_url"      yaml:"tickers_url"      json:"tickers_url"`
	SubmissionsURL string `mapstructure:"submissions_url"  yaml:"submissions_url"  json:"submissions_url"`
	ArchivesURL    string `mapstructure:"archives_url"     yaml:"archives_url"     json:"archives_url"`
	FeedURL        string `mapstructure:"feed_url"         yaml:"feed_url"         json:"feed_url"`
	RateLimit      int    `mapstructure:"rate_limit"       yaml:"rate_limit"       json:"rate_limit"` // requests per second
	MaxRetries     int    `mapstructure:"max_retries"      yaml:"max_retries"      json:"max_retries"`
	BaseDelayMs    int    `mapstructure:"base_delay_ms"    yaml:"base_delay_ms"    json:"base_delay_ms"`
	JitterMs       int    `mapstructure:"jitter_ms"        yaml:"jitter_ms"        json:"jitter_ms"`
	HTTPTimeoutSec int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec" json:"http_timeout_sec"`
}

// CacheConfig holds freshness bounds, all in seconds.
type CacheConfig struct {
	SnapshotTTLSec int `mapstructure:"snapshot_ttl_sec" yaml:"snapshot_ttl_sec" json:"snapshot_ttl_sec"`
	StreamTTLSec   int `mapstructure:"stream_ttl_sec"   yaml:"stream_ttl_sec"   json:"stream_ttl_sec"`
	DocumentTTLSec int `mapstructure:"document_ttl_sec" yaml:"document_ttl_sec" json:"document_ttl_sec"`
}

// StreamConfig holds change-stream limits.
type StreamConfig struct {
	MinIntervalSec     int `mapstructure:"min_interval_sec"     yaml:"min_interval_sec"     json:"min_interval_sec"`
	MaxIntervalSec     int `mapstructure:"max_interval_sec"     yaml:"max_interval_sec"     json:"max_interval_sec"`
	DefaultIntervalSec int `mapstructure:"default_interval_sec" yaml:"default_interval_sec" json:"default_interval_sec"`
	DefaultMaxEvents   int `mapstructure:"default_max_events"   yaml:"default_max_events"   json:"default_max_events"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"         json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.filingwatch/config.yaml (home directory)
//  3. /etc/filingwatch/config.yaml (system)
//
// A .env file in the working directory is loaded first when present.
// Environment variables override config file values.
// Format: FILINGWATCH_<SECTION>_<KEY>, e.g., FILINGWATCH_EDGAR_USER_AGENT
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".filingwatch"))
	v.AddConfigPath("/etc/filingwatch")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// Defaults returns the built-in configuration, ignoring config files and
// the environment.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return &cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs from path without overriding variables
// already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// EDGAR defaults
	v.SetDefault("edgar.user_agent", "")
	v.SetDefault("edgar.tickers_url", "https://www.sec.gov/files/company_tickers.json")
	v.SetDefault("edgar.submissions_url", "https://data.sec.gov/submissions")
	v.SetDefault("edgar.archives_url", "https://www.sec.gov/Archives/edgar/data")
	v.SetDefault("edgar.feed_url", "https://www.sec.gov/cgi-bin/browse-edgar")
	v.SetDefault("edgar.rate_limit", 10) // SEC fair-access ceiling
	v.SetDefault("edgar.max_retries", 4)
	v.SetDefault("edgar.base_delay_ms", 350)
	v.SetDefault("edgar.jitter_ms", 150)
	v.SetDefault("edgar.http_timeout_sec", 30)

	// Cache defaults
	v.SetDefault("cache.snapshot_ttl_sec", 30)
	v.SetDefault("cache.stream_ttl_sec", 5)
	v.SetDefault("cache.document_ttl_sec", 600)

	// Stream defaults
	v.SetDefault("stream.min_interval_sec", 5)
	v.SetDefault("stream.max_interval_sec", 300)
	v.SetDefault("stream.default_interval_sec", 30)
	v.SetDefault("stream.default_max_events", 10)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads the user agent from the environment.
func overrideFromEnv(cfg *Config) {
	if ua := os.Getenv(envPrefix + "_EDGAR_USER_AGENT"); ua != "" {
		cfg.Edgar.UserAgent = ua
	}
}

// BaseDelay returns the retry base delay.
func (c EdgarConfig) BaseDelay() time.Duration { return ms(c.BaseDelayMs) }

// Jitter returns the retry jitter bound.
func (c EdgarConfig) Jitter() time.Duration { return ms(c.JitterMs) }

// HTTPTimeout returns the per-attempt HTTP timeout.
func (c EdgarConfig) HTTPTimeout() time.Duration { return sec(c.HTTPTimeoutSec) }

func (c CacheConfig) SnapshotTTL() time.Duration { return sec(c.SnapshotTTLSec) }
func (c CacheConfig) StreamTTL() time.Duration   { return sec(c.StreamTTLSec) }
func (c CacheConfig) DocumentTTL() time.Duration { return sec(c.DocumentTTLSec) }

func (c StreamConfig) MinInterval() time.Duration     { return sec(c.MinIntervalSec) }
func (c StreamConfig) MaxInterval() time.Duration     { return sec(c.MaxIntervalSec) }
func (c StreamConfig) DefaultInterval() time.Duration { return sec(c.DefaultIntervalSec) }

// Addr returns the API listen address.
func (c APIConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func ms(n int) time.Duration  { return time.Duration(n) * time.Millisecond }
func sec(n int) time.Duration { return time.Duration(n) * time.Second }

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
