package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	NewsAPI    NewsAPIConfig    `mapstructure:"newsapi"`
	RSS        RSSConfig        `mapstructure:"rss"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Scan       ScanConfig       `mapstructure:"scan"`
	Analytics  AnalyticsConfig  `mapstructure:"analytics"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// NewsAPIConfig holds news API client configuration
type NewsAPIConfig struct {
	APIBaseURL string        `mapstructure:"api_base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Query      string        `mapstructure:"query"`
	Language   string        `mapstructure:"language"`
	PageSize   int           `mapstructure:"page_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// RSSConfig holds the optional per-country RSS feed configuration.
// Feeds are merged with API results before classification.
type RSSConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	Feeds   map[string]string `mapstructure:"feeds"` // country code -> feed URL
}

// ClassifierConfig holds the external sentiment/category classifier endpoint
type ClassifierConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Categories []string      `mapstructure:"categories"`
}

// ScanConfig holds scan cycle behavior configuration
type ScanConfig struct {
	Interval  time.Duration     `mapstructure:"interval"`
	Workers   int               `mapstructure:"workers"`
	Countries map[string]string `mapstructure:"countries"` // code -> display name
}

// AnalyticsConfig holds risk scoring, anomaly detection, and trend
// prediction parameters
type AnalyticsConfig struct {
	CriticalKeywords   []string `mapstructure:"critical_keywords"`
	ZThreshold         float64  `mapstructure:"z_threshold"`
	ShortWindow        int      `mapstructure:"short_window"`
	LongWindow         int      `mapstructure:"long_window"`
	TrendTolerance     float64  `mapstructure:"trend_tolerance"`
	FrequencyReference int      `mapstructure:"frequency_reference"`
	CriticalThreshold  float64  `mapstructure:"critical_threshold"`
	WarningThreshold   float64  `mapstructure:"warning_threshold"`
	PositiveThreshold  float64  `mapstructure:"positive_threshold"`
}

// TelegramConfig holds Telegram alert configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds SQLite storage configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// ServerConfig holds the read-only dashboard API configuration
type ServerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("AURA")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// News API defaults
	v.SetDefault("newsapi.api_base_url", "https://newsapi.org/v2")
	v.SetDefault("newsapi.query", "technology")
	v.SetDefault("newsapi.language", "en")
	v.SetDefault("newsapi.page_size", 15)
	v.SetDefault("newsapi.timeout", "30s")
	v.SetDefault("newsapi.max_retries", 3)

	// RSS defaults
	v.SetDefault("rss.enabled", false)

	// Classifier defaults
	v.SetDefault("classifier.timeout", "30s")
	v.SetDefault("classifier.categories", []string{
		"Artificial Intelligence",
		"Cybersecurity",
		"Hardware & Chips",
		"Crypto & Fintech",
		"Electric Vehicles",
		"Software Development",
		"Cloud Computing",
		"Mobile Technology",
	})

	// Scan defaults
	v.SetDefault("scan.interval", "600s")
	v.SetDefault("scan.workers", 3)
	v.SetDefault("scan.countries", map[string]string{
		"us": "United States",
		"kr": "South Korea",
		"fr": "France",
		"es": "Spain",
		"it": "Italy",
		"gr": "Greece",
	})

	// Analytics defaults
	v.SetDefault("analytics.critical_keywords", []string{
		"breach", "hack", "exploit", "vulnerability", "crash", "fail",
		"risk", "threat", "danger", "critical", "emergency", "urgent",
		"crisis", "disaster", "attack", "malware", "ransomware",
	})
	v.SetDefault("analytics.z_threshold", 2.0)
	v.SetDefault("analytics.short_window", 7)
	v.SetDefault("analytics.long_window", 30)
	v.SetDefault("analytics.trend_tolerance", 0.01)
	v.SetDefault("analytics.frequency_reference", 50)
	v.SetDefault("analytics.critical_threshold", -0.7)
	v.SetDefault("analytics.warning_threshold", -0.4)
	v.SetDefault("analytics.positive_threshold", 0.5)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/aura.db")

	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.listen_addr", ":8080")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.NewsAPI.APIBaseURL == "" {
		return fmt.Errorf("newsapi.api_base_url is required")
	}
	if c.NewsAPI.APIKey == "" {
		return fmt.Errorf("newsapi.api_key is required")
	}
	if c.NewsAPI.PageSize < 1 {
		return fmt.Errorf("newsapi.page_size must be at least 1")
	}
	if c.NewsAPI.MaxRetries < 1 {
		return fmt.Errorf("newsapi.max_retries must be at least 1")
	}

	if c.RSS.Enabled && len(c.RSS.Feeds) == 0 {
		return fmt.Errorf("rss.feeds must contain at least one feed when rss is enabled")
	}

	if c.Classifier.Endpoint == "" {
		return fmt.Errorf("classifier.endpoint is required")
	}
	if len(c.Classifier.Categories) == 0 {
		return fmt.Errorf("classifier.categories must contain at least one category")
	}

	if c.Scan.Interval < 1*time.Minute {
		return fmt.Errorf("scan.interval must be at least 1 minute")
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be at least 1")
	}
	if len(c.Scan.Countries) == 0 {
		return fmt.Errorf("scan.countries must contain at least one country")
	}

	if c.Analytics.ZThreshold <= 0 {
		return fmt.Errorf("analytics.z_threshold must be positive")
	}
	if c.Analytics.ShortWindow < 2 {
		return fmt.Errorf("analytics.short_window must be at least 2")
	}
	if c.Analytics.LongWindow <= c.Analytics.ShortWindow {
		return fmt.Errorf("analytics.long_window must be greater than analytics.short_window")
	}
	if c.Analytics.TrendTolerance < 0 {
		return fmt.Errorf("analytics.trend_tolerance must not be negative")
	}
	if c.Analytics.FrequencyReference < 1 {
		return fmt.Errorf("analytics.frequency_reference must be at least 1")
	}
	if c.Analytics.WarningThreshold < c.Analytics.CriticalThreshold {
		return fmt.Errorf("analytics.warning_threshold must be >= analytics.critical_threshold")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	if c.Server.Enabled && c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required when server is enabled")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
