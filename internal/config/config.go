// Package config provides configuration management for the IPO tracker.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	apperrors "ipo-tracker/internal/errors"
	"ipo-tracker/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	User   UserConfig   `mapstructure:"user"`
	Store  StoreConfig  `mapstructure:"store"`
	Quote  QuoteConfig  `mapstructure:"quote"`
	Alerts AlertsConfig `mapstructure:"alerts"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// UserConfig identifies whose records CLI commands operate on.
type UserConfig struct {
	ID string `mapstructure:"id"`
}

// StoreConfig holds record store configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"` // empty = <config dir>/ipotracker.db
}

// QuoteConfig holds settings for the external scraping service.
type QuoteConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RateLimit   float64       `mapstructure:"rate_limit"` // requests per second
	Burst       int           `mapstructure:"burst"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Concurrency int           `mapstructure:"concurrency"`
}

// AlertsConfig holds settings for the scheduled alert check.
type AlertsConfig struct {
	Schedule      string `mapstructure:"schedule"` // cron spec with seconds, IST
	PortfolioOnly bool   `mapstructure:"portfolio_only"`
	AllUsers      bool   `mapstructure:"all_users"`
}

// ServerConfig holds JSON API configuration.
type ServerConfig struct {
	Port    int  `mapstructure:"port"`
	DevMode bool `mapstructure:"dev_mode"`
}

// LogConfig mirrors logging.LogConfig for file-based configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/ipo-tracker"
	}
	return filepath.Join(home, ".config", "ipo-tracker")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by the commented template and loading continues.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config template: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Dir = configDir

	// .env in the working directory, then in the config directory. Neither
	// overrides variables already set in the environment.
	_ = godotenv.Load()
	_ = godotenv.Load(filepath.Join(configDir, ".env"))
	applyEnvOverrides(cfg)

	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(configDir, "ipotracker.db")
	}
	if cfg.Log.FilePath == "" {
		cfg.Log.FilePath = filepath.Join(configDir, "logs", "ipotracker.log")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("user.id", "")
	v.SetDefault("store.path", "")

	v.SetDefault("quote.base_url", "http://localhost:8000")
	v.SetDefault("quote.timeout", 30*time.Second)
	v.SetDefault("quote.rate_limit", 1.0)
	v.SetDefault("quote.burst", 1)
	v.SetDefault("quote.max_attempts", 2)
	v.SetDefault("quote.concurrency", 4)

	v.SetDefault("alerts.schedule", "0 45 15 * * MON-FRI")
	v.SetDefault("alerts.portfolio_only", true)
	v.SetDefault("alerts.all_users", true)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.dev_mode", false)

	def := logging.DefaultLogConfig()
	v.SetDefault("log.level", def.Level)
	v.SetDefault("log.console", def.Console)
	v.SetDefault("log.file", def.File)
	v.SetDefault("log.file_path", def.FilePath)
	v.SetDefault("log.max_size", def.MaxSize)
	v.SetDefault("log.max_backups", def.MaxBackups)
	v.SetDefault("log.max_age", def.MaxAge)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IPOTRACKER_USER_ID"); v != "" {
		cfg.User.ID = v
	}
	if v := os.Getenv("IPOTRACKER_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("IPOTRACKER_QUOTE_URL"); v != "" {
		cfg.Quote.BaseURL = v
	}
	if v := os.Getenv("IPOTRACKER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("IPOTRACKER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Quote.BaseURL) == "" {
		return fmt.Errorf("%w: quote.base_url is required", apperrors.ErrConfigInvalid)
	}
	if c.Quote.Timeout <= 0 {
		return fmt.Errorf("%w: quote.timeout must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Quote.RateLimit <= 0 {
		return fmt.Errorf("%w: quote.rate_limit must be positive", apperrors.ErrConfigInvalid)
	}
	if c.Quote.Concurrency < 1 {
		return fmt.Errorf("%w: quote.concurrency must be at least 1", apperrors.ErrConfigInvalid)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", apperrors.ErrConfigInvalid, c.Server.Port)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Alerts.Schedule); err != nil {
		return fmt.Errorf("%w: alerts.schedule %q: %v", apperrors.ErrConfigInvalid, c.Alerts.Schedule, err)
	}

	return nil
}

// Logging converts the log section into a logging.LogConfig.
func (c *Config) Logging() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Log.Level,
		Console:    c.Log.Console,
		File:       c.Log.File,
		FilePath:   c.Log.FilePath,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
	}
}
