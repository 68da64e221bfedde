package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Input    InputConfig    `mapstructure:"input"`
	Output   OutputConfig   `mapstructure:"output"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Report   ReportConfig   `mapstructure:"report"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// InputConfig holds the transaction source configuration
type InputConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"` // auto, json or csv
}

// OutputConfig holds results persistence configuration
type OutputConfig struct {
	Path            string      `mapstructure:"path"`
	DBPath          string      `mapstructure:"db_path"` // optional SQLite copy of the scores
	FilePermissions os.FileMode `mapstructure:"file_permissions"`
	DirPermissions  os.FileMode `mapstructure:"dir_permissions"`
}

// ScoringConfig holds pipeline execution configuration
type ScoringConfig struct {
	Workers int `mapstructure:"workers"` // 0 = GOMAXPROCS
}

// ReportConfig holds score distribution report configuration
type ReportConfig struct {
	Bins  int    `mapstructure:"bins"`
	Width int    `mapstructure:"width"`
	Path  string `mapstructure:"path"` // empty = stdout only
}

// MetricsConfig holds Prometheus textfile export configuration
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	TopK           int           `mapstructure:"top_k"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("CREDSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Input defaults
	v.SetDefault("input.path", "data/user-wallet-transactions.json")
	v.SetDefault("input.format", "auto")

	// Output defaults
	v.SetDefault("output.path", "output/wallet_scores.json")
	v.SetDefault("output.db_path", "")
	v.SetDefault("output.file_permissions", 0o644)
	v.SetDefault("output.dir_permissions", 0o755)

	// Scoring defaults
	v.SetDefault("scoring.workers", 0)

	// Report defaults
	v.SetDefault("report.bins", 30)
	v.SetDefault("report.width", 50)
	v.SetDefault("report.path", "")

	// Metrics defaults
	v.SetDefault("metrics.textfile_path", "")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.top_k", 10)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "2s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Input config
	if c.Input.Path == "" {
		return fmt.Errorf("input.path is required")
	}
	validFormats := map[string]bool{"auto": true, "json": true, "csv": true}
	if !validFormats[strings.ToLower(c.Input.Format)] {
		return fmt.Errorf("input.format must be one of: auto, json, csv")
	}

	// Validate Output config
	if c.Output.Path == "" {
		return fmt.Errorf("output.path is required")
	}
	if c.Output.FilePermissions == 0 {
		return fmt.Errorf("output.file_permissions must be non-zero")
	}
	if c.Output.DirPermissions == 0 {
		return fmt.Errorf("output.dir_permissions must be non-zero")
	}

	// Validate Scoring config
	if c.Scoring.Workers < 0 {
		return fmt.Errorf("scoring.workers must not be negative")
	}

	// Validate Report config
	if c.Report.Bins < 1 || c.Report.Bins > 1000 {
		return fmt.Errorf("report.bins must be between 1 and 1000")
	}
	if c.Report.Width < 10 {
		return fmt.Errorf("report.width must be at least 10")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
		if c.Telegram.TopK < 1 {
			return fmt.Errorf("telegram.top_k must be at least 1")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
