// Package config provides configuration management for the option radar.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Radar    RadarConfig    `mapstructure:"radar"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// RadarConfig holds the signal pipeline parameters.
type RadarConfig struct {
	Symbols          []string           `mapstructure:"symbols"`
	StrikeStep       float64            `mapstructure:"strike_step"`
	StrikeSteps      map[string]float64 `mapstructure:"strike_steps"` // per-symbol override
	DefaultHalfWidth int                `mapstructure:"default_half_width"`
	RefreshInterval  time.Duration      `mapstructure:"refresh_interval"`
	Source           string             `mapstructure:"source"`   // "nse", "file"
	FixtureDir       string             `mapstructure:"fixture_dir"`
}

// UpstreamConfig holds the NSE endpoint and request policy.
type UpstreamConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	ChainPath         string        `mapstructure:"chain_path"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RetryMinDelay     time.Duration `mapstructure:"retry_min_delay"`
	RetryMaxDelay     time.Duration `mapstructure:"retry_max_delay"`
	UserAgent         string        `mapstructure:"user_agent"`
	AcceptLanguage    string        `mapstructure:"accept_language"`
	Referer           string        `mapstructure:"referer"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	BreakerFailures   int           `mapstructure:"breaker_failures"`
	BreakerCooldown   time.Duration `mapstructure:"breaker_cooldown"`
}

// ServerConfig holds dashboard server configuration.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Data sources.
const (
	SourceNSE  = "nse"
	SourceFile = "file"
)

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/option-radar"
	}
	return filepath.Join(home, ".config", "option-radar")
}

// Default returns a fully populated configuration.
func Default() *Config {
	return &Config{
		Radar: RadarConfig{
			Symbols:          []string{"NIFTY", "BANKNIFTY"},
			StrikeStep:       50,
			StrikeSteps:      map[string]float64{"banknifty": 100},
			DefaultHalfWidth: 5,
			RefreshInterval:  30 * time.Second,
			Source:           SourceNSE,
			FixtureDir:       filepath.Join(DefaultConfigDir(), "fixtures"),
		},
		Upstream: UpstreamConfig{
			BaseURL:           "https://www.nseindia.com",
			ChainPath:         "/api/option-chain-indices",
			Timeout:           5 * time.Second,
			RetryMinDelay:     1 * time.Second,
			RetryMaxDelay:     3 * time.Second,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
			AcceptLanguage:    "en-US,en;q=0.9",
			Referer:           "https://www.nseindia.com/option-chain",
			RequestsPerSecond: 1,
			Burst:             2,
			BreakerFailures:   5,
			BreakerCooldown:   60 * time.Second,
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8501",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Console:    true,
			File:       true,
			FilePath:   filepath.Join(DefaultConfigDir(), "logs", "radar.log"),
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// First run: write a template and carry on with defaults.
			return createTemplateConfig(configDir, name)
		}
		return err
	}

	return v.Unmarshal(target)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RADAR_SYMBOLS"); v != "" {
		var symbols []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
		cfg.Radar.Symbols = symbols
	}
	if v := os.Getenv("RADAR_SOURCE"); v != "" {
		cfg.Radar.Source = strings.ToLower(v)
	}
	if v := os.Getenv("RADAR_FIXTURE_DIR"); v != "" {
		cfg.Radar.FixtureDir = v
	}
	if v := os.Getenv("RADAR_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("RADAR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NSE_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Radar.Symbols) == 0 {
		return fmt.Errorf("radar.symbols must list at least one symbol")
	}
	if c.Radar.StrikeStep <= 0 {
		return fmt.Errorf("radar.strike_step must be positive")
	}
	for sym, step := range c.Radar.StrikeSteps {
		if step <= 0 {
			return fmt.Errorf("radar.strike_steps.%s must be positive", sym)
		}
	}
	if c.Radar.DefaultHalfWidth < 1 || c.Radar.DefaultHalfWidth > 20 {
		return fmt.Errorf("radar.default_half_width must be between 1 and 20")
	}
	if c.Radar.Source != SourceNSE && c.Radar.Source != SourceFile {
		return fmt.Errorf("invalid radar.source: %s (must be 'nse' or 'file')", c.Radar.Source)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if c.Upstream.RetryMinDelay < 0 || c.Upstream.RetryMaxDelay < c.Upstream.RetryMinDelay {
		return fmt.Errorf("upstream retry delays must satisfy 0 <= retry_min_delay <= retry_max_delay")
	}
	if c.Upstream.RequestsPerSecond <= 0 {
		return fmt.Errorf("upstream.requests_per_second must be positive")
	}
	return nil
}

// StrikeStepFor returns the strike spacing for symbol.
func (c *Config) StrikeStepFor(symbol string) float64 {
	if step, ok := c.Radar.StrikeSteps[strings.ToLower(symbol)]; ok {
		return step
	}
	if step, ok := c.Radar.StrikeSteps[symbol]; ok {
		return step
	}
	return c.Radar.StrikeStep
}

// ChainURL returns the option chain endpoint for symbol.
func (c *Config) ChainURL() string {
	return strings.TrimRight(c.Upstream.BaseURL, "/") + c.Upstream.ChainPath
}
